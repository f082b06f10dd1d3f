// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

/*
Package netmon tracks connectivity and notifies the sync layer on
transitions.

The monitor only ever reports edges: subscribers hear "online" or "offline"
when the state actually flips, never on every probe. Network-state
transitions drive the offline queue's drain-and-retry and the feed cache's
offline/refreshable signals.

State can be fed from the outside (platform reachability callbacks, tests)
via SetOnline, or derived by the monitor's own probe loop against a health
endpoint. The probe loop is rate limited so a tight caller cannot turn it
into a connectivity storm of its own.
*/
package netmon

import (
	stdctx "context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/davitran/aperture/internal/platform/constants"
)

// Listener receives connectivity edges.
type Listener func(online bool)

type listenerEntry struct {
	id uint64
	fn Listener
}

// Monitor tracks the last known connectivity state.
type Monitor struct {
	healthURL string
	client    *http.Client
	logger    *slog.Logger
	interval  time.Duration
	limiter   *rate.Limiter

	mu        sync.Mutex
	online    bool
	resolved  bool
	listeners []listenerEntry
	nextID    uint64
}

// Option customizes a [Monitor].
type Option func(*Monitor)

// WithProbeInterval overrides how often the probe loop checks the health URL.
func WithProbeInterval(interval time.Duration) Option {
	return func(monitor *Monitor) { monitor.interval = interval }
}

// WithHTTPClient substitutes the probe transport (tests).
func WithHTTPClient(client *http.Client) Option {
	return func(monitor *Monitor) { monitor.client = client }
}

// New creates a monitor. healthURL may be empty when state is fed externally
// through SetOnline only.
func New(healthURL string, logger *slog.Logger, options ...Option) *Monitor {
	monitor := &Monitor{
		healthURL: healthURL,
		client:    &http.Client{Timeout: 3 * time.Second},
		logger:    logger,
		interval:  constants.DefaultProbeInterval,
	}
	for _, option := range options {
		option(monitor)
	}
	// One probe per interval regardless of how often Probe is called.
	monitor.limiter = rate.NewLimiter(rate.Every(monitor.interval), 1)
	return monitor
}

// Online reports the last known state. Before the first transition the
// monitor optimistically assumes connectivity.
func (monitor *Monitor) Online() bool {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	if !monitor.resolved {
		return true
	}
	return monitor.online
}

// Subscribe registers a listener for connectivity edges and returns its
// unsubscribe func. Listeners are called in registration order.
func (monitor *Monitor) Subscribe(listener Listener) func() {
	monitor.mu.Lock()
	monitor.nextID++
	id := monitor.nextID
	monitor.listeners = append(monitor.listeners, listenerEntry{id: id, fn: listener})
	monitor.mu.Unlock()

	return func() {
		monitor.mu.Lock()
		defer monitor.mu.Unlock()
		for i, entry := range monitor.listeners {
			if entry.id == id {
				monitor.listeners = append(monitor.listeners[:i:i], monitor.listeners[i+1:]...)
				return
			}
		}
	}
}

/*
SetOnline feeds a connectivity observation into the monitor.

Description: Listeners are notified only when the observation flips the last
known state (edge detection). Repeating the current state is a no-op, so
flaky platform callbacks cannot re-trigger drain passes.

Parameters:
  - online: bool
*/
func (monitor *Monitor) SetOnline(online bool) {
	monitor.mu.Lock()
	if monitor.resolved && monitor.online == online {
		monitor.mu.Unlock()
		return
	}
	first := !monitor.resolved
	monitor.resolved = true
	monitor.online = online
	listeners := make([]listenerEntry, len(monitor.listeners))
	copy(listeners, monitor.listeners)
	monitor.mu.Unlock()

	// The very first observation only establishes a baseline when it agrees
	// with the optimistic default; an initial "offline" is a real edge.
	if first && online {
		return
	}

	monitor.logger.Info("connectivity changed", slog.Bool("online", online))
	for _, entry := range listeners {
		entry.fn(online)
	}
}

// Probe checks the health endpoint once and feeds the result into SetOnline.
// Calls beyond the configured rate are skipped.
func (monitor *Monitor) Probe(context stdctx.Context) {
	if monitor.healthURL == "" || !monitor.limiter.Allow() {
		return
	}

	request, err := http.NewRequestWithContext(context, http.MethodGet, monitor.healthURL, nil)
	if err != nil {
		monitor.SetOnline(false)
		return
	}
	response, err := monitor.client.Do(request)
	if err != nil {
		monitor.SetOnline(false)
		return
	}
	_ = response.Body.Close()
	monitor.SetOnline(response.StatusCode < 500)
}

// Run drives the probe loop until the context is cancelled.
func (monitor *Monitor) Run(context stdctx.Context) {
	ticker := time.NewTicker(monitor.interval)
	defer ticker.Stop()

	monitor.Probe(context)
	for {
		select {
		case <-context.Done():
			return
		case <-ticker.C:
			monitor.Probe(context)
		}
	}
}
