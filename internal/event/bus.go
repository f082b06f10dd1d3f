// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

/*
Package event implements the process-wide publish/subscribe registry that
decouples producer screens from consumer screens.

Delivery is synchronous and in-process: Emit invokes every current subscriber
before returning, in subscription order, and a subscriber that panics never
prevents the remaining subscribers from running. There is no persistence and
no delivery guarantee across process restarts.

Architecture:

  - Bus: Named-event registry, injectable (one instance per process, created
    at startup, torn down only at process exit).
  - Channel: The post-change channel; a pre-configured pattern on top of the
    same subscriber mechanics, dedicated to "post added"/"post changed".

Subscribers own their unsubscribe handle. The bus holds a strong reference to
every handler until it is unsubscribed; forgetting the handle leaks the
subscription.
*/
package event

import (
	"log/slog"
	"sync"
)

// Handler consumes an event payload. Handlers run on the emitter's goroutine.
type Handler func(payload any)

// subscription pairs a registration token with the registered function.
// Tokens, not function identity, distinguish subscribers: two closures built
// from one literal are two subscriptions, each with its own unsubscribe
// handle, and the only way to "register twice" is to call Subscribe twice.
type subscription struct {
	id uint64
	fn Handler
}

// Bus is a process-wide publish/subscribe registry keyed by event name.
//
// Emitting an event with no subscribers is a no-op, never an error.
type Bus struct {
	mu     sync.Mutex
	topics map[string][]subscription
	nextID uint64
	logger *slog.Logger
}

// NewBus creates an empty bus. The logger records subscriber panics.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		topics: map[string][]subscription{},
		logger: logger,
	}
}

/*
Subscribe registers fn for the named event and returns its unsubscribe func.

Description: Handlers are notified in registration order. Every call creates
its own subscription, so two distinct callbacks built from one function
literal both fire; the unsubscribe handle removes exactly the subscription
it came from. Calling the returned func more than once is harmless.

Parameters:
  - name: string
  - fn: Handler

Returns:
  - func(): Unsubscribe handle owned by the caller
*/
func (bus *Bus) Subscribe(name string, fn Handler) func() {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.nextID++
	id := bus.nextID
	bus.topics[name] = append(bus.topics[name], subscription{id: id, fn: fn})

	return func() {
		bus.mu.Lock()
		defer bus.mu.Unlock()

		subs := bus.topics[name]
		for i, sub := range subs {
			if sub.id == id {
				bus.topics[name] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

/*
Emit delivers payload to every current subscriber of the named event.

Description: Delivery is synchronous and in subscription order. A handler
that panics is logged and skipped; the remaining handlers still run. The
failure is never propagated to the emitter.

Parameters:
  - name: string
  - payload: any
*/
func (bus *Bus) Emit(name string, payload any) {
	// Snapshot under the lock, call outside it, so handlers may subscribe
	// or unsubscribe reentrantly without deadlocking.
	bus.mu.Lock()
	subs := make([]subscription, len(bus.topics[name]))
	copy(subs, bus.topics[name])
	bus.mu.Unlock()

	for _, sub := range subs {
		bus.deliver(name, sub, payload)
	}
}

// deliver invokes one handler, converting a panic into a log entry.
func (bus *Bus) deliver(name string, sub subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			bus.logger.Error("event subscriber panicked",
				slog.String("event", name),
				slog.Any("panic", r),
			)
		}
	}()
	sub.fn(payload)
}
