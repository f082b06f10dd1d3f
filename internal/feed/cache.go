// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

/*
Package feed maintains a local snapshot of the most-recently-seen feed items
with a staleness/fallback policy on fetch failure.

Algorithm:

 1. Fetch the live feed with a deadline (default 5s); a timeout counts as a
    network error.
 2. On valid success: persist the 30 most recent entries (by creation date,
    descending) as the new snapshot, replacing any prior one, and return the
    full live result to the caller. The cap applies only to the persisted
    cache, never to what a successful live fetch renders.
 3. On failure: load the snapshot from durable storage, mark the result
    stale, and return it (empty if no cache exists yet).

Connectivity transitions are handled separately: going offline serves the
snapshot immediately and signals "offline"; coming back online signals
"you may refresh" exactly once instead of refetching automatically.
*/
package feed

import (
	stdctx "context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/davitran/aperture/internal/event"
	"github.com/davitran/aperture/internal/httpclient"
	"github.com/davitran/aperture/internal/platform/apperr"
	"github.com/davitran/aperture/internal/platform/constants"
	"github.com/davitran/aperture/internal/platform/kvstore"
)

// UserSource resolves the current user id for the friends feed without
// blocking on network.
type UserSource interface {
	CurrentUserID(context stdctx.Context) string
}

// Cache is the feed service: live fetches, snapshot persistence, and the
// cached fallback path.
type Cache struct {
	client  *httpclient.Client
	store   kvstore.Store
	users   UserSource
	bus     *event.Bus
	logger  *slog.Logger
	baseURL string
	timeout time.Duration
	cap     int

	mu         sync.Mutex
	wasOffline bool
}

// NewCache constructs the feed cache.
func NewCache(
	client *httpclient.Client,
	store kvstore.Store,
	users UserSource,
	bus *event.Bus,
	baseURL string,
	timeout time.Duration,
	logger *slog.Logger,
) *Cache {
	if timeout <= 0 {
		timeout = constants.DefaultFeedTimeout
	}
	return &Cache{
		client:  client,
		store:   store,
		users:   users,
		bus:     bus,
		logger:  logger,
		baseURL: baseURL,
		timeout: timeout,
		cap:     constants.FeedCacheCap,
	}
}

// feedResponse is the expected live response shape. A response without a
// posts array is malformed and treated exactly like a network failure.
type feedResponse struct {
	Posts []Entry `json:"posts"`
}

// # Fetch

/*
Fetch returns the requested feed, live when possible, cached when not.

Parameters:
  - context: context.Context
  - kind: Kind (global or friends)

Returns:
  - *Result: Live entries, or the stale snapshot on failure
  - error: apperr.Validation for an unknown kind only; fetch failures are
    swallowed into the degraded result per the propagation policy
*/
func (cache *Cache) Fetch(context stdctx.Context, kind Kind) (*Result, error) {
	endpoint, err := cache.endpoint(context, kind)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := stdctx.WithTimeout(context, cache.timeout)
	defer cancel()

	live := &feedResponse{}
	fetchErr := cache.client.DoJSON(fetchCtx, http.MethodGet, endpoint, nil, live)
	if fetchErr == nil && live.Posts == nil {
		fetchErr = apperr.Validation("fetch feed", fmt.Errorf("response lacks posts array"))
	}

	if fetchErr != nil {
		cache.logger.Warn("live feed fetch failed, serving snapshot",
			slog.String("op", "fetch_feed"),
			slog.String("kind", string(kind)),
			slog.Any("error", fetchErr),
		)
		return cache.fallback(context), nil
	}

	cache.persistSnapshot(context, live.Posts)

	// The caller renders the full live result in its original order; only
	// the persisted snapshot is sorted and capped.
	return &Result{Entries: live.Posts}, nil
}

// endpoint builds the REST URL for a feed kind.
func (cache *Cache) endpoint(context stdctx.Context, kind Kind) (string, error) {
	switch kind {
	case KindGlobal:
		return fmt.Sprintf("%s/posts?kind=%s", cache.baseURL, KindGlobal), nil
	case KindFriends:
		userID := cache.users.CurrentUserID(context)
		return fmt.Sprintf("%s/posts?kind=%s&user=%s", cache.baseURL, KindFriends, url.QueryEscape(userID)), nil
	default:
		return "", apperr.Validation("fetch feed", fmt.Errorf("unknown feed kind %q", kind))
	}
}

// fallback loads the snapshot and marks the result stale.
func (cache *Cache) fallback(context stdctx.Context) *Result {
	entries, err := cache.LoadSnapshot(context)
	if err != nil {
		if !apperr.IsCode(err, "NOT_FOUND") {
			cache.logger.Warn("snapshot load failed",
				slog.String("op", "fetch_feed"),
				slog.Any("error", err),
			)
		}
		return &Result{Entries: []Entry{}, Stale: true}
	}
	return &Result{Entries: entries, Stale: true}
}

// # Snapshot Persistence

// persistSnapshot replaces the cached snapshot with the most recent entries,
// newest first. Storage failures are logged and swallowed; the live result
// is already on its way to the caller.
func (cache *Cache) persistSnapshot(context stdctx.Context, entries []Entry) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > cache.cap {
		sorted = sorted[:cache.cap]
	}

	blob, err := json.Marshal(sorted)
	if err != nil {
		cache.logger.Warn("snapshot encode failed",
			slog.String("op", "persist_snapshot"),
			slog.Any("error", err),
		)
		return
	}
	if err := cache.store.Set(context, constants.KeyCachedPosts, blob); err != nil {
		cache.logger.Warn("snapshot persist failed",
			slog.String("op", "persist_snapshot"),
			slog.Any("error", err),
		)
	}
}

// LoadSnapshot returns the cached snapshot, newest first.
func (cache *Cache) LoadSnapshot(context stdctx.Context) ([]Entry, error) {
	blob, err := cache.store.Get(context, constants.KeyCachedPosts)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(blob, &entries); err != nil {
		return nil, apperr.Storage("decode snapshot", err)
	}
	return entries, nil
}

// # Connectivity Transitions

/*
OnConnectivityChange reacts to an online/offline edge from the monitor.

Description: Going offline loads the snapshot immediately and emits the
"offline" signal carrying the cached entries. Coming back online after an
offline period emits a single "you may refresh" signal; the feed is never
refetched automatically, avoiding refetch storms on flaky connections.

Parameters:
  - context: context.Context
  - online: bool
*/
func (cache *Cache) OnConnectivityChange(context stdctx.Context, online bool) {
	cache.mu.Lock()
	wasOffline := cache.wasOffline
	cache.wasOffline = !online
	cache.mu.Unlock()

	if !online {
		result := cache.fallback(context)
		cache.bus.Emit(constants.EventFeedOffline, result)
		return
	}
	if wasOffline {
		cache.bus.Emit(constants.EventFeedRefreshable, nil)
	}
}
