// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

/*
Package constants provides centralized, immutable values for the client core.

It defines default timeouts, cache limits, and cross-cutting keys that are
shared between different layers of the synchronization stack.

Categories:

  - Storage Keys: Fixed keys under which JSON blobs live in durable storage.
  - Events: Well-known event names on the process-wide bus.
  - Timing & Limits: Fetch timeouts, cache caps, probe intervals.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "aperture-core"
	AppVersion = "0.1.0-dev"
)

// # Storage Keys
//
// Values under these keys are JSON-serialized blobs. There is no schema
// migration logic; a shape change requires a new key.

const (
	// KeyCurrentUserID holds the last known user id so cold starts can show
	// per-user content without blocking on provider initialization.
	KeyCurrentUserID = "currentUserId"

	// KeyCachedPosts holds the most recent feed snapshot.
	KeyCachedPosts = "cachedPosts"

	// KeyOfflinePosts holds the durable queue of posts created while offline.
	KeyOfflinePosts = "offlinePosts"

	// KeyProfilePrefix prefixes per-user cached profile snapshots.
	KeyProfilePrefix = "cachedProfile:"
)

// # Events

const (
	// EventNotifyUser carries a user-facing notification payload.
	EventNotifyUser = "notifyUser"

	// EventFeedOffline signals that connectivity was lost and cached posts
	// are being served.
	EventFeedOffline = "feed.offline"

	// EventFeedRefreshable signals that connectivity returned after an
	// offline period and the user may refresh. The feed is deliberately not
	// refetched automatically to avoid refetch storms on flaky connections.
	EventFeedRefreshable = "feed.refreshable"
)

// # Timing & Limits

const (
	// DefaultFeedTimeout is the deadline for a live feed fetch before the
	// cache fallback kicks in.
	DefaultFeedTimeout = 5 * time.Second

	// FeedCacheCap is the maximum number of entries persisted in the feed
	// snapshot. Applies only to the persisted cache, never to live results.
	FeedCacheCap = 30

	// DefaultRequestTimeout is the deadline for ordinary authorized requests.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultUploadTimeout is the deadline for a media upload. Uploads move
	// whole images, so they get more room than JSON calls.
	DefaultUploadTimeout = 60 * time.Second

	// DefaultProbeInterval is how often the connectivity monitor probes the
	// health endpoint when running its own loop.
	DefaultProbeInterval = 15 * time.Second

	// DefaultProfileCacheTTL is how long a fetched user profile stays in the
	// in-memory cache before it is re-fetched.
	DefaultProfileCacheTTL = 5 * time.Minute
)
