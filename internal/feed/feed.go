// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package feed

import "time"

// Kind selects which feed to fetch.
type Kind string

const (
	// KindGlobal is the site-wide feed.
	KindGlobal Kind = "global"

	// KindFriends is the feed restricted to accounts the user follows.
	KindFriends Kind = "friends"
)

// Entry is one post as rendered in the feed.
//
// PostID is unique within a cached snapshot. Snapshots are only ever
// replaced whole; there are no partial patches, which keeps local and server
// state trivially reconcilable.
type Entry struct {
	PostID    string    `json:"postId"`
	Caption   string    `json:"caption"`
	URL       string    `json:"url"`
	Rating    float64   `json:"rating"`
	CreatedAt time.Time `json:"date"`
	Views     int       `json:"views"`
	Hashtags  []string  `json:"hashtags"`
	UserID    string    `json:"userId"`
}

// Result is what a feed fetch yields.
type Result struct {
	// Entries holds the posts to render. On a live fetch this is the full
	// server result in its original order; on fallback it is the cached
	// snapshot (possibly empty).
	Entries []Entry

	// Stale marks a degraded result served from the cache after a network
	// failure, timeout, or malformed response.
	Stale bool
}
