// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package event

import (
	"log/slog"
	"sync"
)

// PostSignalKind distinguishes the two semantic signals carried by the post
// channel.
type PostSignalKind string

const (
	// PostAdded fires after a post submission is confirmed by the server,
	// including replayed offline submissions.
	PostAdded PostSignalKind = "added"

	// PostChanged fires after a rating, comment, edit, or delete.
	PostChanged PostSignalKind = "changed"
)

// PostSignal is the payload delivered to post channel subscribers.
type PostSignal struct {
	Kind   PostSignalKind
	PostID string
}

// PostHandler consumes a post signal.
type PostHandler func(signal PostSignal)

// Channel is the pre-configured pub/sub instance dedicated to post
// notifications, decoupling the screens that mutate posts from the screens
// that render them.
//
// # Known Coupling
//
// Both signals share one subscriber set: a subscriber of "added" also
// receives "changed" and vice versa. This mirrors the shipped behavior and
// is kept deliberately; subscribers branch on [PostSignal.Kind] when they
// care. Do not split the sets without a product decision.
type Channel struct {
	mu     sync.Mutex
	subs   []postSubscription
	nextID uint64
	logger *slog.Logger
}

type postSubscription struct {
	id uint64
	fn PostHandler
}

// NewChannel creates an empty post channel.
func NewChannel(logger *slog.Logger) *Channel {
	return &Channel{logger: logger}
}

// SubscribeAdded registers fn on the shared subscriber set and returns its
// unsubscribe func. fn also receives "changed" signals (see Known Coupling).
func (channel *Channel) SubscribeAdded(fn PostHandler) func() {
	return channel.subscribe(fn)
}

// SubscribeChanged registers fn on the shared subscriber set and returns its
// unsubscribe func. fn also receives "added" signals (see Known Coupling).
func (channel *Channel) SubscribeChanged(fn PostHandler) func() {
	return channel.subscribe(fn)
}

func (channel *Channel) subscribe(fn PostHandler) func() {
	channel.mu.Lock()
	defer channel.mu.Unlock()

	channel.nextID++
	id := channel.nextID
	channel.subs = append(channel.subs, postSubscription{id: id, fn: fn})

	return func() {
		channel.mu.Lock()
		defer channel.mu.Unlock()

		for i, sub := range channel.subs {
			if sub.id == id {
				channel.subs = append(channel.subs[:i:i], channel.subs[i+1:]...)
				return
			}
		}
	}
}

// EmitAdded notifies every subscriber that a post was added.
func (channel *Channel) EmitAdded(postID string) {
	channel.emit(PostSignal{Kind: PostAdded, PostID: postID})
}

// EmitChanged notifies every subscriber that a post was changed.
func (channel *Channel) EmitChanged(postID string) {
	channel.emit(PostSignal{Kind: PostChanged, PostID: postID})
}

func (channel *Channel) emit(signal PostSignal) {
	channel.mu.Lock()
	subs := make([]postSubscription, len(channel.subs))
	copy(subs, channel.subs)
	channel.mu.Unlock()

	for _, sub := range subs {
		channel.deliverPost(sub, signal)
	}
}

func (channel *Channel) deliverPost(sub postSubscription, signal PostSignal) {
	defer func() {
		if r := recover(); r != nil {
			channel.logger.Error("post subscriber panicked",
				slog.String("kind", string(signal.Kind)),
				slog.String("post_id", signal.PostID),
				slog.Any("panic", r),
			)
		}
	}()
	sub.fn(signal)
}
