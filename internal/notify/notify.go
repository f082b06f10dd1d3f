// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

/*
Package notify collects user-facing notifications emitted anywhere in the
process.

Producers emit the "notifyUser" event on the bus with a [Payload]; the
center records them newest first for whatever surface renders them. Nothing
here persists: notifications are session-scoped by design.
*/
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davitran/aperture/internal/event"
	"github.com/davitran/aperture/internal/platform/constants"
)

// Payload is what producers emit on the bus.
type Payload struct {
	Message   string
	Thumbnail string
}

// Notification is one recorded notification.
type Notification struct {
	ID        string
	Message   string
	Thumbnail string
	CreatedAt time.Time
}

// Center subscribes to the bus and records notifications newest first.
type Center struct {
	mu          sync.Mutex
	items       []Notification
	unsubscribe func()
}

// NewCenter registers the center on the bus. The caller owns Close.
func NewCenter(bus *event.Bus) *Center {
	center := &Center{}
	center.unsubscribe = bus.Subscribe(constants.EventNotifyUser, center.onEvent)
	return center
}

func (center *Center) onEvent(payload any) {
	typed, ok := payload.(Payload)
	if !ok {
		return
	}

	center.mu.Lock()
	defer center.mu.Unlock()
	center.items = append([]Notification{{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Message:   typed.Message,
		Thumbnail: typed.Thumbnail,
		CreatedAt: time.Now().UTC(),
	}}, center.items...)
}

// List returns the recorded notifications, newest first.
func (center *Center) List() []Notification {
	center.mu.Lock()
	defer center.mu.Unlock()

	out := make([]Notification, len(center.items))
	copy(out, center.items)
	return out
}

// Clear drops all recorded notifications.
func (center *Center) Clear() {
	center.mu.Lock()
	defer center.mu.Unlock()
	center.items = nil
}

// Close unsubscribes the center from the bus.
func (center *Center) Close() {
	if center.unsubscribe != nil {
		center.unsubscribe()
	}
}
