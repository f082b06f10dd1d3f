// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package kvstore

import (
	"context"
	"sync"

	"github.com/davitran/aperture/internal/platform/apperr"
)

// Memory is an in-process [Store]. Nothing survives a restart; it exists for
// tests and as a safe default when no cache directory is configured.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: map[string][]byte{}}
}

// Get returns the blob stored under key, or apperr.NotFound.
func (store *Memory) Get(_ context.Context, key string) ([]byte, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	value, ok := store.values[key]
	if !ok {
		return nil, apperr.NotFound("key " + key)
	}

	// Copy so callers cannot mutate the stored blob.
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores the blob under key.
func (store *Memory) Set(_ context.Context, key string, value []byte) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	store.values[key] = stored
	return nil
}

// Delete removes the key. Absent keys are ignored.
func (store *Memory) Delete(_ context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.values, key)
	return nil
}

// Clear removes every key.
func (store *Memory) Clear(_ context.Context) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.values = map[string][]byte{}
	return nil
}
