// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package kvstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/davitran/aperture/internal/platform/apperr"
)

// File is a [Store] keeping one blob file per key under a cache directory.
// This is the durable storage backend for mobile and desktop builds.
//
// # Layout
//
// Keys are hex-encoded into file names (keys contain characters like ':'
// that are not portable across filesystems). Writes go to a temp file in the
// same directory followed by a rename, so a crash mid-write never leaves a
// truncated value under the real key.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates the cache directory if needed and returns a file-backed store.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, apperr.Storage("create cache dir", err)
	}
	return &File{dir: dir}, nil
}

const fileSuffix = ".blob"

func (store *File) path(key string) string {
	return filepath.Join(store.dir, hex.EncodeToString([]byte(key))+fileSuffix)
}

// Get returns the blob stored under key, or apperr.NotFound.
func (store *File) Get(_ context.Context, key string) ([]byte, error) {
	value, err := os.ReadFile(store.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("key " + key)
		}
		return nil, apperr.Storage(fmt.Sprintf("read key %s", key), err)
	}
	return value, nil
}

// Set stores the blob under key atomically.
func (store *File) Set(_ context.Context, key string, value []byte) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	target := store.path(key)

	// Write-then-rename keeps readers from ever observing a partial value.
	tmp, err := os.CreateTemp(store.dir, "write-*")
	if err != nil {
		return apperr.Storage(fmt.Sprintf("write key %s", key), err)
	}
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return apperr.Storage(fmt.Sprintf("write key %s", key), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return apperr.Storage(fmt.Sprintf("write key %s", key), err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return apperr.Storage(fmt.Sprintf("write key %s", key), err)
	}
	return nil
}

// Delete removes the key. Absent keys are ignored.
func (store *File) Delete(_ context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := os.Remove(store.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Storage(fmt.Sprintf("delete key %s", key), err)
	}
	return nil
}

// Clear removes every stored blob. Only files written by this store are
// touched; the directory itself and any foreign files are left alone.
func (store *File) Clear(_ context.Context) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	entries, err := os.ReadDir(store.dir)
	if err != nil {
		return apperr.Storage("clear store", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(store.dir, entry.Name())); err != nil {
			return apperr.Storage("clear store", err)
		}
	}
	return nil
}
