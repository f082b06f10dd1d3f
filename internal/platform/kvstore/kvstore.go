// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

/*
Package kvstore provides durable local key-value storage for the client core.

Values are JSON-serialized blobs under fixed string keys (see
constants.Key*). The contract is deliberately tiny so that any asynchronous
key-value store can back it: files on device, redis for the web build, or
plain memory in tests.

Architecture:

  - Store: The storage contract shared by all backends.
  - File: One blob file per key under a cache directory (mobile/desktop).
  - Redis: Blob-under-key on a local redis (web build, shared cache).
  - Memory: In-process map (tests and ephemeral defaults).
  - Sealed: A wrapper adding at-rest encryption around any other backend.

All backends return apperr.NotFound for missing keys and wrap every other
failure as apperr.Storage, which callers treat as non-fatal.
*/
package kvstore

import "context"

// Store is the durable local storage contract.
//
// Durable means values survive process restarts for the File and Redis
// backends. The client core mutates storage from one logical operation at a
// time; backends only need to be safe for the occasional interleaved call.
type Store interface {

	/*
		Get returns the blob stored under key.

		Parameters:
		  - context: context.Context
		  - key: string

		Returns:
		  - []byte: Stored blob
		  - error: apperr.NotFound when absent, apperr.Storage otherwise
	*/
	Get(context context.Context, key string) ([]byte, error)

	/*
		Set stores the blob under key, replacing any prior value.

		Parameters:
		  - context: context.Context
		  - key: string
		  - value: []byte

		Returns:
		  - error: apperr.Storage on write failures
	*/
	Set(context context.Context, key string, value []byte) error

	/*
		Delete removes the key. Deleting an absent key is not an error.

		Parameters:
		  - context: context.Context
		  - key: string

		Returns:
		  - error: apperr.Storage on removal failures
	*/
	Delete(context context.Context, key string) error

	/*
		Clear removes every key. Used by logout to wipe all local cached
		state in one call.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: apperr.Storage on removal failures
	*/
	Clear(context context.Context) error
}
