// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package kvstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davitran/aperture/internal/platform/apperr"
	"github.com/davitran/aperture/internal/platform/kvstore"
)

// storeFactories builds each backend variant against a fresh state.
func storeFactories(t *testing.T) map[string]func() kvstore.Store {
	t.Helper()
	return map[string]func() kvstore.Store{
		"memory": func() kvstore.Store {
			return kvstore.NewMemory()
		},
		"file": func() kvstore.Store {
			store, err := kvstore.NewFile(t.TempDir())
			require.NoError(t, err)
			return store
		},
		"sealed": func() kvstore.Store {
			store, err := kvstore.NewSealed(kvstore.NewMemory(), "device-passphrase")
			require.NoError(t, err)
			return store
		},
	}
}

/*
TestStore_RoundTrip runs the shared contract against every backend: set,
get, replace, delete, clear, and the NOT_FOUND code for absent keys.
*/
func TestStore_RoundTrip(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory()

			// Absent key
			_, err := store.Get(ctx, "missing")
			assert.True(t, apperr.IsCode(err, "NOT_FOUND"))

			// Set and get
			require.NoError(t, store.Set(ctx, "currentUserId", []byte("user-1")))
			value, err := store.Get(ctx, "currentUserId")
			require.NoError(t, err)
			assert.Equal(t, []byte("user-1"), value)

			// Replace
			require.NoError(t, store.Set(ctx, "currentUserId", []byte("user-2")))
			value, err = store.Get(ctx, "currentUserId")
			require.NoError(t, err)
			assert.Equal(t, []byte("user-2"), value)

			// Delete, including an absent key
			require.NoError(t, store.Delete(ctx, "currentUserId"))
			require.NoError(t, store.Delete(ctx, "currentUserId"))
			_, err = store.Get(ctx, "currentUserId")
			assert.True(t, apperr.IsCode(err, "NOT_FOUND"))

			// Clear wipes everything
			require.NoError(t, store.Set(ctx, "cachedPosts", []byte("[]")))
			require.NoError(t, store.Set(ctx, "offlinePosts", []byte("[]")))
			require.NoError(t, store.Clear(ctx))
			_, err = store.Get(ctx, "cachedPosts")
			assert.True(t, apperr.IsCode(err, "NOT_FOUND"))
			_, err = store.Get(ctx, "offlinePosts")
			assert.True(t, apperr.IsCode(err, "NOT_FOUND"))
		})
	}
}

/*
TestFile_SurvivesRestart verifies durability: a new store over the same
directory sees previously written values.
*/
func TestFile_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := kvstore.NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "cachedPosts", []byte(`[{"postId":"p1"}]`)))

	second, err := kvstore.NewFile(dir)
	require.NoError(t, err)
	value, err := second.Get(ctx, "cachedPosts")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"postId":"p1"}]`, string(value))
}

/*
TestSealed_AtRest verifies that sealed values are unreadable in the inner
store and that tampering or key reuse is detected on open.
*/
func TestSealed_AtRest(t *testing.T) {
	ctx := context.Background()
	inner := kvstore.NewMemory()
	sealed, err := kvstore.NewSealed(inner, "device-passphrase")
	require.NoError(t, err)

	require.NoError(t, sealed.Set(ctx, "currentUserId", []byte("user-1")))

	// Ciphertext at rest, not the plaintext.
	raw, err := inner.Get(ctx, "currentUserId")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "user-1")

	// A blob copied under a different key fails to open: the key name is
	// bound to the ciphertext as associated data.
	require.NoError(t, inner.Set(ctx, "cachedPosts", raw))
	_, err = sealed.Get(ctx, "cachedPosts")
	assert.True(t, apperr.IsCode(err, "STORAGE_ERROR"))

	// Tampered ciphertext fails to open.
	raw[len(raw)-1] ^= 0xff
	require.NoError(t, inner.Set(ctx, "currentUserId", raw))
	_, err = sealed.Get(ctx, "currentUserId")
	assert.True(t, apperr.IsCode(err, "STORAGE_ERROR"))
}

/*
TestSealed_EmptyPassphrase verifies the constructor rejects an empty
passphrase instead of silently storing plaintext.
*/
func TestSealed_EmptyPassphrase(t *testing.T) {
	_, err := kvstore.NewSealed(kvstore.NewMemory(), "")
	assert.Error(t, err)
}
