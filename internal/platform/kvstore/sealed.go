// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package kvstore

import (
	"context"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"github.com/davitran/aperture/internal/platform/apperr"
)

// sealSalt is a fixed application-level salt for key derivation. The
// passphrase is per-device, so a fixed salt only needs to separate Aperture
// keys from other uses of the same passphrase.
var sealSalt = []byte("aperture.kvstore.v1")

// Sealed wraps another [Store] and encrypts every value at rest with
// XChaCha20-Poly1305. The key is derived once from a device passphrase via
// scrypt. Key names are bound to their ciphertext as associated data, so a
// blob copied under a different key fails to open.
type Sealed struct {
	inner Store
	key   []byte
}

// NewSealed derives the sealing key from passphrase and returns the wrapper.
func NewSealed(inner Store, passphrase string) (*Sealed, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("kvstore: empty seal passphrase")
	}
	key, err := scrypt.Key([]byte(passphrase), sealSalt, 1<<15, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("kvstore: derive seal key: %w", err)
	}
	return &Sealed{inner: inner, key: key}, nil
}

// Get decrypts and returns the blob stored under key.
func (store *Sealed) Get(context context.Context, key string) ([]byte, error) {
	sealed, err := store.inner.Get(context, key)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(store.key)
	if err != nil {
		return nil, apperr.Storage(fmt.Sprintf("unseal key %s", key), err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, apperr.Storage(fmt.Sprintf("unseal key %s", key), fmt.Errorf("ciphertext too short"))
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return nil, apperr.Storage(fmt.Sprintf("unseal key %s", key), err)
	}
	return plaintext, nil
}

// Set encrypts the blob and stores nonce||ciphertext under key.
func (store *Sealed) Set(context context.Context, key string, value []byte) error {
	aead, err := chacha20poly1305.NewX(store.key)
	if err != nil {
		return apperr.Storage(fmt.Sprintf("seal key %s", key), err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return apperr.Storage(fmt.Sprintf("seal key %s", key), err)
	}

	sealed := aead.Seal(nonce, nonce, value, []byte(key))
	return store.inner.Set(context, key, sealed)
}

// Delete removes the key from the inner store.
func (store *Sealed) Delete(context context.Context, key string) error {
	return store.inner.Delete(context, key)
}

// Clear removes every key from the inner store.
func (store *Sealed) Clear(context context.Context) error {
	return store.inner.Clear(context)
}
