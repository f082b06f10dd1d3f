// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package kvstore

import (
	stdctx "context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davitran/aperture/internal/platform/apperr"
)

// Opiniated default timeouts for Redis operations.
const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// keyPrefix namespaces client-core blobs so a shared redis can also serve
// other tenants.
const keyPrefix = "aperture:cache:"

// Redis is a [Store] keeping blobs under prefixed keys on a redis instance.
// The web build uses it so several browser-facing nodes share one local
// cache; mobile builds use [File] instead.
type Redis struct {
	client *redis.Client
}

// NewRedis parses a Redis URL, validates connectivity, and returns a
// redis-backed store.
//
// # Parameters
//   - context: Context for the initial ping.
//   - redisURL: Redis connection URL.
//   - logger: Structured logger for connection events.
func NewRedis(context stdctx.Context, redisURL string, logger *slog.Logger) (*Redis, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("kvstore: invalid redis URL: %w", err)
	}

	// Pool configuration Tuning
	options.PoolSize = 10
	options.MinIdleConns = 2
	options.MaxIdleConns = 5

	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	// Validate connectivity immediately at startup.
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("kvstore: redis ping failed: %w", err)
	}

	logger.Info("redis store connected",
		slog.String("addr", options.Addr),
		slog.Int("pool_size", options.PoolSize),
	)

	return &Redis{client: client}, nil
}

// Get returns the blob stored under key, or apperr.NotFound.
func (store *Redis) Get(context stdctx.Context, key string) ([]byte, error) {
	value, err := store.client.Get(context, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("key " + key)
		}
		return nil, apperr.Storage(fmt.Sprintf("read key %s", key), err)
	}
	return value, nil
}

// Set stores the blob under key. Durable keys carry no TTL.
func (store *Redis) Set(context stdctx.Context, key string, value []byte) error {
	if err := store.client.Set(context, keyPrefix+key, value, 0).Err(); err != nil {
		return apperr.Storage(fmt.Sprintf("write key %s", key), err)
	}
	return nil
}

// Delete removes the key. Absent keys are ignored.
func (store *Redis) Delete(context stdctx.Context, key string) error {
	if err := store.client.Del(context, keyPrefix+key).Err(); err != nil {
		return apperr.Storage(fmt.Sprintf("delete key %s", key), err)
	}
	return nil
}

// Clear removes every blob under the store's prefix.
func (store *Redis) Clear(context stdctx.Context) error {
	iter := store.client.Scan(context, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(context) {
		if err := store.client.Del(context, iter.Val()).Err(); err != nil {
			return apperr.Storage("clear store", err)
		}
	}
	if err := iter.Err(); err != nil {
		return apperr.Storage("clear store", err)
	}
	return nil
}

// Close releases the underlying redis connection pool.
func (store *Redis) Close() error {
	return store.client.Close()
}
