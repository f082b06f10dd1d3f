// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (stores, clients) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the client core is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Aperture client core.
type Config struct {

	// Runtime settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"DEBUG"       envDefault:"false"`

	// REST backend (posts, users, profiles)
	APIBaseURL string `env:"API_BASE_URL,required"`

	// Identity provider endpoints
	IdentityBaseURL string `env:"IDENTITY_BASE_URL,required"`

	// Media upload provider endpoint
	UploadURL string `env:"UPLOAD_URL"`

	// Health endpoint probed by the connectivity monitor
	HealthURL string `env:"HEALTH_URL"`

	// Durable local storage. CacheDir selects the file-backed store;
	// RedisURL, when set, selects the redis-backed store instead (used by
	// the web build where several nodes share one local cache).
	CacheDir string `env:"CACHE_DIR" envDefault:".aperture"`
	RedisURL string `env:"REDIS_URL"`

	// SealPassphrase, when set, wraps the durable store with at-rest
	// encryption. Empty means values are stored in the clear.
	SealPassphrase string `env:"SEAL_PASSPHRASE"`

	// Timing
	FeedTimeout     time.Duration `env:"FEED_TIMEOUT"       envDefault:"5s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"    envDefault:"10s"`
	ProbeInterval   time.Duration `env:"PROBE_INTERVAL"     envDefault:"15s"`
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL"  envDefault:"5m"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the client is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the client is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
