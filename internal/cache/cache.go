// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides short-lived key/value caching with an in-memory
// backend and an optional Redis backend shared between server instances.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-valued cache with per-entry TTLs. Implementations are safe
// for concurrent use.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value for ttl; a zero ttl uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Error is a cache error constant.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss indicates the key was not found or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)

// Stats holds hit and miss counters.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Items  int   `json:"items"`
}

// HitRate returns hits as a percentage of lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Options selects and configures a backend.
type Options struct {
	// RedisURL selects the Redis backend when set, e.g. redis://localhost:6379/0.
	RedisURL string
	// Prefix is prepended to Redis keys.
	Prefix string
	// TTL is the default entry lifetime.
	TTL time.Duration
	// CleanupInterval is how often the memory backend drops expired entries.
	CleanupInterval time.Duration
}

// New returns a Redis cache when opts.RedisURL is set and a memory cache
// otherwise.
func New(ctx context.Context, opts Options) (Cache, error) {
	if opts.RedisURL != "" {
		return NewRedisCache(ctx, opts)
	}
	return NewMemoryCache(opts), nil
}
