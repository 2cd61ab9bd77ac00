// Package cache caches rendered list and get responses, mirroring the
// write-invalidation scheme of the billing application this replaces:
// any successful write to an entity drops every cached response for
// that entity. Cache failures degrade to uncached serving; they never
// fail a request.
package cache

import (
	"context"
	"time"
)

// Cache is the backend interface. Redis serves production; the memory
// backend serves tests and single-process deployments.
type Cache interface {
	// Get retrieves a value. Returns ErrCacheMiss when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL. A zero TTL uses the default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a single key.
	Delete(ctx context.Context, key string) error

	// DeleteByPrefix removes every key starting with the prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error

	// Clear removes everything.
	Clear(ctx context.Context) error
}

// Config holds common cache configuration.
type Config struct {
	// DefaultTTL applies when Set is called with a zero TTL.
	DefaultTTL time.Duration
	// Prefix namespaces every key.
	Prefix string
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		Prefix:     "logiflow:",
	}
}

// ErrCacheMiss is returned when a key is not present.
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss reports whether err is a cache miss.
func IsCacheMiss(err error) bool {
	_, ok := err.(ErrCacheMiss)
	return ok
}
