// Package cache provides the ephemeral TTL cache used by the catalog
// read paths. Entries are derived data only; losing every entry changes
// latency, never answers.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// DefaultTTL applies when SetContext is called with a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// Cache stores disposable derived values under composite keys with a
// per-entry TTL. Expired entries read as absent.
type Cache interface {
	// GetContext retrieves a value. The boolean reports whether a live
	// entry was found.
	GetContext(ctx context.Context, key string) (bool, any, error)

	// SetContext stores a value with a TTL, replacing any previous entry
	// wholesale. If ttl <= 0 the cache's configured default applies.
	SetContext(ctx context.Context, key string, val any, ttl time.Duration) error

	// ExpireContext removes a key. The boolean reports whether an entry
	// was present.
	ExpireContext(ctx context.Context, key string) (bool, error)

	// CloseContext shuts down the cache.
	CloseContext(ctx context.Context) error
}

type entry struct {
	object    any
	expiresAt time.Time
}

// GetContext retrieves a typed value from the cache.
// In-memory caches return the stored value directly; byte-backed caches
// (such as Redis) are decoded from msgpack.
func GetContext[T any](ctx context.Context, c Cache, key string) (bool, T, error) {
	var zero T
	found, val, err := c.GetContext(ctx, key)
	if !found || err != nil {
		return false, zero, err
	}
	if typed, ok := val.(T); ok {
		return true, typed, nil
	}
	if data, ok := val.([]byte); ok {
		var decoded T
		if err := msgpack.Unmarshal(data, &decoded); err != nil {
			return false, zero, fmt.Errorf("decode cached value: %w", err)
		}
		return true, decoded, nil
	}
	return false, zero, fmt.Errorf("cached value has unexpected type %T", val)
}

type config struct {
	defaultTTL   time.Duration
	sweepEvery   time.Duration
	queryTimeout time.Duration
	prefix       string
}

// Option adjusts cache construction.
type Option func(*config)

func applyOptions(opts []Option) config {
	cfg := config{
		defaultTTL:   DefaultTTL,
		sweepEvery:   time.Minute,
		queryTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithDefaultTTL sets the TTL applied when Set is called without one.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *config) { c.defaultTTL = d }
}

// WithSweepInterval sets how often the in-memory cache drops expired entries.
// The sweep is an optimization; reads treat expired entries as absent regardless.
func WithSweepInterval(d time.Duration) Option {
	return func(c *config) { c.sweepEvery = d }
}

// WithQueryTimeout bounds individual operations on I/O-backed caches.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithPrefix namespaces keys on shared backends.
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}
