// Package cache provides the TTL caches used for zone resolution and pricing
// results: an in-process map, a Redis tier, and a two-tier decorator that
// falls back to the map whenever Redis misbehaves.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheUnavailable marks a failure of the distributed tier.
var ErrCacheUnavailable = errors.New("cache unavailable")

// Store is a single cache tier. Implementations must check expiry on read.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Invalidate(ctx context.Context, prefix string) error
}

// Cache is what request handlers use. It never reports errors.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
	Invalidate(ctx context.Context, prefix string)
}

// Clock returns the current time. Tests swap it to move time forward.
type Clock func() time.Time

// Entry is the stored form of a cached value.
type Entry[V any] struct {
	Value     V         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry may no longer be served at now.
func (e Entry[V]) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
