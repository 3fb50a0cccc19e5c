package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOperationTimeout = 200 * time.Millisecond
	scanBatchSize           = 100
)

// RedisCache is the distributed tier. Values are stored as a JSON Entry so
// expiry is enforced here even if the server-side TTL drifts.
type RedisCache[V any] struct {
	client    redis.UniversalClient
	namespace string
	timeout   time.Duration
	now       Clock
}

// NewRedisCache creates a Redis-backed store. namespace is prepended to every key.
func NewRedisCache[V any](client redis.UniversalClient, namespace string, timeout time.Duration) *RedisCache[V] {
	if timeout <= 0 {
		timeout = defaultOperationTimeout
	}
	return &RedisCache[V]{
		client:    client,
		namespace: namespace,
		timeout:   timeout,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for envelope expiry.
func (r *RedisCache[V]) WithClock(clock Clock) *RedisCache[V] {
	r.now = clock
	return r
}

func (r *RedisCache[V]) key(k string) string {
	return r.namespace + k
}

// Get fetches and decodes key. A missing or expired entry is a miss, not an error.
func (r *RedisCache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("%w: get %s: %v", ErrCacheUnavailable, key, err)
	}

	var entry Entry[V]
	if err := json.Unmarshal(raw, &entry); err != nil {
		return zero, false, fmt.Errorf("%w: decode %s: %v", ErrCacheUnavailable, key, err)
	}

	if entry.Expired(r.now()) {
		// Best effort; the server TTL will catch it otherwise.
		_ = r.client.Del(ctx, r.key(key)).Err()
		return zero, false, nil
	}

	return entry.Value, true, nil
}

// Set encodes value with its expiry and stores it with a matching server TTL.
func (r *RedisCache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(Entry[V]{Value: value, ExpiresAt: r.now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrCacheUnavailable, key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrCacheUnavailable, key, err)
	}
	return nil
}

// Invalidate deletes every key under prefix using SCAN MATCH, never KEYS.
func (r *RedisCache[V]) Invalidate(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout*5)
	defer cancel()

	pattern := r.key(prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("%w: scan %s: %v", ErrCacheUnavailable, pattern, err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: delete %s: %v", ErrCacheUnavailable, pattern, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
