package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/richxcame/carwash-pricing/pkg/logger"
	"go.uber.org/zap"
)

// DefaultSweepInterval is how often StartSweeper purges expired entries.
const DefaultSweepInterval = 5 * time.Minute

// MemoryCache is an in-process TTL map safe for concurrent use.
type MemoryCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	now     Clock
}

// MemoryOption configures a MemoryCache.
type MemoryOption[V any] func(*MemoryCache[V])

// WithClock overrides time.Now.
func WithClock[V any](clock Clock) MemoryOption[V] {
	return func(m *MemoryCache[V]) {
		m.now = clock
	}
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache[V any](opts ...MemoryOption[V]) *MemoryCache[V] {
	m := &MemoryCache[V]{
		entries: make(map[string]Entry[V]),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value for key. Expired entries are evicted and reported as a miss.
func (m *MemoryCache[V]) Get(_ context.Context, key string) (V, bool, error) {
	var zero V

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return zero, false, nil
	}

	if entry.Expired(m.now()) {
		m.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the key.
		if current, still := m.entries[key]; still && current.Expired(m.now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return zero, false, nil
	}

	return entry.Value, true, nil
}

// Set stores value under key until now+ttl. Non-positive TTLs are ignored.
func (m *MemoryCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	m.entries[key] = Entry[V]{Value: value, ExpiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Invalidate removes every key starting with prefix. An empty prefix clears everything.
func (m *MemoryCache[V]) Invalidate(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Sweep purges expired entries and returns how many were removed.
func (m *MemoryCache[V]) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryCache[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// StartSweeper runs Sweep every interval until ctx is done.
func (m *MemoryCache[V]) StartSweeper(ctx context.Context, name string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := m.Sweep(); removed > 0 {
					logger.Debug("cache sweep completed",
						zap.String("cache", name),
						zap.Int("removed", removed),
					)
				}
				recordSize(name, m.Len())
			}
		}
	}()
}
