package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/richxcame/carwash-pricing/pkg/logger"
	"github.com/richxcame/carwash-pricing/pkg/resilience"
	"go.uber.org/zap"
)

// Invalidator clears a prefix in the local process only.
type Invalidator interface {
	Name() string
	InvalidateLocal(ctx context.Context, prefix string)
}

// Publisher fans an invalidated prefix out to peer instances.
type Publisher interface {
	Publish(ctx context.Context, prefix string) error
}

// Tiered tries the primary store first and falls back to the in-process map
// on any primary error. Callers never see a cache failure.
//
// A prefix whose primary invalidation failed stays pending until a retry
// succeeds. Keys under a pending prefix bypass the primary, so entries
// written before the invalidation are never served again.
type Tiered[V any] struct {
	name      string
	primary   Store[V]
	fallback  *MemoryCache[V]
	breaker   *resilience.CircuitBreaker
	publisher Publisher

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewTiered composes the two tiers. primary may be nil when Redis is disabled;
// breaker may be nil to call the primary directly.
func NewTiered[V any](name string, primary Store[V], fallback *MemoryCache[V], breaker *resilience.CircuitBreaker) *Tiered[V] {
	if fallback == nil {
		fallback = NewMemoryCache[V]()
	}
	return &Tiered[V]{
		name:     name,
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		pending:  make(map[string]time.Time),
	}
}

// WithPublisher enables cross-instance invalidation.
func (t *Tiered[V]) WithPublisher(p Publisher) *Tiered[V] {
	t.publisher = p
	return t
}

// Name identifies the cache in logs, metrics and broadcasts.
func (t *Tiered[V]) Name() string {
	return t.name
}

// Memory exposes the in-process tier (used to start its sweeper).
func (t *Tiered[V]) Memory() *MemoryCache[V] {
	return t.fallback
}

type lookup[V any] struct {
	value V
	found bool
}

// Get returns a cached value. A clean primary miss is final; only a primary
// failure consults the in-process tier.
func (t *Tiered[V]) Get(ctx context.Context, key string) (V, bool) {
	if t.primary != nil && t.primaryUsable(ctx, key) {
		res, err := t.callPrimary(ctx, func(ctx context.Context) (interface{}, error) {
			v, ok, err := t.primary.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			return lookup[V]{value: v, found: ok}, nil
		})
		if err == nil {
			l := res.(lookup[V])
			recordLookup(t.name, tierPrimary, l.found)
			return l.value, l.found
		}
		t.logUnavailable(ctx, "get", key, err)
	}

	v, ok, _ := t.fallback.Get(ctx, key)
	recordLookup(t.name, tierFallback, ok)
	return v, ok
}

// Set writes to both tiers so a later primary outage still hits locally.
func (t *Tiered[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	if t.primary != nil && t.primaryUsable(ctx, key) {
		_, err := t.callPrimary(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, t.primary.Set(ctx, key, value, ttl)
		})
		if err != nil {
			t.logUnavailable(ctx, "set", key, err)
		}
	}
	_ = t.fallback.Set(ctx, key, value, ttl)
}

// Invalidate clears prefix in the primary, then locally, then tells peers.
// Safe to call repeatedly.
func (t *Tiered[V]) Invalidate(ctx context.Context, prefix string) {
	if t.primary != nil {
		_, err := t.callPrimary(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, t.primary.Invalidate(ctx, prefix)
		})
		if err != nil {
			t.logUnavailable(ctx, "invalidate", prefix, err)
			t.deferInvalidation(prefix)
		}
	}
	_ = t.fallback.Invalidate(ctx, prefix)
	recordInvalidation(t.name, "local")

	if t.publisher != nil {
		if err := t.publisher.Publish(ctx, prefix); err != nil {
			logger.WithContext(ctx).Warn("cache invalidation broadcast failed",
				zap.String("cache", t.name),
				zap.String("prefix", prefix),
				zap.Error(err),
			)
		}
	}
}

// InvalidateLocal clears prefix in the in-process tier only. Peers call this
// when they receive a broadcast; the shared primary is already clean.
func (t *Tiered[V]) InvalidateLocal(ctx context.Context, prefix string) {
	_ = t.fallback.Invalidate(ctx, prefix)
	recordInvalidation(t.name, "remote")
}

// PendingInvalidations returns the prefixes still waiting for a successful
// primary invalidation.
func (t *Tiered[V]) PendingInvalidations() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	prefixes := make([]string, 0, len(t.pending))
	for p := range t.pending {
		prefixes = append(prefixes, p)
	}
	return prefixes
}

func (t *Tiered[V]) deferInvalidation(prefix string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[prefix]; !ok {
		t.pending[prefix] = time.Now()
	}
	pendingInvalidations.WithLabelValues(t.name).Set(float64(len(t.pending)))
}

// primaryUsable retries pending invalidations and reports whether key may be
// read from or written to the primary.
func (t *Tiered[V]) primaryUsable(ctx context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return true
	}

	for prefix, since := range t.pending {
		_, err := t.callPrimary(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, t.primary.Invalidate(ctx, prefix)
		})
		if err != nil {
			continue
		}
		delete(t.pending, prefix)
		recordInvalidation(t.name, "retry")
		logger.WithContext(ctx).Info("deferred cache invalidation applied",
			zap.String("cache", t.name),
			zap.String("prefix", prefix),
			zap.Duration("delay", time.Since(since)),
		)
	}
	pendingInvalidations.WithLabelValues(t.name).Set(float64(len(t.pending)))

	for prefix := range t.pending {
		if strings.HasPrefix(key, prefix) {
			return false
		}
	}
	return true
}

func (t *Tiered[V]) callPrimary(ctx context.Context, op resilience.Operation) (interface{}, error) {
	if t.breaker == nil {
		return op(ctx)
	}
	return t.breaker.Execute(ctx, op)
}

func (t *Tiered[V]) logUnavailable(ctx context.Context, operation, key string, err error) {
	recordUnavailable(t.name, operation)

	fields := []zap.Field{
		zap.String("cache", t.name),
		zap.String("operation", operation),
		zap.String("key", key),
		zap.Error(err),
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		logger.WithContext(ctx).Debug("cache unavailable, breaker open", fields...)
		return
	}
	logger.WithContext(ctx).Warn("cache unavailable, using in-process tier", fields...)
}
