package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/richxcame/carwash-pricing/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore simulates a primary that is down.
type failingStore[V any] struct {
	calls int
}

func (f *failingStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	f.calls++
	var zero V
	return zero, false, ErrCacheUnavailable
}

func (f *failingStore[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	f.calls++
	return ErrCacheUnavailable
}

func (f *failingStore[V]) Invalidate(ctx context.Context, prefix string) error {
	f.calls++
	return ErrCacheUnavailable
}

// flakyStore is a working primary that can be taken down.
type flakyStore struct {
	data             *MemoryCache[string]
	down             bool
	invalidationDown bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{data: NewMemoryCache[string]()}
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.down {
		return "", false, ErrCacheUnavailable
	}
	return f.data.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if f.down {
		return ErrCacheUnavailable
	}
	return f.data.Set(ctx, key, value, ttl)
}

func (f *flakyStore) Invalidate(ctx context.Context, prefix string) error {
	if f.down || f.invalidationDown {
		return ErrCacheUnavailable
	}
	return f.data.Invalidate(ctx, prefix)
}

type recordingPublisher struct {
	prefixes []string
	err      error
}

func (r *recordingPublisher) Publish(ctx context.Context, prefix string) error {
	r.prefixes = append(r.prefixes, prefix)
	return r.err
}

func TestTiered_FallsBackWhenPrimaryFails(t *testing.T) {
	primary := &failingStore[string]{}
	tiered := NewTiered[string]("zones", primary, nil, nil)
	ctx := context.Background()

	tiered.Set(ctx, "zone:loc:1.0000:1.0000", "zone-a", time.Minute)

	v, ok := tiered.Get(ctx, "zone:loc:1.0000:1.0000")
	assert.True(t, ok)
	assert.Equal(t, "zone-a", v)
	assert.Equal(t, 2, primary.calls)
}

func TestTiered_RedisErrorsServedFromMemory(t *testing.T) {
	client, mock := redismock.NewClientMock()
	primary := NewRedisCache[string](client, "", 50*time.Millisecond)
	tiered := NewTiered[string]("pricing", primary, nil, nil)
	ctx := context.Background()

	mock.Regexp().ExpectSet("pricing:global:a:now", `.*`, 10*time.Minute).SetErr(errors.New("connection refused"))
	mock.ExpectGet("pricing:global:a:now").SetErr(errors.New("connection refused"))

	tiered.Set(ctx, "pricing:global:a:now", "quote", 10*time.Minute)
	v, ok := tiered.Get(ctx, "pricing:global:a:now")

	assert.True(t, ok)
	assert.Equal(t, "quote", v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTiered_PrimaryMissIsFinal(t *testing.T) {
	client, mock := redismock.NewClientMock()
	primary := NewRedisCache[string](client, "", 50*time.Millisecond)
	memory := NewMemoryCache[string]()
	tiered := NewTiered[string]("zones", primary, memory, nil)
	ctx := context.Background()

	_ = memory.Set(ctx, "zone:list", "local-only", time.Minute)
	mock.ExpectGet("zone:list").RedisNil()

	_, ok := tiered.Get(ctx, "zone:list")
	assert.False(t, ok)
}

func TestTiered_NoPrimary(t *testing.T) {
	tiered := NewTiered[int]("memory-only", nil, nil, nil)
	ctx := context.Background()

	tiered.Set(ctx, "k", 42, time.Minute)
	v, ok := tiered.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestTiered_InvalidateClearsBothTiersAndPublishes(t *testing.T) {
	client, mock := redismock.NewClientMock()
	primary := NewRedisCache[string](client, "", 50*time.Millisecond)
	pub := &recordingPublisher{}
	tiered := NewTiered[string]("pricing", primary, nil, nil).WithPublisher(pub)
	ctx := context.Background()

	_ = tiered.Memory().Set(ctx, "pricing:global:a:now", "quote", time.Minute)

	mock.ExpectScan(0, "pricing:*", scanBatchSize).SetVal([]string{"pricing:global:a:now"}, 0)
	mock.ExpectDel("pricing:global:a:now").SetVal(1)
	mock.ExpectScan(0, "pricing:*", scanBatchSize).SetVal([]string{}, 0)

	tiered.Invalidate(ctx, PricingPrefix)
	tiered.Invalidate(ctx, PricingPrefix)

	assert.Equal(t, 0, tiered.Memory().Len())
	assert.Equal(t, []string{PricingPrefix, PricingPrefix}, pub.prefixes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTiered_InvalidateSurvivesPrimaryAndPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats: connection closed")}
	tiered := NewTiered[string]("zones", &failingStore[string]{}, nil, nil).WithPublisher(pub)
	ctx := context.Background()

	_ = tiered.Memory().Set(ctx, "zone:list", "z", time.Minute)
	tiered.Invalidate(ctx, ZonePrefix)

	assert.Equal(t, 0, tiered.Memory().Len())
}

func TestTiered_FailedInvalidateNotServedAfterRecovery(t *testing.T) {
	primary := newFlakyStore()
	tiered := NewTiered[string]("pricing", primary, nil, nil)
	ctx := context.Background()

	tiered.Set(ctx, "pricing:global:a:now", "old-price", time.Minute)

	primary.down = true
	tiered.Invalidate(ctx, PricingPrefix)
	tiered.Invalidate(ctx, PricingPrefix)
	assert.Equal(t, []string{PricingPrefix}, tiered.PendingInvalidations())

	_, ok := tiered.Get(ctx, "pricing:global:a:now")
	assert.False(t, ok)

	primary.down = false
	v, ok := tiered.Get(ctx, "pricing:global:a:now")
	assert.False(t, ok, "stale %q served after recovery", v)
	assert.Empty(t, tiered.PendingInvalidations())

	_, stored, _ := primary.data.Get(ctx, "pricing:global:a:now")
	assert.False(t, stored)

	tiered.Set(ctx, "pricing:global:a:now", "new-price", time.Minute)
	v, ok = tiered.Get(ctx, "pricing:global:a:now")
	assert.True(t, ok)
	assert.Equal(t, "new-price", v)
}

func TestTiered_PendingPrefixBypassesPrimaryOnly(t *testing.T) {
	primary := newFlakyStore()
	tiered := NewTiered[string]("pricing", primary, nil, nil)
	ctx := context.Background()

	tiered.Set(ctx, "pricing:global:a:now", "old-price", time.Minute)
	tiered.Set(ctx, "zone:list", "zones", time.Minute)
	_ = tiered.Memory().Invalidate(ctx, "")

	primary.invalidationDown = true
	tiered.Invalidate(ctx, PricingPrefix)

	_, ok := tiered.Get(ctx, "pricing:global:a:now")
	assert.False(t, ok)

	// a write under the pending prefix stays local until the retry lands
	tiered.Set(ctx, "pricing:global:a:now", "new-price", time.Minute)
	v, ok := tiered.Get(ctx, "pricing:global:a:now")
	assert.True(t, ok)
	assert.Equal(t, "new-price", v)
	stale, _, _ := primary.data.Get(ctx, "pricing:global:a:now")
	assert.Equal(t, "old-price", stale)

	v, ok = tiered.Get(ctx, "zone:list")
	assert.True(t, ok)
	assert.Equal(t, "zones", v)
	assert.Equal(t, []string{PricingPrefix}, tiered.PendingInvalidations())
}

func TestTiered_InvalidateLocalLeavesPrimaryAlone(t *testing.T) {
	primary := &failingStore[string]{}
	tiered := NewTiered[string]("zones", primary, nil, nil)
	ctx := context.Background()

	_ = tiered.Memory().Set(ctx, "zone:list", "z", time.Minute)
	tiered.InvalidateLocal(ctx, ZonePrefix)

	assert.Equal(t, 0, tiered.Memory().Len())
	assert.Equal(t, 0, primary.calls)
}

func TestTiered_BreakerShortCircuitsDeadPrimary(t *testing.T) {
	primary := &failingStore[string]{}
	breaker := resilience.NewCircuitBreaker(resilience.Settings{
		Name:             "cache-test",
		FailureThreshold: 2,
		Timeout:          time.Minute,
	}, nil)
	tiered := NewTiered[string]("zones", primary, nil, breaker)
	ctx := context.Background()

	tiered.Set(ctx, "k", "v", time.Minute)
	_, _ = tiered.Get(ctx, "k")
	require.Equal(t, 2, primary.calls)

	for i := 0; i < 5; i++ {
		v, ok := tiered.Get(ctx, "k")
		assert.True(t, ok)
		assert.Equal(t, "v", v)
	}
	assert.Equal(t, 2, primary.calls, "open breaker stops calls to the primary")
}
