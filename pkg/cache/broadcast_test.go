package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBus delivers every published message to every subscriber synchronously.
type fakeBus struct {
	mu   sync.Mutex
	subs map[string][]nats.MsgHandler
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[string][]nats.MsgHandler)}
}

func (b *fakeBus) Publish(subject string, data []byte) error {
	b.mu.Lock()
	handlers := append([]nats.MsgHandler(nil), b.subs[subject]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(&nats.Msg{Subject: subject, Data: data})
	}
	return nil
}

func (b *fakeBus) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	b.mu.Lock()
	b.subs[subject] = append(b.subs[subject], cb)
	b.mu.Unlock()
	return nil, nil
}

func TestBroadcaster_PeerClearsLocalTier(t *testing.T) {
	bus := newFakeBus()
	ctx := context.Background()

	nodeA := NewBroadcaster(bus, "")
	nodeB := NewBroadcaster(bus, "")
	require.NoError(t, nodeA.Start())
	require.NoError(t, nodeB.Start())

	cacheA := NewTiered[string]("pricing", nil, nil, nil)
	cacheA.WithPublisher(nodeA.Register(cacheA))
	cacheB := NewTiered[string]("pricing", nil, nil, nil)
	cacheB.WithPublisher(nodeB.Register(cacheB))

	cacheA.Set(ctx, "pricing:global:a:now", "quote", time.Minute)
	cacheB.Set(ctx, "pricing:global:a:now", "quote", time.Minute)

	cacheA.Invalidate(ctx, PricingPrefix)

	_, ok := cacheB.Get(ctx, "pricing:global:a:now")
	assert.False(t, ok)
}

func TestBroadcaster_IgnoresOwnAndUnknownMessages(t *testing.T) {
	b := NewBroadcaster(newFakeBus(), "custom.subject")
	ctx := context.Background()

	c := NewTiered[string]("zones", nil, nil, nil)
	b.Register(c)
	c.Set(ctx, "zone:list", "z", time.Minute)

	b.apply(InvalidationMessage{Cache: "zones", Prefix: ZonePrefix, Origin: b.origin})
	b.apply(InvalidationMessage{Cache: "other", Prefix: ZonePrefix, Origin: "peer"})

	_, ok := c.Get(ctx, "zone:list")
	assert.True(t, ok)

	b.handle(&nats.Msg{Data: []byte("not json")})
	_, ok = c.Get(ctx, "zone:list")
	assert.True(t, ok)
}
