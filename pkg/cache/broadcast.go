package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"go.uber.org/zap"
)

// DefaultInvalidationSubject is the NATS subject invalidations are published on.
const DefaultInvalidationSubject = "pricing.cache.invalidate"

// InvalidationMessage is the broadcast payload.
type InvalidationMessage struct {
	Cache  string `json:"cache"`
	Prefix string `json:"prefix"`
	Origin string `json:"origin"`
}

// conn is the subset of *nats.Conn the broadcaster needs.
type conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Broadcaster relays prefix invalidations between instances over NATS.
type Broadcaster struct {
	nc      conn
	subject string
	origin  string

	mu    sync.RWMutex
	local map[string]Invalidator
	sub   *nats.Subscription
}

// NewBroadcaster creates a broadcaster with a random instance origin.
func NewBroadcaster(nc conn, subject string) *Broadcaster {
	if subject == "" {
		subject = DefaultInvalidationSubject
	}
	return &Broadcaster{
		nc:      nc,
		subject: subject,
		origin:  uuid.New().String(),
		local:   make(map[string]Invalidator),
	}
}

// Register attaches a cache so remote invalidations reach it, and returns a
// Publisher bound to that cache's name.
func (b *Broadcaster) Register(inv Invalidator) Publisher {
	b.mu.Lock()
	b.local[inv.Name()] = inv
	b.mu.Unlock()
	return &boundPublisher{b: b, cache: inv.Name()}
}

// Start subscribes to the invalidation subject.
func (b *Broadcaster) Start() error {
	sub, err := b.nc.Subscribe(b.subject, b.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.subject, err)
	}
	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()
	return nil
}

// Stop drops the subscription.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
		b.sub = nil
	}
}

func (b *Broadcaster) publish(cache, prefix string) error {
	payload, err := json.Marshal(InvalidationMessage{Cache: cache, Prefix: prefix, Origin: b.origin})
	if err != nil {
		return err
	}
	return b.nc.Publish(b.subject, payload)
}

func (b *Broadcaster) handle(msg *nats.Msg) {
	var m InvalidationMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		logger.Warn("ignoring malformed cache invalidation", zap.Error(err))
		return
	}
	b.apply(m)
}

func (b *Broadcaster) apply(m InvalidationMessage) {
	if m.Origin == b.origin {
		return
	}

	b.mu.RLock()
	inv, ok := b.local[m.Cache]
	b.mu.RUnlock()
	if !ok {
		return
	}

	inv.InvalidateLocal(context.Background(), m.Prefix)
	logger.Debug("applied remote cache invalidation",
		zap.String("cache", m.Cache),
		zap.String("prefix", m.Prefix),
		zap.String("origin", m.Origin),
	)
}

type boundPublisher struct {
	b     *Broadcaster
	cache string
}

func (p *boundPublisher) Publish(_ context.Context, prefix string) error {
	return p.b.publish(p.cache, prefix)
}
