package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Handler processes one event payload. Delivery is at-least-once, so handlers
// must be idempotent. A handler's panic is recovered and logged, never
// propagated to the publisher.
type Handler func(ctx context.Context, payload interface{})

// Broker is the pub/sub seam injected into each component at construction.
type Broker interface {
	Subscribe(topic Topic, h Handler)
	Publish(ctx context.Context, topic Topic, payload interface{})
}

// InProc is a synchronous in-process Broker. Publish invokes every subscriber
// before returning; callers rely only on "published after commit", not on any
// particular delivery latency.
type InProc struct {
	mu   sync.RWMutex
	subs map[Topic][]Handler
}

func NewInProc() *InProc {
	return &InProc{subs: make(map[Topic][]Handler)}
}

func (b *InProc) Subscribe(topic Topic, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
}

func (b *InProc) Publish(ctx context.Context, topic Topic, payload interface{}) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.subs[topic]))
	copy(handlers, b.subs[topic])
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(ctx, topic, h, payload)
	}
}

func (b *InProc) dispatch(ctx context.Context, topic Topic, h Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("topic", string(topic)).Interface("panic", r).Msg("Event handler panicked")
		}
	}()
	h(ctx, payload)
}
