// Package bus provides the in-process jam event bus.
//
// Handlers for a single event kind run sequentially in subscription order;
// a failing handler is logged and counted but never stops its siblings and
// never surfaces to the publisher. Committed aggregate mutations therefore
// cannot be rolled back by a failing downstream side effect.
package bus

import (
	"context"
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/aono31/jambox/internal/domain/event"
	"github.com/aono31/jambox/internal/infra/metrics"
)

// Handler processes a published event.
type Handler func(ctx context.Context, ev event.JamEvent) error

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	kind event.Kind
	id   string
}

type registration struct {
	id      string
	handler Handler
}

// Bus is the in-process pub/sub transport.
type Bus struct {
	mu        sync.RWMutex
	handlers  map[event.Kind][]registration
	collector *metrics.Collector
}

// New creates an empty bus. The collector may be nil.
func New(collector *metrics.Collector) *Bus {
	return &Bus{
		handlers:  make(map[event.Kind][]registration),
		collector: collector,
	}
}

// Subscribe registers a handler for an event kind.
func (b *Bus) Subscribe(kind event.Kind, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	reg := registration{id: uuid.New().String(), handler: h}
	b.handlers[kind] = append(b.handlers[kind], reg)
	return Subscription{kind: kind, id: reg.id}
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[sub.kind]
	for i, reg := range regs {
		if reg.id == sub.id {
			b.handlers[sub.kind] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to every handler subscribed to its kind,
// sequentially in subscription order. Handler errors are logged per handler
// and never returned to the publisher.
func (b *Bus) Publish(ctx context.Context, ev event.JamEvent) {
	kind := ev.EventKind()

	b.mu.RLock()
	regs := make([]registration, len(b.handlers[kind]))
	copy(regs, b.handlers[kind])
	b.mu.RUnlock()

	b.collector.RecordPublished(kind.String())

	for _, reg := range regs {
		if err := reg.handler(ctx, ev); err != nil {
			b.collector.RecordHandlerFailure(kind.String())
			zlog.Error().Err(err).Msgf("event handler failed: kind=%s", kind)
		}
	}
}
