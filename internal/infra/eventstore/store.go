// Package eventstore provides an in-memory append-only event log with
// optimistic concurrency control.
package eventstore

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/aono31/jambox/internal/domain/event"
	"github.com/aono31/jambox/internal/infra/metrics"
)

// ErrConcurrency indicates a version mismatch on save. The store is left
// unchanged; the caller must reload and retry explicitly.
var ErrConcurrency = errors.New("concurrent modification detected")

// Stored is an event together with its position in the store.
type Stored struct {
	AggregateID string
	Seq         int // 0-based position within the aggregate's log
	GlobalSeq   int // 0-based position within the global log
	Event       event.JamEvent
}

// Store is the in-memory event store. Appends per aggregate are atomic:
// either every event of a save lands or none does.
type Store struct {
	mu          sync.RWMutex
	byAggregate map[string][]Stored
	global      []Stored
	collector   *metrics.Collector
}

// New creates an empty store. The collector may be nil.
func New(collector *metrics.Collector) *Store {
	return &Store{
		byAggregate: make(map[string][]Stored),
		collector:   collector,
	}
}

// SaveEvents appends events to an aggregate's log. expectedVersion must
// equal the number of events already stored for the aggregate; on mismatch
// nothing is written and ErrConcurrency is returned.
func (s *Store) SaveEvents(aggregateID string, events []event.JamEvent, expectedVersion int) error {
	if aggregateID == "" {
		return errors.New("aggregate id is required")
	}
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := len(s.byAggregate[aggregateID])
	if current != expectedVersion {
		s.collector.RecordConflict()
		return errors.Wrapf(ErrConcurrency, "aggregate %s: expected version %d, stored %d", aggregateID, expectedVersion, current)
	}

	for i, ev := range events {
		st := Stored{
			AggregateID: aggregateID,
			Seq:         current + i,
			GlobalSeq:   len(s.global),
			Event:       ev,
		}
		s.byAggregate[aggregateID] = append(s.byAggregate[aggregateID], st)
		s.global = append(s.global, st)
	}
	s.collector.RecordAppended(len(events))
	return nil
}

// EventsForAggregate returns the aggregate's events in append order.
func (s *Store) EventsForAggregate(aggregateID string) []event.JamEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.byAggregate[aggregateID]
	out := make([]event.JamEvent, len(stored))
	for i, st := range stored {
		out[i] = st.Event
	}
	return out
}

// Version returns the number of events stored for the aggregate.
func (s *Store) Version(aggregateID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byAggregate[aggregateID])
}

// EventsByKinds returns every stored event matching one of the kinds, in
// global append order. This is a linear scan over the global log and is only
// acceptable at in-memory scale; a durable engine would need an indexed read
// model instead.
func (s *Store) EventsByKinds(kinds ...event.Kind) []Stored {
	wanted := make(map[event.Kind]struct{}, len(kinds))
	for _, k := range kinds {
		wanted[k] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Stored
	for _, st := range s.global {
		if _, ok := wanted[st.Event.EventKind()]; ok {
			out = append(out, st)
		}
	}
	return out
}

// Forget drops the aggregate's per-aggregate index. Its events stay in the
// global log; the aggregate simply can no longer be loaded by ID.
func (s *Store) Forget(aggregateID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byAggregate, aggregateID)
}
