// Package aggregate provides the event-sourced aggregate root base.
//
// Aggregates embed Root and route every state change through Raise: the event
// is applied to local state, queued as uncommitted, and the version counter is
// incremented. Current state is strictly a left-fold over the event history in
// append order, so replaying an identical sequence from a fresh instance
// always yields identical state.
package aggregate

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/aono31/jambox/internal/domain/event"
)

// Applier applies a single event to aggregate state. Implementations must be
// pure state transitions: no validation, no side effects.
type Applier interface {
	ApplyEvent(ev event.JamEvent) error
}

// Root is the embeddable aggregate root.
type Root struct {
	id          string
	createdAt   time.Time
	updatedAt   time.Time
	version     int
	uncommitted []event.JamEvent
}

// NewRoot creates a root with the given identity.
func NewRoot(id string) Root {
	now := time.Now().UTC()
	return Root{id: id, createdAt: now, updatedAt: now}
}

// ID returns the aggregate identity.
func (r *Root) ID() string {
	return r.id
}

// Version returns the number of events applied to the aggregate.
func (r *Root) Version() int {
	return r.version
}

// CreatedAt returns the creation time of the in-memory instance.
func (r *Root) CreatedAt() time.Time {
	return r.createdAt
}

// UpdatedAt returns the time of the last applied event.
func (r *Root) UpdatedAt() time.Time {
	return r.updatedAt
}

// Uncommitted returns a copy of the events raised since the last load or
// clear, in raise order.
func (r *Root) Uncommitted() []event.JamEvent {
	out := make([]event.JamEvent, len(r.uncommitted))
	copy(out, r.uncommitted)
	return out
}

// ClearUncommitted drops the uncommitted queue. Called by the owner after the
// events have been persisted and published.
func (r *Root) ClearUncommitted() {
	r.uncommitted = nil
}

// Raise applies ev through the applier, queues it as uncommitted and bumps
// the version. Appliers only fail on events foreign to the aggregate, so an
// error here is a programming bug surfaced to the caller.
func Raise(r *Root, a Applier, ev event.JamEvent) error {
	if err := a.ApplyEvent(ev); err != nil {
		return errors.Wrapf(err, "failed to apply %s", ev.EventKind())
	}
	r.uncommitted = append(r.uncommitted, ev)
	r.version++
	r.updatedAt = ev.OccurredAt()
	return nil
}

// Replay rebuilds state from history without queuing anything as
// uncommitted. The resulting version is fromVersion plus the number of
// events replayed.
func Replay(r *Root, a Applier, history []event.JamEvent, fromVersion int) error {
	for _, ev := range history {
		if err := a.ApplyEvent(ev); err != nil {
			return errors.Wrapf(err, "failed to replay %s at version %d", ev.EventKind(), fromVersion)
		}
		r.updatedAt = ev.OccurredAt()
	}
	r.version = fromVersion + len(history)
	return nil
}
