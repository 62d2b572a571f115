// Package coordinator implements the saga choreography of the jam session
// context. Each coordinator subscribes to a fixed set of event kinds; on
// receipt it loads the relevant aggregates by ID, evaluates the domain
// service's predicates, conditionally mutates, persists, and republishes the
// newly raised events. Events are never published before the write succeeds.
package coordinator

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/aono31/jambox/internal/app/repo"
	"github.com/aono31/jambox/internal/domain/event"
	"github.com/aono31/jambox/internal/domain/jam"
	"github.com/aono31/jambox/internal/domain/round"
	"github.com/aono31/jambox/internal/domain/session"
	"github.com/aono31/jambox/internal/infra/bus"
	"github.com/aono31/jambox/internal/infra/eventstore"
)

// isDomainError reports whether err belongs to the known domain taxonomy:
// rule violations, concurrency conflicts and lookup failures.
func isDomainError(err error) bool {
	return session.IsDomainError(err) ||
		round.IsDomainError(err) ||
		errors.Is(err, jam.ErrSessionNotInProgress) ||
		errors.Is(err, eventstore.ErrConcurrency) ||
		repo.IsNotFound(err)
}

// guard implements the coordinator error policy: known domain errors pass
// through unchanged; anything else is logged in full and replaced by a
// generic error carrying only the operation's label.
func guard(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	zlog.Error().Err(err).Msgf("unexpected error: op=%s", op)
	return errors.Newf("%s failed", op)
}

// drainer is satisfied by every aggregate through its embedded root.
type drainer interface {
	Uncommitted() []event.JamEvent
	ClearUncommitted()
}

// drainAndPublish republishes an aggregate's uncommitted events in raise
// order and clears the queue. Must only be called after the aggregate has
// been saved.
func drainAndPublish(ctx context.Context, b *bus.Bus, agg drainer) {
	for _, ev := range agg.Uncommitted() {
		b.Publish(ctx, ev)
	}
	agg.ClearUncommitted()
}
