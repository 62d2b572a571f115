package repo

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/aono31/jambox/internal/domain/event"
	"github.com/aono31/jambox/internal/domain/round"
	"github.com/aono31/jambox/internal/infra/eventstore"
)

// RoundRepository loads and saves round aggregates.
type RoundRepository struct {
	store *eventstore.Store
}

// NewRoundRepository creates a round repository over the store.
func NewRoundRepository(store *eventstore.Store) *RoundRepository {
	return &RoundRepository{store: store}
}

// FindByID rebuilds a round from its event history.
func (r *RoundRepository) FindByID(ctx context.Context, id string) (*round.Round, error) {
	history := r.store.EventsForAggregate(id)
	if len(history) == 0 {
		return nil, errors.Wrapf(ErrRoundNotFound, "id: %s", id)
	}
	return round.Load(id, history)
}

// Save appends the round's uncommitted events with optimistic concurrency.
func (r *RoundRepository) Save(ctx context.Context, rd *round.Round) error {
	pending := rd.Uncommitted()
	if len(pending) == 0 {
		return nil
	}
	expected := rd.Version() - len(pending)
	return r.store.SaveEvents(rd.ID(), pending, expected)
}

// FindBySessionID returns the session's rounds ordered by round number.
func (r *RoundRepository) FindBySessionID(ctx context.Context, sessionID string) ([]*round.Round, error) {
	var out []*round.Round
	for _, st := range r.store.EventsByKinds(event.KindRoundStarted) {
		started, ok := st.Event.(event.RoundStarted)
		if !ok || started.SessionID != sessionID {
			continue
		}
		rd, err := r.FindByID(ctx, st.AggregateID)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, rd)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RoundNumber() < out[j].RoundNumber()
	})
	return out, nil
}

// FindBySessionIDAndRoundNumber returns the session's round with the given
// number.
func (r *RoundRepository) FindBySessionIDAndRoundNumber(ctx context.Context, sessionID string, roundNumber int) (*round.Round, error) {
	rounds, err := r.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, rd := range rounds {
		if rd.RoundNumber() == roundNumber {
			return rd, nil
		}
	}
	return nil, errors.Wrapf(ErrRoundNotFound, "session %s round %d", sessionID, roundNumber)
}
