// Package repo provides event-sourced repositories over the event store.
// Aggregates are rebuilt by replaying their history on load; saves append
// the uncommitted events with the version the caller read, relying on the
// store's optimistic concurrency check.
package repo

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/aono31/jambox/internal/domain/event"
	"github.com/aono31/jambox/internal/domain/session"
	"github.com/aono31/jambox/internal/infra/eventstore"
)

// Lookup failures.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRoundNotFound   = errors.New("round not found")
)

// IsNotFound reports whether err is a repository lookup failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrRoundNotFound)
}

// SessionRepository loads and saves session aggregates.
type SessionRepository struct {
	store *eventstore.Store
}

// NewSessionRepository creates a session repository over the store.
func NewSessionRepository(store *eventstore.Store) *SessionRepository {
	return &SessionRepository{store: store}
}

// FindByID rebuilds a session from its event history.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*session.Session, error) {
	history := r.store.EventsForAggregate(id)
	if len(history) == 0 {
		return nil, errors.Wrapf(ErrSessionNotFound, "id: %s", id)
	}
	return session.Load(id, history)
}

// Save appends the session's uncommitted events. The expected version is the
// version the aggregate had when it was loaded; a concurrent writer in
// between surfaces as eventstore.ErrConcurrency and nothing is written.
func (r *SessionRepository) Save(ctx context.Context, s *session.Session) error {
	pending := s.Uncommitted()
	if len(pending) == 0 {
		return nil
	}
	expected := s.Version() - len(pending)
	return r.store.SaveEvents(s.ID(), pending, expected)
}

// Delete drops the session from the store's aggregate index. Its event
// history stays in the global log.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	r.store.Forget(id)
	return nil
}

// FindByRoomID returns every session ever created in the room, in creation
// order.
func (r *SessionRepository) FindByRoomID(ctx context.Context, roomID string) ([]*session.Session, error) {
	var out []*session.Session
	for _, st := range r.store.EventsByKinds(event.KindSessionCreated) {
		created, ok := st.Event.(event.SessionCreated)
		if !ok || created.RoomID != roomID {
			continue
		}
		s, err := r.FindByID(ctx, st.AggregateID)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// FindCurrentSessionInRoom returns the most recently created session in the
// room that has not ended.
func (r *SessionRepository) FindCurrentSessionInRoom(ctx context.Context, roomID string) (*session.Session, error) {
	sessions, err := r.FindByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for i := len(sessions) - 1; i >= 0; i-- {
		if sessions[i].Status() != session.StatusEnded {
			return sessions[i], nil
		}
	}
	return nil, errors.Wrapf(ErrSessionNotFound, "no active session in room: %s", roomID)
}

// FindByPlayerID returns the most recent non-ended session whose roster
// still contains the peer.
func (r *SessionRepository) FindByPlayerID(ctx context.Context, peerID string) (*session.Session, error) {
	stored := r.store.EventsByKinds(event.KindPlayerAdded)
	seen := make(map[string]struct{})
	var match *session.Session
	for _, st := range stored {
		added, ok := st.Event.(event.PlayerAdded)
		if !ok || added.PeerID != peerID {
			continue
		}
		if _, dup := seen[st.AggregateID]; dup {
			continue
		}
		seen[st.AggregateID] = struct{}{}

		s, err := r.FindByID(ctx, st.AggregateID)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if s.Status() != session.StatusEnded && s.HasPlayer(peerID) {
			match = s
		}
	}
	if match == nil {
		return nil, errors.Wrapf(ErrSessionNotFound, "no session for player: %s", peerID)
	}
	return match, nil
}
