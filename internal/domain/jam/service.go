// Package jam provides the stateless cross-aggregate business rules of the
// jam session context. The service operates only on aggregates handed to it
// by the caller; it holds no repositories and no state of its own.
package jam

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/aono31/jambox/internal/domain/round"
	"github.com/aono31/jambox/internal/domain/session"
)

// ErrSessionNotInProgress indicates a round operation against a session that
// is not actively jamming.
var ErrSessionNotInProgress = errors.New("session must be in progress")

// Service evaluates round-end and round-advance rules across the Session and
// Round aggregates.
type Service struct{}

// NewService creates the domain service.
func NewService() *Service {
	return &Service{}
}

// HandleRoundEnded folds a finished round back into its session.
func (s *Service) HandleRoundEnded(sess *session.Session, r *round.Round) error {
	return sess.MarkRoundCompleted(r.ID())
}

// ShouldEndRound reports whether every player currently in the session has
// completed the round.
func (s *Service) ShouldEndRound(sess *session.Session, r *round.Round) bool {
	return r.AllPlayersCompleted(sess.PlayerIDs())
}

// ShouldPrepareNextRound reports whether every player currently in the
// session has confirmed the next round.
func (s *Service) ShouldPrepareNextRound(sess *session.Session, r *round.Round) bool {
	return r.AllPlayersConfirmed(sess.PlayerIDs())
}

// CreateRound creates the session's next round and stores its reference on
// the session. The session must be in progress.
//
// The round number follows the session's counter: a fresh session gets round
// one; after PrepareNextRound the counter already names the upcoming round,
// so it is used as-is.
func (s *Service) CreateRound(sess *session.Session, durationSeconds int) (*round.Round, error) {
	if sess.Status() != session.StatusInProgress {
		return nil, ErrSessionNotInProgress
	}

	number := sess.CurrentRoundNumber() + 1
	if sess.CurrentRoundID() == "" && sess.CurrentRoundNumber() >= 1 {
		number = sess.CurrentRoundNumber()
	}

	r, err := round.Create(uuid.New().String(), sess.ID(), number, durationSeconds)
	if err != nil {
		return nil, err
	}
	if err := sess.SetCurrentRound(r.ID(), number); err != nil {
		return nil, err
	}
	return r, nil
}

// IsLastRound reports whether the session has reached the configured round
// limit.
func (s *Service) IsLastRound(sess *session.Session, maxRounds int) bool {
	return sess.CurrentRoundNumber() >= maxRounds
}

// EndSessionIfNeeded ends the session when the round limit has been reached.
// Returns true when the session was ended.
func (s *Service) EndSessionIfNeeded(sess *session.Session, maxRounds int) (bool, error) {
	if !s.IsLastRound(sess, maxRounds) {
		return false, nil
	}
	if err := sess.End(); err != nil {
		return false, err
	}
	return true, nil
}
