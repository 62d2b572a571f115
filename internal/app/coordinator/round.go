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
)

// RoundCoordinator owns the per-round commands and reacts to completion and
// confirmation events with the domain service's quorum rules.
type RoundCoordinator struct {
	sessions *repo.SessionRepository
	rounds   *repo.RoundRepository
	svc      *jam.Service
	bus      *bus.Bus
}

// NewRoundCoordinator creates the coordinator.
func NewRoundCoordinator(sessions *repo.SessionRepository, rounds *repo.RoundRepository, svc *jam.Service, b *bus.Bus) *RoundCoordinator {
	return &RoundCoordinator{sessions: sessions, rounds: rounds, svc: svc, bus: b}
}

// Register subscribes the coordinator to its event kinds.
func (c *RoundCoordinator) Register() {
	c.bus.Subscribe(event.KindPlayerCompletedRound, c.handlePlayerCompleted)
	c.bus.Subscribe(event.KindPlayerConfirmedNextRound, c.handlePlayerConfirmed)
}

// currentRound loads the session's current round.
func (c *RoundCoordinator) currentRound(ctx context.Context, s *session.Session) (*round.Round, error) {
	if s.CurrentRoundID() == "" {
		return nil, errors.Wrapf(repo.ErrRoundNotFound, "session %s has no current round", s.ID())
	}
	return c.rounds.FindByID(ctx, s.CurrentRoundID())
}

// AddTrack attaches a track contribution to the session's current round and
// publishes both the track creation and its attachment.
func (c *RoundCoordinator) AddTrack(ctx context.Context, sessionID, trackID, playerID string) error {
	const op = "add track"

	s, err := c.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return guard(op, err)
	}
	rd, err := c.currentRound(ctx, s)
	if err != nil {
		return guard(op, err)
	}

	if err := rd.AddTrack(trackID, playerID); err != nil {
		return guard(op, err)
	}
	if err := c.rounds.Save(ctx, rd); err != nil {
		return guard(op, err)
	}

	// The track exists as its own fact before its attachment to the round.
	c.bus.Publish(ctx, event.TrackCreated{
		Stamp:     event.NewStamp(),
		SessionID: sessionID,
		RoundID:   rd.ID(),
		TrackID:   trackID,
		PlayerID:  playerID,
	})
	drainAndPublish(ctx, c.bus, rd)
	zlog.Info().Msgf("track added: session_id=%s round=%d track_id=%s player_id=%s", sessionID, rd.RoundNumber(), trackID, playerID)
	return nil
}

// MarkPlayerCompleted records that a player finished the current round.
func (c *RoundCoordinator) MarkPlayerCompleted(ctx context.Context, sessionID, peerID string) error {
	const op = "mark player completed"

	s, err := c.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return guard(op, err)
	}
	rd, err := c.currentRound(ctx, s)
	if err != nil {
		return guard(op, err)
	}

	if err := rd.MarkPlayerCompleted(peerID); err != nil {
		return guard(op, err)
	}
	if err := c.rounds.Save(ctx, rd); err != nil {
		return guard(op, err)
	}
	drainAndPublish(ctx, c.bus, rd)
	return nil
}

// ConfirmNextRound records that a player confirmed the next round.
func (c *RoundCoordinator) ConfirmNextRound(ctx context.Context, sessionID, peerID string) error {
	const op = "confirm next round"

	s, err := c.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return guard(op, err)
	}
	rd, err := c.currentRound(ctx, s)
	if err != nil {
		return guard(op, err)
	}

	if err := rd.ConfirmNextRound(peerID); err != nil {
		return guard(op, err)
	}
	if err := c.rounds.Save(ctx, rd); err != nil {
		return guard(op, err)
	}
	drainAndPublish(ctx, c.bus, rd)
	return nil
}

// handlePlayerCompleted ends the round once every player in the roster has
// completed it.
func (c *RoundCoordinator) handlePlayerCompleted(ctx context.Context, ev event.JamEvent) error {
	completed, ok := ev.(event.PlayerCompletedRound)
	if !ok {
		return nil
	}
	const op = "evaluate round completion"

	s, err := c.sessions.FindByID(ctx, completed.SessionID)
	if err != nil {
		return guard(op, err)
	}
	if s.Status() != session.StatusInProgress {
		return nil
	}
	rd, err := c.rounds.FindByID(ctx, completed.RoundID)
	if err != nil {
		return guard(op, err)
	}
	if rd.Status() == round.StatusCompleted {
		return nil
	}

	if !c.svc.ShouldEndRound(s, rd) {
		return nil
	}
	if err := rd.End(); err != nil {
		return guard(op, err)
	}
	if err := c.rounds.Save(ctx, rd); err != nil {
		return guard(op, err)
	}
	drainAndPublish(ctx, c.bus, rd)
	zlog.Info().Msgf("round ended by quorum: session_id=%s round=%d", s.ID(), rd.RoundNumber())
	return nil
}

// handlePlayerConfirmed advances the session once every player has confirmed
// the next round.
func (c *RoundCoordinator) handlePlayerConfirmed(ctx context.Context, ev event.JamEvent) error {
	confirmed, ok := ev.(event.PlayerConfirmedNextRound)
	if !ok {
		return nil
	}
	const op = "evaluate next round confirmation"

	s, err := c.sessions.FindByID(ctx, confirmed.SessionID)
	if err != nil {
		return guard(op, err)
	}
	if s.Status() != session.StatusRoundCompletion {
		return nil
	}
	rd, err := c.rounds.FindByID(ctx, confirmed.RoundID)
	if err != nil {
		return guard(op, err)
	}

	if !c.svc.ShouldPrepareNextRound(s, rd) {
		return nil
	}
	next, err := s.PrepareNextRound()
	if err != nil {
		return guard(op, err)
	}
	if err := c.sessions.Save(ctx, s); err != nil {
		return guard(op, err)
	}
	drainAndPublish(ctx, c.bus, s)
	zlog.Info().Msgf("next round prepared: session_id=%s round=%d", s.ID(), next)
	return nil
}
