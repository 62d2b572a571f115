package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/aono31/jambox/internal/app/repo"
	"github.com/aono31/jambox/internal/domain/event"
	"github.com/aono31/jambox/internal/domain/jam"
	"github.com/aono31/jambox/internal/domain/round"
	"github.com/aono31/jambox/internal/domain/session"
	"github.com/aono31/jambox/internal/infra/bus"
)

// JamConfig holds the jam flow settings.
type JamConfig struct {
	RoundDurationSec int           // Duration of each round
	MaxRounds        int           // Session ends after this many rounds
	TickInterval     time.Duration // Countdown tick period
}

// JamCoordinator drives the session/round choreography: it creates rounds
// when a session starts or advances, runs the round clocks, and folds ended
// rounds back into their session.
type JamCoordinator struct {
	sessions *repo.SessionRepository
	rounds   *repo.RoundRepository
	svc      *jam.Service
	bus      *bus.Bus
	cfg      JamConfig

	mu     sync.Mutex
	clocks map[string]context.CancelFunc // keyed by sessionID#roundNumber
}

// NewJamCoordinator creates the coordinator.
func NewJamCoordinator(sessions *repo.SessionRepository, rounds *repo.RoundRepository, svc *jam.Service, b *bus.Bus, cfg JamConfig) *JamCoordinator {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &JamCoordinator{
		sessions: sessions,
		rounds:   rounds,
		svc:      svc,
		bus:      b,
		cfg:      cfg,
		clocks:   make(map[string]context.CancelFunc),
	}
}

// Register subscribes the coordinator to its event kinds.
func (c *JamCoordinator) Register() {
	c.bus.Subscribe(event.KindSessionStarted, c.handleSessionStarted)
	c.bus.Subscribe(event.KindNextRoundPrepared, c.handleNextRoundPrepared)
	c.bus.Subscribe(event.KindRoundStarted, c.handleRoundStarted)
	c.bus.Subscribe(event.KindRoundEnded, c.handleRoundEnded)
	c.bus.Subscribe(event.KindSessionEnded, c.handleSessionEnded)
}

// Close cancels every running round clock.
func (c *JamCoordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, cancel := range c.clocks {
		cancel()
		delete(c.clocks, key)
	}
}

func clockKey(sessionID string, roundNumber int) string {
	return fmt.Sprintf("%s#%d", sessionID, roundNumber)
}

func (c *JamCoordinator) handleSessionStarted(ctx context.Context, ev event.JamEvent) error {
	started, ok := ev.(event.SessionStarted)
	if !ok {
		return nil
	}
	return c.startRound(ctx, "start first round", started.SessionID)
}

func (c *JamCoordinator) handleNextRoundPrepared(ctx context.Context, ev event.JamEvent) error {
	prepared, ok := ev.(event.NextRoundPrepared)
	if !ok {
		return nil
	}
	return c.startRound(ctx, "start next round", prepared.SessionID)
}

// startRound creates the session's next round and publishes its events.
func (c *JamCoordinator) startRound(ctx context.Context, op, sessionID string) error {
	s, err := c.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return guard(op, err)
	}
	if s.Status() != session.StatusInProgress || s.CurrentRoundID() != "" {
		return nil
	}

	rd, err := c.svc.CreateRound(s, c.cfg.RoundDurationSec)
	if err != nil {
		return guard(op, err)
	}
	if err := c.rounds.Save(ctx, rd); err != nil {
		return guard(op, err)
	}
	if err := c.sessions.Save(ctx, s); err != nil {
		return guard(op, err)
	}
	drainAndPublish(ctx, c.bus, rd)
	drainAndPublish(ctx, c.bus, s)
	zlog.Info().Msgf("round started: session_id=%s round=%d duration_sec=%d", sessionID, rd.RoundNumber(), rd.DurationSeconds())
	return nil
}

// handleRoundStarted schedules the round clock.
func (c *JamCoordinator) handleRoundStarted(ctx context.Context, ev event.JamEvent) error {
	started, ok := ev.(event.RoundStarted)
	if !ok {
		return nil
	}
	c.scheduleClock(started.SessionID, started.RoundID, started.RoundNumber, started.DurationSeconds)
	return nil
}

// scheduleClock starts the countdown clock for a round. A clock already
// running for the same session and round number is replaced, never stacked,
// so a stale timer cannot end a round it no longer belongs to.
func (c *JamCoordinator) scheduleClock(sessionID, roundID string, roundNumber, durationSec int) {
	key := clockKey(sessionID, roundNumber)

	c.mu.Lock()
	if cancel, ok := c.clocks[key]; ok {
		cancel()
	}
	clockCtx, cancel := context.WithCancel(context.Background())
	c.clocks[key] = cancel
	c.mu.Unlock()

	go c.runClock(clockCtx, key, sessionID, roundID, roundNumber, durationSec)
}

func (c *JamCoordinator) cancelClock(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.clocks[key]; ok {
		cancel()
		delete(c.clocks, key)
	}
}

// runClock publishes a countdown tick every interval and ends the round when
// the duration elapses.
func (c *JamCoordinator) runClock(ctx context.Context, key, sessionID, roundID string, roundNumber, durationSec int) {
	deadline := time.Now().Add(time.Duration(durationSec) * time.Second)
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining := time.Until(deadline)
			if remaining <= 0 {
				c.cancelClock(key)
				c.expireRound(context.Background(), roundID)
				return
			}
			c.bus.Publish(ctx, event.CountdownTick{
				Stamp:            event.NewStamp(),
				SessionID:        sessionID,
				RoundID:          roundID,
				RoundNumber:      roundNumber,
				RemainingSeconds: int(remaining.Seconds()),
			})
		}
	}
}

// expireRound ends a round whose clock ran out. A round already ended by the
// completion quorum is left alone; a concurrency conflict means another
// writer got there first and is only logged.
func (c *JamCoordinator) expireRound(ctx context.Context, roundID string) {
	rd, err := c.rounds.FindByID(ctx, roundID)
	if err != nil {
		zlog.Error().Err(err).Msgf("round clock expiry lookup failed: round_id=%s", roundID)
		return
	}
	if rd.Status() == round.StatusCompleted {
		return
	}
	if err := rd.End(); err != nil {
		zlog.Debug().Msgf("round clock expiry skipped: round_id=%s err=%v", roundID, err)
		return
	}
	if err := c.rounds.Save(ctx, rd); err != nil {
		zlog.Warn().Msgf("round clock expiry lost to concurrent writer: round_id=%s err=%v", roundID, err)
		return
	}
	drainAndPublish(ctx, c.bus, rd)
	zlog.Info().Msgf("round ended by clock: session_id=%s round=%d", rd.SessionID(), rd.RoundNumber())
}

// handleRoundEnded folds the ended round back into its session and ends the
// session when the round limit is reached.
func (c *JamCoordinator) handleRoundEnded(ctx context.Context, ev event.JamEvent) error {
	ended, ok := ev.(event.RoundEnded)
	if !ok {
		return nil
	}
	const op = "handle round ended"

	rd, err := c.rounds.FindByID(ctx, ended.RoundID)
	if err != nil {
		return guard(op, err)
	}
	c.cancelClock(clockKey(ended.SessionID, rd.RoundNumber()))

	s, err := c.sessions.FindByID(ctx, ended.SessionID)
	if err != nil {
		return guard(op, err)
	}
	if s.Status() != session.StatusInProgress || s.CurrentRoundID() != ended.RoundID {
		return nil
	}

	if err := c.svc.HandleRoundEnded(s, rd); err != nil {
		return guard(op, err)
	}
	sessionEnded, err := c.svc.EndSessionIfNeeded(s, c.cfg.MaxRounds)
	if err != nil {
		return guard(op, err)
	}
	// Players may have all confirmed before the round ended. No further
	// confirmation event will fire (re-confirming is a no-op), so the
	// advance has to happen here.
	if !sessionEnded && c.svc.ShouldPrepareNextRound(s, rd) {
		if _, err := s.PrepareNextRound(); err != nil {
			return guard(op, err)
		}
	}
	if err := c.sessions.Save(ctx, s); err != nil {
		return guard(op, err)
	}
	drainAndPublish(ctx, c.bus, s)

	if sessionEnded {
		zlog.Info().Msgf("session ended after last round: session_id=%s rounds=%d", s.ID(), rd.RoundNumber())
	}
	return nil
}

// handleSessionEnded cancels every clock still running for the session.
func (c *JamCoordinator) handleSessionEnded(ctx context.Context, ev event.JamEvent) error {
	endedEv, ok := ev.(event.SessionEnded)
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := endedEv.SessionID + "#"
	for key, cancel := range c.clocks {
		if strings.HasPrefix(key, prefix) {
			cancel()
			delete(c.clocks, key)
		}
	}
	return nil
}
