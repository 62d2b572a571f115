package coordinator

import (
	"context"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/aono31/jambox/internal/app/repo"
	"github.com/aono31/jambox/internal/domain/event"
	"github.com/aono31/jambox/internal/domain/role"
	"github.com/aono31/jambox/internal/domain/session"
	"github.com/aono31/jambox/internal/infra/bus"
)

// SessionCoordinator owns the session lifecycle commands and reacts to
// integration events from the collaboration context.
type SessionCoordinator struct {
	sessions *repo.SessionRepository
	bus      *bus.Bus
}

// NewSessionCoordinator creates the coordinator.
func NewSessionCoordinator(sessions *repo.SessionRepository, b *bus.Bus) *SessionCoordinator {
	return &SessionCoordinator{sessions: sessions, bus: b}
}

// Register subscribes the coordinator to its event kinds.
func (c *SessionCoordinator) Register() {
	c.bus.Subscribe(event.KindPeerLeftRoom, c.handlePeerLeftRoom)
	c.bus.Subscribe(event.KindRoomClosed, c.handleRoomClosed)
}

// CreateSession creates a new session in a room with its creator joined.
func (c *SessionCoordinator) CreateSession(ctx context.Context, roomID, creatorPeerID string) (*session.Session, error) {
	s, err := session.Create(uuid.New().String(), roomID, creatorPeerID)
	if err != nil {
		return nil, guard("create session", err)
	}
	if err := c.sessions.Save(ctx, s); err != nil {
		return nil, guard("create session", err)
	}
	drainAndPublish(ctx, c.bus, s)
	zlog.Info().Msgf("session created: session_id=%s room_id=%s", s.ID(), roomID)
	return s, nil
}

// AddPlayer adds a peer to a pending session's roster.
func (c *SessionCoordinator) AddPlayer(ctx context.Context, sessionID, peerID string) error {
	return c.mutate(ctx, "add player", sessionID, func(s *session.Session) error {
		return s.AddPlayer(peerID)
	})
}

// SetPlayerRole assigns a role to a player.
func (c *SessionCoordinator) SetPlayerRole(ctx context.Context, sessionID, peerID string, r role.Role) error {
	return c.mutate(ctx, "set player role", sessionID, func(s *session.Session) error {
		return s.SetPlayerRole(peerID, r)
	})
}

// SetPlayerReady changes a player's readiness.
func (c *SessionCoordinator) SetPlayerReady(ctx context.Context, sessionID, peerID string, ready bool) error {
	return c.mutate(ctx, "set player ready", sessionID, func(s *session.Session) error {
		return s.SetPlayerReady(peerID, ready)
	})
}

// StartSession starts a pending session once every player is ready.
func (c *SessionCoordinator) StartSession(ctx context.Context, sessionID string) error {
	return c.mutate(ctx, "start session", sessionID, func(s *session.Session) error {
		return s.Start()
	})
}

// EndSession ends a session regardless of its current state.
func (c *SessionCoordinator) EndSession(ctx context.Context, sessionID string) error {
	return c.mutate(ctx, "end session", sessionID, func(s *session.Session) error {
		return s.End()
	})
}

// mutate is the load, mutate, save, publish pipeline shared by the session
// commands.
func (c *SessionCoordinator) mutate(ctx context.Context, op, sessionID string, fn func(*session.Session) error) error {
	s, err := c.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return guard(op, err)
	}
	if err := fn(s); err != nil {
		return guard(op, err)
	}
	if err := c.sessions.Save(ctx, s); err != nil {
		return guard(op, err)
	}
	drainAndPublish(ctx, c.bus, s)
	return nil
}

// handlePeerLeftRoom removes the peer from the room's current session. An
// empty roster cascades into ending the session inside the aggregate.
func (c *SessionCoordinator) handlePeerLeftRoom(ctx context.Context, ev event.JamEvent) error {
	left, ok := ev.(event.PeerLeftRoom)
	if !ok {
		return nil
	}

	s, err := c.sessions.FindCurrentSessionInRoom(ctx, left.RoomID)
	if err != nil {
		if repo.IsNotFound(err) {
			zlog.Debug().Msgf("peer left room without session: room_id=%s peer_id=%s", left.RoomID, left.PeerID)
			return nil
		}
		return guard("handle peer left room", err)
	}

	if err := s.MarkPlayerUnavailable(left.PeerID); err != nil {
		return guard("handle peer left room", err)
	}
	if err := c.sessions.Save(ctx, s); err != nil {
		return guard("handle peer left room", err)
	}
	drainAndPublish(ctx, c.bus, s)
	zlog.Info().Msgf("player marked unavailable: session_id=%s peer_id=%s remaining=%d", s.ID(), left.PeerID, s.PlayerCount())
	return nil
}

// handleRoomClosed ends the room's current session.
func (c *SessionCoordinator) handleRoomClosed(ctx context.Context, ev event.JamEvent) error {
	closed, ok := ev.(event.RoomClosed)
	if !ok {
		return nil
	}

	s, err := c.sessions.FindCurrentSessionInRoom(ctx, closed.RoomID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil
		}
		return guard("handle room closed", err)
	}

	if err := s.End(); err != nil {
		return guard("handle room closed", err)
	}
	if err := c.sessions.Save(ctx, s); err != nil {
		return guard("handle room closed", err)
	}
	drainAndPublish(ctx, c.bus, s)
	zlog.Info().Msgf("session ended by room close: session_id=%s room_id=%s", s.ID(), closed.RoomID)
	return nil
}
