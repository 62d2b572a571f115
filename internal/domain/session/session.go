package session

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/aono31/jambox/internal/domain/aggregate"
	"github.com/aono31/jambox/internal/domain/event"
	"github.com/aono31/jambox/internal/domain/role"
)

// Domain rule violations. Aggregate methods never swallow these; they always
// surface to the immediate caller.
var (
	ErrEmptySessionID       = errors.New("session id is required")
	ErrEmptyRoomID          = errors.New("room id is required")
	ErrEmptyPeerID          = errors.New("peer id is required")
	ErrJoinClosed           = errors.New("players can only join a pending session")
	ErrRolesLocked          = errors.New("roles can only be assigned while the session is pending")
	ErrPlayerNotFound       = errors.New("player not found in session")
	ErrRoleTaken            = errors.New("role already taken by another player")
	ErrReadyWithoutRole     = errors.New("player must have a role before becoming ready")
	ErrNotPending           = errors.New("session can only be started from pending state")
	ErrNoPlayers            = errors.New("session cannot start without players")
	ErrPlayersNotReady      = errors.New("all players must be ready before starting")
	ErrNotInProgress        = errors.New("session is not in progress")
	ErrNotInRoundCompletion = errors.New("session is not in round completion")
	ErrAlreadyEnded         = errors.New("session has already ended")
	ErrEmptyRoundID         = errors.New("round id is required")
	ErrBadRoundNumber       = errors.New("round number must be at least 1")
)

var domainErrors = []error{
	ErrEmptySessionID, ErrEmptyRoomID, ErrEmptyPeerID,
	ErrJoinClosed, ErrRolesLocked, ErrPlayerNotFound, ErrRoleTaken,
	ErrReadyWithoutRole, ErrNotPending, ErrNoPlayers, ErrPlayersNotReady,
	ErrNotInProgress, ErrNotInRoundCompletion, ErrAlreadyEnded,
	ErrEmptyRoundID, ErrBadRoundNumber,
}

// IsDomainError reports whether err is one of the session rule violations.
func IsDomainError(err error) bool {
	for _, sentinel := range domainErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// Session is the jam session aggregate root. All mutation goes through
// raise/apply; the struct holds no locks and is owned by its repository
// between load and save.
type Session struct {
	aggregate.Root

	roomID             string
	status             Status
	players            map[string]*Player
	currentRoundID     string // ID reference only; never the Round itself
	currentRoundNumber int
	completedRoundIDs  map[string]struct{}
}

func newEmpty(id string) *Session {
	return &Session{
		Root:              aggregate.NewRoot(id),
		status:            StatusPending,
		players:           make(map[string]*Player),
		completedRoundIDs: make(map[string]struct{}),
	}
}

// Create creates a new session in a room with its creator as the first
// player. Raises SessionCreated followed by PlayerAdded.
func Create(id, roomID, creatorPeerID string) (*Session, error) {
	if id == "" {
		return nil, ErrEmptySessionID
	}
	if roomID == "" {
		return nil, ErrEmptyRoomID
	}
	if creatorPeerID == "" {
		return nil, ErrEmptyPeerID
	}

	s := newEmpty(id)
	if err := s.raise(event.SessionCreated{Stamp: event.NewStamp(), SessionID: id, RoomID: roomID}); err != nil {
		return nil, err
	}
	if err := s.raise(event.PlayerAdded{Stamp: event.NewStamp(), SessionID: id, PeerID: creatorPeerID}); err != nil {
		return nil, err
	}
	return s, nil
}

// Load rebuilds a session from its event history.
func Load(id string, history []event.JamEvent) (*Session, error) {
	s := newEmpty(id)
	if err := aggregate.Replay(&s.Root, s, history, 0); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) raise(ev event.JamEvent) error {
	return aggregate.Raise(&s.Root, s, ev)
}

// RoomID returns the room the session belongs to.
func (s *Session) RoomID() string {
	return s.roomID
}

// Status returns the lifecycle status.
func (s *Session) Status() Status {
	return s.status
}

// CurrentRoundID returns the ID of the round being played, or "" if none.
func (s *Session) CurrentRoundID() string {
	return s.currentRoundID
}

// CurrentRoundNumber returns the number of the current (or last prepared)
// round. Zero before the first round is created.
func (s *Session) CurrentRoundNumber() int {
	return s.currentRoundNumber
}

// HasPlayer reports whether the peer is part of the roster.
func (s *Session) HasPlayer(peerID string) bool {
	_, ok := s.players[peerID]
	return ok
}

// Player returns a copy of the peer's state.
func (s *Session) Player(peerID string) (Player, bool) {
	p, ok := s.players[peerID]
	if !ok {
		return Player{}, false
	}
	return p.clone(), true
}

// Players returns copies of all players ordered by join time.
func (s *Session) Players() []Player {
	out := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].PeerID < out[j].PeerID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// PlayerIDs returns the roster's peer IDs ordered by join time.
func (s *Session) PlayerIDs() []string {
	players := s.Players()
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.PeerID
	}
	return ids
}

// PlayerCount returns the roster size.
func (s *Session) PlayerCount() int {
	return len(s.players)
}

// CompletedRoundIDs returns the IDs of rounds the session has acknowledged
// as completed.
func (s *Session) CompletedRoundIDs() []string {
	ids := make([]string, 0, len(s.completedRoundIDs))
	for id := range s.completedRoundIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AddPlayer adds a peer to the roster. Only valid while pending. Adding a
// peer that is already present is a no-op and raises nothing.
func (s *Session) AddPlayer(peerID string) error {
	if peerID == "" {
		return ErrEmptyPeerID
	}
	if s.status != StatusPending {
		return ErrJoinClosed
	}
	if _, ok := s.players[peerID]; ok {
		return nil
	}
	return s.raise(event.PlayerAdded{Stamp: event.NewStamp(), SessionID: s.ID(), PeerID: peerID})
}

// SetPlayerRole assigns a role to a player. Only valid while pending. A
// unique role held by a different player cannot be taken. Assigning a role
// always resets the player's readiness.
func (s *Session) SetPlayerRole(peerID string, r role.Role) error {
	if s.status != StatusPending {
		return ErrRolesLocked
	}
	if _, ok := s.players[peerID]; !ok {
		return errors.Wrapf(ErrPlayerNotFound, "peer %s", peerID)
	}
	if r.Unique {
		for id, p := range s.players {
			if id != peerID && p.Role != nil && p.Role.Equal(r) {
				return errors.Wrapf(ErrRoleTaken, "role %s", r.ID)
			}
		}
	}
	return s.raise(event.PlayerRoleSet{Stamp: event.NewStamp(), SessionID: s.ID(), PeerID: peerID, Role: r})
}

// SetPlayerReady changes a player's readiness. A player cannot become ready
// without a role.
func (s *Session) SetPlayerReady(peerID string, ready bool) error {
	p, ok := s.players[peerID]
	if !ok {
		return errors.Wrapf(ErrPlayerNotFound, "peer %s", peerID)
	}
	if ready && !p.HasRole() {
		return errors.Wrapf(ErrReadyWithoutRole, "peer %s", peerID)
	}
	return s.raise(event.PlayerReady{Stamp: event.NewStamp(), SessionID: s.ID(), PeerID: peerID, Ready: ready})
}

// Start transitions the session from pending to in progress. Requires at
// least one player and every player ready.
func (s *Session) Start() error {
	if s.status != StatusPending {
		return ErrNotPending
	}
	if len(s.players) == 0 {
		return ErrNoPlayers
	}
	for _, p := range s.players {
		if !p.Ready {
			return errors.Wrapf(ErrPlayersNotReady, "peer %s is not ready", p.PeerID)
		}
	}
	return s.raise(event.SessionStarted{Stamp: event.NewStamp(), SessionID: s.ID()})
}

// SetCurrentRound stores the ID reference of the round being played. Only
// valid while in progress.
func (s *Session) SetCurrentRound(roundID string, roundNumber int) error {
	if s.status != StatusInProgress {
		return ErrNotInProgress
	}
	if roundID == "" {
		return ErrEmptyRoundID
	}
	if roundNumber < 1 {
		return ErrBadRoundNumber
	}
	return s.raise(event.CurrentRoundSet{Stamp: event.NewStamp(), SessionID: s.ID(), RoundID: roundID, RoundNumber: roundNumber})
}

// MarkRoundCompleted acknowledges a finished round and moves the session to
// round completion, where it waits for every player's confirmation.
func (s *Session) MarkRoundCompleted(roundID string) error {
	if s.status != StatusInProgress {
		return ErrNotInProgress
	}
	if roundID == "" {
		return ErrEmptyRoundID
	}
	return s.raise(event.RoundCompleted{Stamp: event.NewStamp(), SessionID: s.ID(), RoundID: roundID})
}

// PrepareNextRound advances past a completed round: increments the round
// number, clears the current round reference and returns to in progress.
// Returns the new round number.
func (s *Session) PrepareNextRound() (int, error) {
	if s.status != StatusRoundCompletion {
		return 0, ErrNotInRoundCompletion
	}
	next := s.currentRoundNumber + 1
	if err := s.raise(event.NextRoundPrepared{Stamp: event.NewStamp(), SessionID: s.ID(), NextRoundNumber: next}); err != nil {
		return 0, err
	}
	return next, nil
}

// End moves the session to its terminal state. Reachable from any state
// except ended itself.
func (s *Session) End() error {
	if s.status == StatusEnded {
		return ErrAlreadyEnded
	}
	return s.raise(event.SessionEnded{Stamp: event.NewStamp(), SessionID: s.ID()})
}

// MarkPlayerUnavailable removes a peer from the roster. Removing the last
// player cascades into ending the session. Unknown peers and already-ended
// sessions are no-ops.
func (s *Session) MarkPlayerUnavailable(peerID string) error {
	if s.status == StatusEnded {
		return nil
	}
	if _, ok := s.players[peerID]; !ok {
		return nil
	}
	if err := s.raise(event.PlayerLeftSession{Stamp: event.NewStamp(), SessionID: s.ID(), PeerID: peerID}); err != nil {
		return err
	}
	if len(s.players) == 0 {
		return s.raise(event.SessionEnded{Stamp: event.NewStamp(), SessionID: s.ID()})
	}
	return nil
}

// ApplyEvent folds a single event into session state. Pure state
// transition; all validation happens before raising.
func (s *Session) ApplyEvent(ev event.JamEvent) error {
	switch e := ev.(type) {
	case event.SessionCreated:
		s.roomID = e.RoomID
		s.status = StatusPending
	case event.PlayerAdded:
		s.players[e.PeerID] = &Player{PeerID: e.PeerID, JoinedAt: e.OccurredAt()}
	case event.PlayerRoleSet:
		if p, ok := s.players[e.PeerID]; ok {
			r := e.Role
			p.Role = &r
			p.Ready = false
		}
	case event.PlayerReady:
		if p, ok := s.players[e.PeerID]; ok {
			p.Ready = e.Ready
		}
	case event.PlayerLeftSession:
		delete(s.players, e.PeerID)
	case event.SessionStarted:
		s.status = StatusInProgress
	case event.CurrentRoundSet:
		s.currentRoundID = e.RoundID
		s.currentRoundNumber = e.RoundNumber
	case event.RoundCompleted:
		s.completedRoundIDs[e.RoundID] = struct{}{}
		s.status = StatusRoundCompletion
	case event.NextRoundPrepared:
		s.currentRoundNumber = e.NextRoundNumber
		s.currentRoundID = ""
		s.status = StatusInProgress
	case event.SessionEnded:
		s.status = StatusEnded
	default:
		return errors.Newf("session cannot apply event %s", ev.EventKind())
	}
	return nil
}
