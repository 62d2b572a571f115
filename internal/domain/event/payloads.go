package event

import "github.com/aono31/jambox/internal/domain/role"

// SessionCreated records the creation of a jam session in a room.
type SessionCreated struct {
	Stamp     `mapstructure:",squash"`
	SessionID string `mapstructure:"session_id" json:"session_id"`
	RoomID    string `mapstructure:"room_id" json:"room_id"`
}

func (SessionCreated) EventKind() Kind { return KindSessionCreated }

// SessionStarted records the transition of a session into active jamming.
type SessionStarted struct {
	Stamp     `mapstructure:",squash"`
	SessionID string `mapstructure:"session_id" json:"session_id"`
}

func (SessionStarted) EventKind() Kind { return KindSessionStarted }

// SessionEnded records the terminal state of a session.
type SessionEnded struct {
	Stamp     `mapstructure:",squash"`
	SessionID string `mapstructure:"session_id" json:"session_id"`
}

func (SessionEnded) EventKind() Kind { return KindSessionEnded }

// PlayerAdded records a peer joining the session roster.
type PlayerAdded struct {
	Stamp     `mapstructure:",squash"`
	SessionID string `mapstructure:"session_id" json:"session_id"`
	PeerID    string `mapstructure:"peer_id" json:"peer_id"`
}

func (PlayerAdded) EventKind() Kind { return KindPlayerAdded }

// PlayerRoleSet records a role assignment. Assigning a role always resets
// the player's readiness.
type PlayerRoleSet struct {
	Stamp     `mapstructure:",squash"`
	SessionID string    `mapstructure:"session_id" json:"session_id"`
	PeerID    string    `mapstructure:"peer_id" json:"peer_id"`
	Role      role.Role `mapstructure:"role" json:"role"`
}

func (PlayerRoleSet) EventKind() Kind { return KindPlayerRoleSet }

// PlayerReady records a readiness change.
type PlayerReady struct {
	Stamp     `mapstructure:",squash"`
	SessionID string `mapstructure:"session_id" json:"session_id"`
	PeerID    string `mapstructure:"peer_id" json:"peer_id"`
	Ready     bool   `mapstructure:"ready" json:"ready"`
}

func (PlayerReady) EventKind() Kind { return KindPlayerReady }

// PlayerLeftSession records a peer leaving (or becoming unavailable in) the
// session.
type PlayerLeftSession struct {
	Stamp     `mapstructure:",squash"`
	SessionID string `mapstructure:"session_id" json:"session_id"`
	PeerID    string `mapstructure:"peer_id" json:"peer_id"`
}

func (PlayerLeftSession) EventKind() Kind { return KindPlayerLeftSession }

// CurrentRoundSet records which round the session is currently playing.
// The round is referenced by ID only; the session never embeds it.
type CurrentRoundSet struct {
	Stamp       `mapstructure:",squash"`
	SessionID   string `mapstructure:"session_id" json:"session_id"`
	RoundID     string `mapstructure:"round_id" json:"round_id"`
	RoundNumber int    `mapstructure:"round_number" json:"round_number"`
}

func (CurrentRoundSet) EventKind() Kind { return KindCurrentRoundSet }

// NextRoundPrepared records the session advancing past a completed round.
type NextRoundPrepared struct {
	Stamp           `mapstructure:",squash"`
	SessionID       string `mapstructure:"session_id" json:"session_id"`
	NextRoundNumber int    `mapstructure:"next_round_number" json:"next_round_number"`
}

func (NextRoundPrepared) EventKind() Kind { return KindNextRoundPrepared }

// RoundStarted records the creation of a round.
type RoundStarted struct {
	Stamp           `mapstructure:",squash"`
	SessionID       string `mapstructure:"session_id" json:"session_id"`
	RoundID         string `mapstructure:"round_id" json:"round_id"`
	RoundNumber     int    `mapstructure:"round_number" json:"round_number"`
	DurationSeconds int    `mapstructure:"duration_seconds" json:"duration_seconds"`
}

func (RoundStarted) EventKind() Kind { return KindRoundStarted }

// RoundEnded records a round reaching its terminal state.
type RoundEnded struct {
	Stamp     `mapstructure:",squash"`
	SessionID string `mapstructure:"session_id" json:"session_id"`
	RoundID   string `mapstructure:"round_id" json:"round_id"`
}

func (RoundEnded) EventKind() Kind { return KindRoundEnded }

// RoundCompleted records the session acknowledging a finished round.
type RoundCompleted struct {
	Stamp     `mapstructure:",squash"`
	SessionID string `mapstructure:"session_id" json:"session_id"`
	RoundID   string `mapstructure:"round_id" json:"round_id"`
}

func (RoundCompleted) EventKind() Kind { return KindRoundCompleted }

// TrackCreated records a new track contribution.
type TrackCreated struct {
	Stamp     `mapstructure:",squash"`
	SessionID string `mapstructure:"session_id" json:"session_id"`
	RoundID   string `mapstructure:"round_id" json:"round_id"`
	TrackID   string `mapstructure:"track_id" json:"track_id"`
	PlayerID  string `mapstructure:"player_id" json:"player_id"`
}

func (TrackCreated) EventKind() Kind { return KindTrackCreated }

// TrackAddedToRound records a track being attached to a round.
type TrackAddedToRound struct {
	Stamp       `mapstructure:",squash"`
	SessionID   string `mapstructure:"session_id" json:"session_id"`
	RoundID     string `mapstructure:"round_id" json:"round_id"`
	TrackID     string `mapstructure:"track_id" json:"track_id"`
	PlayerID    string `mapstructure:"player_id" json:"player_id"`
	RoundNumber int    `mapstructure:"round_number" json:"round_number"`
}

func (TrackAddedToRound) EventKind() Kind { return KindTrackAddedToRound }

// PlayerCompletedRound records a player finishing their contribution for the
// current round.
type PlayerCompletedRound struct {
	Stamp     `mapstructure:",squash"`
	SessionID string `mapstructure:"session_id" json:"session_id"`
	RoundID   string `mapstructure:"round_id" json:"round_id"`
	PeerID    string `mapstructure:"peer_id" json:"peer_id"`
}

func (PlayerCompletedRound) EventKind() Kind { return KindPlayerCompletedRound }

// PlayerConfirmedNextRound records a player confirming they are ready for the
// next round.
type PlayerConfirmedNextRound struct {
	Stamp     `mapstructure:",squash"`
	SessionID string `mapstructure:"session_id" json:"session_id"`
	RoundID   string `mapstructure:"round_id" json:"round_id"`
	PeerID    string `mapstructure:"peer_id" json:"peer_id"`
}

func (PlayerConfirmedNextRound) EventKind() Kind { return KindPlayerConfirmedNextRound }

// CountdownTick is published once per second while a round clock is running.
// It is not an aggregate event and is never stored.
type CountdownTick struct {
	Stamp            `mapstructure:",squash"`
	SessionID        string `mapstructure:"session_id" json:"session_id"`
	RoundID          string `mapstructure:"round_id" json:"round_id"`
	RoundNumber      int    `mapstructure:"round_number" json:"round_number"`
	RemainingSeconds int    `mapstructure:"remaining_seconds" json:"remaining_seconds"`
}

func (CountdownTick) EventKind() Kind { return KindCountdownTick }

// PeerLeftRoom is an integration event from the collaboration context.
type PeerLeftRoom struct {
	Stamp  `mapstructure:",squash"`
	RoomID string `mapstructure:"room_id" json:"room_id"`
	PeerID string `mapstructure:"peer_id" json:"peer_id"`
}

func (PeerLeftRoom) EventKind() Kind { return KindPeerLeftRoom }

// RoomClosed is an integration event from the collaboration context.
type RoomClosed struct {
	Stamp  `mapstructure:",squash"`
	RoomID string `mapstructure:"room_id" json:"room_id"`
}

func (RoomClosed) EventKind() Kind { return KindRoomClosed }
