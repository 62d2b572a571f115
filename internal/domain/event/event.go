// Package event defines the domain and integration events of the jam session
// context, together with the wire envelope used to relay them to peers.
package event

import "time"

// Kind identifies an event type. The string values are wire names and must
// stay stable; remote peers and other bounded contexts match on them.
type Kind string

// Jam session events.
const (
	KindSessionCreated    Kind = "jam.session-created"
	KindSessionStarted    Kind = "jam.session-started"
	KindSessionEnded      Kind = "jam.session-ended"
	KindPlayerAdded       Kind = "jam.player-added"
	KindPlayerRoleSet     Kind = "jam.player-role-set"
	KindPlayerReady       Kind = "jam.player-ready"
	KindPlayerLeftSession Kind = "jam.player-left-session"
	KindCurrentRoundSet   Kind = "jam.current-round-set"
	KindNextRoundPrepared Kind = "jam.next-round-prepared"
)

// Round events.
const (
	KindRoundStarted             Kind = "jam.round-started"
	KindRoundEnded               Kind = "jam.round-ended"
	KindRoundCompleted           Kind = "jam.round-completed"
	KindTrackCreated             Kind = "jam.track-created"
	KindTrackAddedToRound        Kind = "jam.track-added-to-round"
	KindPlayerCompletedRound     Kind = "jam.player-completed-round"
	KindPlayerConfirmedNextRound Kind = "jam.player-confirmed-next-round"
	KindCountdownTick            Kind = "jam.countdown-tick"
)

// Integration events consumed from the collaboration context.
const (
	KindPeerLeftRoom Kind = "collab.peer-left-room"
	KindRoomClosed   Kind = "collab.room-closed"
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid reports whether the kind is part of the taxonomy.
func (k Kind) IsValid() bool {
	_, ok := registry[k]
	return ok
}

// JamEvent is implemented by every event payload in this context.
type JamEvent interface {
	EventKind() Kind
	OccurredAt() time.Time
}

// Stamp carries the occurrence time shared by all payloads.
type Stamp struct {
	At time.Time `mapstructure:"at" json:"at"`
}

// OccurredAt returns the time the event occurred.
func (s Stamp) OccurredAt() time.Time {
	return s.At
}

// NewStamp creates a stamp for an event occurring now.
func NewStamp() Stamp {
	return Stamp{At: time.Now().UTC()}
}
