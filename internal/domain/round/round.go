// Package round provides the jam round aggregate.
package round

import (
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/aono31/jambox/internal/domain/aggregate"
	"github.com/aono31/jambox/internal/domain/event"
)

// Domain rule violations.
var (
	ErrEmptyRoundID    = errors.New("round id is required")
	ErrEmptySessionID  = errors.New("session id is required")
	ErrEmptyTrackID    = errors.New("track id is required")
	ErrEmptyPeerID     = errors.New("peer id is required")
	ErrBadRoundNumber  = errors.New("round number must be at least 1")
	ErrBadDuration     = errors.New("round duration must be positive")
	ErrRoundNotRunning = errors.New("round is not in progress")
	ErrRoundCompleted  = errors.New("round has already been completed")
)

var domainErrors = []error{
	ErrEmptyRoundID, ErrEmptySessionID, ErrEmptyTrackID, ErrEmptyPeerID,
	ErrBadRoundNumber, ErrBadDuration, ErrRoundNotRunning, ErrRoundCompleted,
}

// IsDomainError reports whether err is one of the round rule violations.
func IsDomainError(err error) bool {
	for _, sentinel := range domainErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// Status represents the round lifecycle state.
type Status int

const (
	StatusInProgress Status = iota // Round is being played
	StatusCompleted                // Terminal
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// TrackReference points at a track contributed during a round. The track
// content itself lives outside this context.
type TrackReference struct {
	TrackID     string
	PlayerID    string
	RoundNumber int
	CreatedAt   time.Time
}

// Round is the per-round aggregate: track contributions plus per-player
// completion and confirmation tracking.
type Round struct {
	aggregate.Root

	sessionID       string
	roundNumber     int
	status          Status
	startedAt       time.Time
	endedAt         *time.Time
	durationSeconds int
	tracks          []TrackReference
	completedIDs    map[string]struct{}
	confirmedIDs    map[string]struct{}
}

func newEmpty(id string) *Round {
	return &Round{
		Root:         aggregate.NewRoot(id),
		status:       StatusInProgress,
		completedIDs: make(map[string]struct{}),
		confirmedIDs: make(map[string]struct{}),
	}
}

// Create starts a new round for a session. Round numbers start at 1 and the
// duration must be positive; violations fail synchronously.
func Create(id, sessionID string, roundNumber, durationSeconds int) (*Round, error) {
	if id == "" {
		return nil, ErrEmptyRoundID
	}
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	if roundNumber < 1 {
		return nil, errors.Wrapf(ErrBadRoundNumber, "got %d", roundNumber)
	}
	if durationSeconds <= 0 {
		return nil, errors.Wrapf(ErrBadDuration, "got %d", durationSeconds)
	}

	r := newEmpty(id)
	ev := event.RoundStarted{
		Stamp:           event.NewStamp(),
		SessionID:       sessionID,
		RoundID:         id,
		RoundNumber:     roundNumber,
		DurationSeconds: durationSeconds,
	}
	if err := r.raise(ev); err != nil {
		return nil, err
	}
	return r, nil
}

// Load rebuilds a round from its event history.
func Load(id string, history []event.JamEvent) (*Round, error) {
	r := newEmpty(id)
	if err := aggregate.Replay(&r.Root, r, history, 0); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Round) raise(ev event.JamEvent) error {
	return aggregate.Raise(&r.Root, r, ev)
}

// SessionID returns the owning session's ID.
func (r *Round) SessionID() string {
	return r.sessionID
}

// RoundNumber returns the 1-based round number.
func (r *Round) RoundNumber() int {
	return r.roundNumber
}

// Status returns the lifecycle status.
func (r *Round) Status() Status {
	return r.status
}

// StartedAt returns the round start time.
func (r *Round) StartedAt() time.Time {
	return r.startedAt
}

// EndedAt returns the end time, or nil while in progress.
func (r *Round) EndedAt() *time.Time {
	if r.endedAt == nil {
		return nil
	}
	t := *r.endedAt
	return &t
}

// DurationSeconds returns the configured round duration.
func (r *Round) DurationSeconds() int {
	return r.durationSeconds
}

// Tracks returns copies of the track references in contribution order.
func (r *Round) Tracks() []TrackReference {
	out := make([]TrackReference, len(r.tracks))
	copy(out, r.tracks)
	return out
}

// CompletedPlayerIDs returns the peers that completed the round, sorted.
func (r *Round) CompletedPlayerIDs() []string {
	return sortedKeys(r.completedIDs)
}

// ConfirmedPlayerIDs returns the peers that confirmed the next round, sorted.
func (r *Round) ConfirmedPlayerIDs() []string {
	return sortedKeys(r.confirmedIDs)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AddTrack attaches a track contribution. Only valid while in progress.
func (r *Round) AddTrack(trackID, playerID string) error {
	if r.status != StatusInProgress {
		return ErrRoundNotRunning
	}
	if trackID == "" {
		return ErrEmptyTrackID
	}
	if playerID == "" {
		return ErrEmptyPeerID
	}
	return r.raise(event.TrackAddedToRound{
		Stamp:       event.NewStamp(),
		SessionID:   r.sessionID,
		RoundID:     r.ID(),
		TrackID:     trackID,
		PlayerID:    playerID,
		RoundNumber: r.roundNumber,
	})
}

// MarkPlayerCompleted records that a peer finished contributing. Set-insert
// semantics: marking the same peer twice is a no-op, not an error.
func (r *Round) MarkPlayerCompleted(peerID string) error {
	if r.status != StatusInProgress {
		return ErrRoundNotRunning
	}
	if peerID == "" {
		return ErrEmptyPeerID
	}
	if _, ok := r.completedIDs[peerID]; ok {
		return nil
	}
	return r.raise(event.PlayerCompletedRound{
		Stamp:     event.NewStamp(),
		SessionID: r.sessionID,
		RoundID:   r.ID(),
		PeerID:    peerID,
	})
}

// ConfirmNextRound records that a peer is ready for the next round.
// Set-insert semantics like MarkPlayerCompleted. Confirmations normally
// arrive after the round has completed, so no status guard applies.
func (r *Round) ConfirmNextRound(peerID string) error {
	if peerID == "" {
		return ErrEmptyPeerID
	}
	if _, ok := r.confirmedIDs[peerID]; ok {
		return nil
	}
	return r.raise(event.PlayerConfirmedNextRound{
		Stamp:     event.NewStamp(),
		SessionID: r.sessionID,
		RoundID:   r.ID(),
		PeerID:    peerID,
	})
}

// End moves the round to completed and records the end time.
func (r *Round) End() error {
	if r.status == StatusCompleted {
		return ErrRoundCompleted
	}
	return r.raise(event.RoundEnded{
		Stamp:     event.NewStamp(),
		SessionID: r.sessionID,
		RoundID:   r.ID(),
	})
}

// AllPlayersCompleted reports whether every peer in roster has completed the
// round. Vacuously true for an empty roster.
func (r *Round) AllPlayersCompleted(roster []string) bool {
	for _, id := range roster {
		if _, ok := r.completedIDs[id]; !ok {
			return false
		}
	}
	return true
}

// AllPlayersConfirmed reports whether every peer in roster has confirmed the
// next round. Vacuously true for an empty roster.
func (r *Round) AllPlayersConfirmed(roster []string) bool {
	for _, id := range roster {
		if _, ok := r.confirmedIDs[id]; !ok {
			return false
		}
	}
	return true
}

// RemainingSeconds returns the seconds left in the round at the given time,
// never negative. Always zero once the round is completed.
func (r *Round) RemainingSeconds(now time.Time) int {
	if r.status == StatusCompleted {
		return 0
	}
	elapsed := int(now.Sub(r.startedAt).Seconds())
	remaining := r.durationSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ApplyEvent folds a single event into round state.
func (r *Round) ApplyEvent(ev event.JamEvent) error {
	switch e := ev.(type) {
	case event.RoundStarted:
		r.sessionID = e.SessionID
		r.roundNumber = e.RoundNumber
		r.durationSeconds = e.DurationSeconds
		r.startedAt = e.OccurredAt()
		r.status = StatusInProgress
	case event.TrackAddedToRound:
		r.tracks = append(r.tracks, TrackReference{
			TrackID:     e.TrackID,
			PlayerID:    e.PlayerID,
			RoundNumber: e.RoundNumber,
			CreatedAt:   e.OccurredAt(),
		})
	case event.PlayerCompletedRound:
		r.completedIDs[e.PeerID] = struct{}{}
	case event.PlayerConfirmedNextRound:
		r.confirmedIDs[e.PeerID] = struct{}{}
	case event.RoundEnded:
		t := e.OccurredAt()
		r.endedAt = &t
		r.status = StatusCompleted
	default:
		return errors.Newf("round cannot apply event %s", ev.EventKind())
	}
	return nil
}
