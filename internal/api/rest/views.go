package rest

import (
	"time"

	"github.com/aono31/jambox/internal/domain/round"
	"github.com/aono31/jambox/internal/domain/session"
)

type playerView struct {
	PeerID             string    `json:"peer_id"`
	RoleID             string    `json:"role_id,omitempty"`
	RoleName           string    `json:"role_name,omitempty"`
	Ready              bool      `json:"ready"`
	JoinedAt           time.Time `json:"joined_at"`
	CompletedRound     bool      `json:"completed_round"`
	ConfirmedNextRound bool      `json:"confirmed_next_round"`
}

type trackView struct {
	TrackID     string    `json:"track_id"`
	PlayerID    string    `json:"player_id"`
	RoundNumber int       `json:"round_number"`
	CreatedAt   time.Time `json:"created_at"`
}

type roundView struct {
	RoundID          string      `json:"round_id"`
	RoundNumber      int         `json:"round_number"`
	Status           string      `json:"status"`
	StartedAt        time.Time   `json:"started_at"`
	DurationSeconds  int         `json:"duration_seconds"`
	RemainingSeconds int         `json:"remaining_seconds"`
	Tracks           []trackView `json:"tracks"`
	CompletedPlayers []string    `json:"completed_players"`
	ConfirmedPlayers []string    `json:"confirmed_players"`
}

type sessionStateView struct {
	SessionID          string       `json:"session_id"`
	RoomID             string       `json:"room_id"`
	Status             string       `json:"status"`
	CurrentRoundNumber int          `json:"current_round_number"`
	Players            []playerView `json:"players"`
	CurrentRound       *roundView   `json:"current_round,omitempty"`
}

func sessionView(s *session.Session, rd *round.Round) sessionStateView {
	// The round's completion and confirmation sets are authoritative for the
	// per-player round flags.
	completed := map[string]bool{}
	confirmed := map[string]bool{}
	if rd != nil {
		for _, id := range rd.CompletedPlayerIDs() {
			completed[id] = true
		}
		for _, id := range rd.ConfirmedPlayerIDs() {
			confirmed[id] = true
		}
	}

	players := s.Players()
	pv := make([]playerView, len(players))
	for i, p := range players {
		v := playerView{
			PeerID:             p.PeerID,
			Ready:              p.Ready,
			JoinedAt:           p.JoinedAt,
			CompletedRound:     completed[p.PeerID],
			ConfirmedNextRound: confirmed[p.PeerID],
		}
		if p.Role != nil {
			v.RoleID = p.Role.ID
			v.RoleName = p.Role.Name
		}
		pv[i] = v
	}

	view := sessionStateView{
		SessionID:          s.ID(),
		RoomID:             s.RoomID(),
		Status:             s.Status().String(),
		CurrentRoundNumber: s.CurrentRoundNumber(),
		Players:            pv,
	}
	if rd != nil {
		view.CurrentRound = roundViewOf(rd)
	}
	return view
}

func roundViewOf(rd *round.Round) *roundView {
	tracks := rd.Tracks()
	tv := make([]trackView, len(tracks))
	for i, t := range tracks {
		tv[i] = trackView{
			TrackID:     t.TrackID,
			PlayerID:    t.PlayerID,
			RoundNumber: t.RoundNumber,
			CreatedAt:   t.CreatedAt,
		}
	}
	return &roundView{
		RoundID:          rd.ID(),
		RoundNumber:      rd.RoundNumber(),
		Status:           rd.Status().String(),
		StartedAt:        rd.StartedAt(),
		DurationSeconds:  rd.DurationSeconds(),
		RemainingSeconds: rd.RemainingSeconds(time.Now()),
		Tracks:           tv,
		CompletedPlayers: rd.CompletedPlayerIDs(),
		ConfirmedPlayers: rd.ConfirmedPlayerIDs(),
	}
}
