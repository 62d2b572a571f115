// Package rest exposes the jam session commands and status reads over HTTP.
package rest

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	zlog "github.com/rs/zerolog/log"

	"github.com/aono31/jambox/internal/app/coordinator"
	"github.com/aono31/jambox/internal/app/repo"
	"github.com/aono31/jambox/internal/domain/role"
	"github.com/aono31/jambox/internal/domain/round"
	"github.com/aono31/jambox/internal/domain/session"
	"github.com/aono31/jambox/internal/infra/eventstore"
)

// Server holds the HTTP surface's dependencies.
type Server struct {
	sessions    *coordinator.SessionCoordinator
	roundsCoord *coordinator.RoundCoordinator
	sessionRepo *repo.SessionRepository
	roundRepo   *repo.RoundRepository
	peerHandler http.Handler
	metricsPath http.Handler
}

// NewServer creates the HTTP server surface.
func NewServer(
	sessions *coordinator.SessionCoordinator,
	roundsCoord *coordinator.RoundCoordinator,
	sessionRepo *repo.SessionRepository,
	roundRepo *repo.RoundRepository,
	peerHandler http.Handler,
	metricsHandler http.Handler,
) *Server {
	return &Server{
		sessions:    sessions,
		roundsCoord: roundsCoord,
		sessionRepo: sessionRepo,
		roundRepo:   roundRepo,
		peerHandler: peerHandler,
		metricsPath: metricsHandler,
	}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metricsPath)
	r.Handle("/ws", s.peerHandler)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Post("/players", s.addPlayer)
			r.Put("/players/{peerID}/role", s.setPlayerRole)
			r.Put("/players/{peerID}/ready", s.setPlayerReady)
			r.Post("/start", s.startSession)
			r.Post("/end", s.endSession)
			r.Post("/tracks", s.addTrack)
			r.Post("/complete", s.markPlayerCompleted)
			r.Post("/confirm", s.confirmNextRound)
		})
	})
	r.Get("/rooms/{roomID}/session", s.getCurrentRoomSession)

	return r
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID string `json:"room_id"`
		PeerID string `json:"peer_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	sess, err := s.sessions.CreateSession(r.Context(), req.RoomID, req.PeerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView(sess, nil))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionRepo.FindByID(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess, s.currentRound(r, sess)))
}

func (s *Server) getCurrentRoomSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionRepo.FindCurrentSessionInRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess, s.currentRound(r, sess)))
}

func (s *Server) currentRound(r *http.Request, sess *session.Session) *round.Round {
	if sess.CurrentRoundID() == "" {
		return nil
	}
	rd, err := s.roundRepo.FindByID(r.Context(), sess.CurrentRoundID())
	if err != nil {
		zlog.Warn().Err(err).Msgf("current round lookup failed: session_id=%s", sess.ID())
		return nil
	}
	return rd
}

func (s *Server) addPlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PeerID string `json:"peer_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.command(w, s.sessions.AddPlayer(r.Context(), chi.URLParam(r, "sessionID"), req.PeerID))
}

func (s *Server) setPlayerRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Color  string `json:"color"`
		Unique bool   `json:"unique"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	err := s.sessions.SetPlayerRole(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "peerID"), role.Role{
		ID:     req.ID,
		Name:   req.Name,
		Color:  req.Color,
		Unique: req.Unique,
	})
	s.command(w, err)
}

func (s *Server) setPlayerReady(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ready bool `json:"ready"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.command(w, s.sessions.SetPlayerReady(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "peerID"), req.Ready))
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	s.command(w, s.sessions.StartSession(r.Context(), chi.URLParam(r, "sessionID")))
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	s.command(w, s.sessions.EndSession(r.Context(), chi.URLParam(r, "sessionID")))
}

func (s *Server) addTrack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackID string `json:"track_id"`
		PeerID  string `json:"peer_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.command(w, s.roundsCoord.AddTrack(r.Context(), chi.URLParam(r, "sessionID"), req.TrackID, req.PeerID))
}

func (s *Server) markPlayerCompleted(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PeerID string `json:"peer_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.command(w, s.roundsCoord.MarkPlayerCompleted(r.Context(), chi.URLParam(r, "sessionID"), req.PeerID))
}

func (s *Server) confirmNextRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PeerID string `json:"peer_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.command(w, s.roundsCoord.ConfirmNextRound(r.Context(), chi.URLParam(r, "sessionID"), req.PeerID))
}

func (s *Server) command(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zlog.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case repo.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, eventstore.ErrConcurrency):
		status = http.StatusConflict
	case session.IsDomainError(err) || round.IsDomainError(err):
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
