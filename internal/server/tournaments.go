package server

import (
	"fmt"
	"net/http"

	"matchplay-engine/internal/domain"
	"matchplay-engine/internal/httputil"
	"matchplay-engine/internal/middleware"
	"matchplay-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func caller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetParticipantID(r.Context())
	if !ok {
		httputil.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
	}
	return id, ok
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, domain.ErrValidation)
	}
	return id, nil
}

type createTournamentRequest struct {
	Name                string `json:"name"`
	Format              string `json:"format"`
	Visibility          string `json:"visibility"`
	ChallengeWindowSecs int64  `json:"challenge_window_secs"`
}

func (s *Server) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}

	var req createTournamentRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	t, err := s.tournaments.Create(r.Context(), callerID, service.CreateTournamentInput{
		Name:                req.Name,
		Format:              domain.TournamentFormat(req.Format),
		Visibility:          domain.Visibility(req.Visibility),
		ChallengeWindowSecs: req.ChallengeWindowSecs,
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTournament(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	detail, err := s.tournaments.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, detail)
}

func (s *Server) handleJoinTournament(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	if err := s.tournaments.Join(r.Context(), id, callerID); err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleStartTournament(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	if err := s.tournaments.Start(r.Context(), id, callerID); err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}
