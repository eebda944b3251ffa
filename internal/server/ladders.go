package server

import (
	"fmt"
	"net/http"

	"matchplay-engine/internal/domain"
	"matchplay-engine/internal/httputil"
	"matchplay-engine/internal/service"

	"github.com/google/uuid"
)

type createLadderRequest struct {
	Name                string `json:"name"`
	ChallengeWindowSecs int64  `json:"challenge_window_secs"`
}

func (s *Server) handleCreateLadder(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}

	var req createLadderRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	l, err := s.ladders.Create(r.Context(), callerID, service.CreateLadderInput{
		Name:                req.Name,
		ChallengeWindowSecs: req.ChallengeWindowSecs,
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, l)
}

func (s *Server) handleGetLadder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	detail, err := s.ladders.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, detail)
}

func (s *Server) handleJoinLadder(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	pos, err := s.ladders.Join(r.Context(), id, callerID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, pos)
}

func (s *Server) handleLeaveLadder(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	if err := s.ladders.Leave(r.Context(), id, callerID); err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}

type challengeRequest struct {
	ChallengeeID uuid.UUID `json:"challengee_id"`
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	var req challengeRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if req.ChallengeeID == uuid.Nil {
		httputil.Error(w, r, fmt.Errorf("challengee_id is required: %w", domain.ErrValidation))
		return
	}

	m, err := s.ladders.Challenge(r.Context(), id, callerID, req.ChallengeeID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, m)
}
