package server

import (
	"fmt"
	"net/http"

	"matchplay-engine/internal/domain"
	"matchplay-engine/internal/httputil"
	"matchplay-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	m, err := s.submissions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, m)
}

func (s *Server) handleAcceptMatch(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}

	if err := s.submissions.Accept(r.Context(), chi.URLParam(r, "id"), callerID); err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeclineMatch(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}

	if err := s.submissions.Decline(r.Context(), chi.URLParam(r, "id"), callerID); err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}

type resultRequest struct {
	Scores domain.ScoreLine `json:"scores"`
	Winner uuid.UUID        `json:"winner"`
}

func (s *Server) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}

	var req resultRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	m, err := s.submissions.Submit(r.Context(), chi.URLParam(r, "id"), callerID, service.SubmissionInput{
		Scores: req.Scores,
		Winner: req.Winner,
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, m)
}

type resetRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
}

func (s *Server) handleResetSubmission(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}

	var req resetRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if req.ParticipantID == uuid.Nil {
		httputil.Error(w, r, fmt.Errorf("participant_id is required: %w", domain.ErrValidation))
		return
	}

	if err := s.submissions.Reset(r.Context(), chi.URLParam(r, "id"), callerID, req.ParticipantID); err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}

type resolveRequest struct {
	Method string           `json:"method"`
	Scores domain.ScoreLine `json:"scores,omitempty"`
	Winner uuid.UUID        `json:"winner,omitempty"`
}

func (s *Server) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}

	var req resolveRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	m, err := s.disputes.Resolve(r.Context(), chi.URLParam(r, "id"), callerID, service.ResolutionInput{
		Method: domain.ResolutionMethod(req.Method),
		Scores: req.Scores,
		Winner: req.Winner,
	})
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, m)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}

	report, err := s.sweeper.Sweep(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}
