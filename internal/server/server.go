package server

import (
	"net/http"

	"matchplay-engine/internal/api"
	"matchplay-engine/internal/middleware"
	"matchplay-engine/internal/service"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Server owns the HTTP surface: route registration and the translation
// between JSON requests and service calls.
type Server struct {
	tournaments *service.TournamentService
	ladders     *service.LadderService
	submissions *service.SubmissionService
	disputes    *service.DisputeService
	sweeper     *service.SweepService
	identity    *api.IdentityClient
	logger      zerolog.Logger
}

func NewServer(
	tournaments *service.TournamentService,
	ladders *service.LadderService,
	submissions *service.SubmissionService,
	disputes *service.DisputeService,
	sweeper *service.SweepService,
	identity *api.IdentityClient,
	logger zerolog.Logger,
) *Server {
	return &Server{
		tournaments: tournaments,
		ladders:     ladders,
		submissions: submissions,
		disputes:    disputes,
		sweeper:     sweeper,
		identity:    identity,
		logger:      logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID(s.logger))

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(s.identity, s.logger))

		r.Route("/tournaments", func(r chi.Router) {
			r.Post("/", s.handleCreateTournament)
			r.Get("/{id}", s.handleGetTournament)
			r.Post("/{id}/join", s.handleJoinTournament)
			r.Post("/{id}/start", s.handleStartTournament)
		})

		r.Route("/ladders", func(r chi.Router) {
			r.Post("/", s.handleCreateLadder)
			r.Get("/{id}", s.handleGetLadder)
			r.Post("/{id}/join", s.handleJoinLadder)
			r.Post("/{id}/leave", s.handleLeaveLadder)
			r.Post("/{id}/challenges", s.handleChallenge)
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/{id}", s.handleGetMatch)
			r.Post("/{id}/accept", s.handleAcceptMatch)
			r.Post("/{id}/decline", s.handleDeclineMatch)
			r.Post("/{id}/result", s.handleSubmitResult)
			r.Post("/{id}/reset", s.handleResetSubmission)
			r.Post("/{id}/resolve", s.handleResolveDispute)
		})

		r.Post("/admin/sweep", s.handleSweep)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
