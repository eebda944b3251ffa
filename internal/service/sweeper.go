package service

import (
	"context"
	"fmt"
	"time"

	"matchplay-engine/internal/api"
	"matchplay-engine/internal/domain"
	"matchplay-engine/internal/repository"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SweepService forces outcomes on matches whose response window elapsed.
// Tournament matches expire and their bracket slot settles empty so a
// finished sibling can walk through; ladder matches go to dispute for a
// human call. The status transition out of the open states is the
// de-duplication: a swept match never matches the overdue scan again.
type SweepService struct {
	db          *sqlx.DB
	matches     *repository.MatchRepository
	tournaments *repository.TournamentRepository
	advancer    *Advancer
	notify      *api.NotifyClient
	logger      zerolog.Logger
}

func NewSweepService(
	db *sqlx.DB,
	matches *repository.MatchRepository,
	tournaments *repository.TournamentRepository,
	advancer *Advancer,
	notify *api.NotifyClient,
	logger zerolog.Logger,
) *SweepService {
	return &SweepService{
		db:          db,
		matches:     matches,
		tournaments: tournaments,
		advancer:    advancer,
		notify:      notify,
		logger:      logger,
	}
}

type SweepReport struct {
	TournamentMatches int `json:"tournament_matches"`
	LadderMatches     int `json:"ladder_matches"`
}

func (s *SweepService) Sweep(ctx context.Context) (SweepReport, error) {
	now := time.Now().UTC()
	var report SweepReport

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.sweepTournament(gCtx, now)
		report.TournamentMatches = n
		return err
	})
	g.Go(func() error {
		n, err := s.sweepLadder(gCtx, now)
		report.LadderMatches = n
		return err
	})
	if err := g.Wait(); err != nil {
		return report, err
	}

	if report.TournamentMatches > 0 || report.LadderMatches > 0 {
		s.logger.Info().
			Int("tournament_matches", report.TournamentMatches).
			Int("ladder_matches", report.LadderMatches).
			Msg("deadline sweep forced outcomes")
	}
	return report, nil
}

func (s *SweepService) sweepTournament(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.matches.ListOverdue(ctx, domain.TournamentMatch, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range overdue {
		m := &overdue[i]
		swept, err := s.expireTournamentMatch(ctx, m)
		if err != nil {
			s.logger.Error().Err(err).Str("match_id", m.ID).Msg("failed to expire tournament match")
			continue
		}
		if !swept {
			continue
		}
		count++
		s.notify.Dispatch(ctx,
			api.Event{Type: api.EventMatchExpired, RecipientID: m.Participant1ID, Context: matchContext(m)},
			api.Event{Type: api.EventMatchExpired, RecipientID: m.Participant2ID, Context: matchContext(m)},
		)
	}
	return count, nil
}

func (s *SweepService) expireTournamentMatch(ctx context.Context, m *domain.Match) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := s.matches.Terminate(ctx, tx, m.ID,
		[]domain.MatchStatus{domain.MatchScheduled, domain.MatchAccepted},
		domain.MatchExpired, domain.ResolutionForfeit, nil)
	if err != nil {
		return false, err
	}
	if !ok {
		// A submission or an earlier sweep settled it first.
		return false, nil
	}

	t, err := s.tournaments.Get(ctx, tx, *m.TournamentID)
	if err != nil {
		return false, err
	}
	if err := s.advancer.AdvanceVoid(ctx, tx, t, *m.MatchNumber); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit expiry: %w", err)
	}

	s.logger.Warn().
		Str("match_id", m.ID).
		Str("tournament_id", m.TournamentID.String()).
		Time("deadline", m.Deadline).
		Msg("tournament match expired")
	return true, nil
}

func (s *SweepService) sweepLadder(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.matches.ListOverdue(ctx, domain.LadderMatch, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range overdue {
		m := &overdue[i]
		// No auto-forfeit on ladders: the dispute queue gets it so the
		// ladder creator decides.
		ok, err := s.matches.TransitionAny(ctx, s.db, m.ID,
			[]domain.MatchStatus{domain.MatchScheduled, domain.MatchAccepted},
			domain.MatchDisputed)
		if err != nil {
			s.logger.Error().Err(err).Str("match_id", m.ID).Msg("failed to dispute overdue ladder match")
			continue
		}
		if !ok {
			continue
		}
		count++
		s.logger.Warn().
			Str("match_id", m.ID).
			Str("ladder_id", m.LadderID.String()).
			Time("deadline", m.Deadline).
			Msg("overdue ladder match sent to dispute")
		s.notify.Dispatch(ctx,
			api.Event{Type: api.EventMatchDisputed, RecipientID: m.Participant1ID, Context: matchContext(m)},
			api.Event{Type: api.EventMatchDisputed, RecipientID: m.Participant2ID, Context: matchContext(m)},
		)
	}
	return count, nil
}

// Run drives periodic sweeps until the context ends. Started as an fx
// lifecycle goroutine.
func (s *SweepService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("deadline sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("deadline sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("deadline sweep failed")
			}
		}
	}
}
