package service

import (
	"context"
	"fmt"

	"matchplay-engine/internal/api"
	"matchplay-engine/internal/constants"
	"matchplay-engine/internal/domain"
	"matchplay-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// DisputeService is the administrative override for matches where the
// consensus protocol failed: the competition creator accepts one side's
// report, supplies a custom result, or voids the match outright.
type DisputeService struct {
	db          *sqlx.DB
	matches     *repository.MatchRepository
	tournaments *repository.TournamentRepository
	ladders     *repository.LadderRepository
	fanout      *ResultFanout
	advancer    *Advancer
	notify      *api.NotifyClient
	logger      zerolog.Logger
}

func NewDisputeService(
	db *sqlx.DB,
	matches *repository.MatchRepository,
	tournaments *repository.TournamentRepository,
	ladders *repository.LadderRepository,
	fanout *ResultFanout,
	advancer *Advancer,
	notify *api.NotifyClient,
	logger zerolog.Logger,
) *DisputeService {
	return &DisputeService{
		db:          db,
		matches:     matches,
		tournaments: tournaments,
		ladders:     ladders,
		fanout:      fanout,
		advancer:    advancer,
		notify:      notify,
		logger:      logger,
	}
}

type ResolutionInput struct {
	Method domain.ResolutionMethod
	// Scores and Winner are read only for the custom method.
	Scores domain.ScoreLine
	Winner uuid.UUID
}

func (s *DisputeService) Resolve(ctx context.Context, matchID string, callerID uuid.UUID, in ResolutionInput) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	m, err := s.matches.Get(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != domain.MatchDisputed {
		return nil, fmt.Errorf("match %s is %s, only disputed matches can be resolved: %w", matchID, m.Status, domain.ErrStateConflict)
	}

	creatorID, err := competitionCreator(ctx, s.db, s.tournaments, s.ladders, m)
	if err != nil {
		return nil, err
	}
	if callerID != creatorID {
		return nil, fmt.Errorf("only the competition creator may resolve disputes: %w", domain.ErrUnauthorized)
	}

	var scores domain.ScoreLine
	var winnerID uuid.UUID

	switch in.Method {
	case domain.ResolutionAcceptFirst:
		if m.Sub1Winner == nil {
			return nil, fmt.Errorf("side 1 never submitted: %w", domain.ErrStateConflict)
		}
		scores, winnerID = m.Sub1Scores, *m.Sub1Winner
	case domain.ResolutionAcceptSecond:
		if m.Sub2Winner == nil {
			return nil, fmt.Errorf("side 2 never submitted: %w", domain.ErrStateConflict)
		}
		scores, winnerID = m.Sub2Scores, *m.Sub2Winner
	case domain.ResolutionCustom:
		if len(in.Scores) == 0 {
			return nil, fmt.Errorf("custom resolution requires scores: %w", domain.ErrValidation)
		}
		if !m.HasParticipant(in.Winner) {
			return nil, fmt.Errorf("custom winner is not a match participant: %w", domain.ErrValidation)
		}
		scores, winnerID = in.Scores, in.Winner
	case domain.ResolutionNoContest:
		return s.void(ctx, m, callerID)
	default:
		return nil, fmt.Errorf("unknown resolution method %q: %w", in.Method, domain.ErrValidation)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := s.matches.Complete(ctx, tx, m.ID, domain.MatchDisputed, scores, winnerID, in.Method, &callerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("match %s left the disputed state: %w", matchID, domain.ErrStateConflict)
	}
	if err := s.fanout.Apply(ctx, tx, m, winnerID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit resolution: %w", err)
	}

	s.logger.Info().
		Str("match_id", m.ID).
		Str("method", string(in.Method)).
		Str("resolver_id", callerID.String()).
		Str("winner_id", winnerID.String()).
		Msg("dispute resolved")

	s.notify.Dispatch(ctx,
		api.Event{Type: api.EventDisputeResolved, RecipientID: m.Participant1ID, Context: matchContext(m)},
		api.Event{Type: api.EventDisputeResolved, RecipientID: m.Participant2ID, Context: matchContext(m)},
	)

	return s.matches.Get(ctx, s.db, matchID)
}

// void closes the match as no contest. Neither participant advances; in a
// tournament the match's slot settles empty, letting the sibling's winner
// walk through when it resolves.
func (s *DisputeService) void(ctx context.Context, m *domain.Match, callerID uuid.UUID) (*domain.Match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := s.matches.Terminate(ctx, tx, m.ID,
		[]domain.MatchStatus{domain.MatchDisputed}, domain.MatchNoContest,
		domain.ResolutionNoContest, &callerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("match %s left the disputed state: %w", m.ID, domain.ErrStateConflict)
	}

	if m.Kind == domain.TournamentMatch {
		t, err := s.tournaments.Get(ctx, tx, *m.TournamentID)
		if err != nil {
			return nil, err
		}
		if err := s.advancer.AdvanceVoid(ctx, tx, t, *m.MatchNumber); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit no contest: %w", err)
	}

	s.logger.Info().
		Str("match_id", m.ID).
		Str("resolver_id", callerID.String()).
		Msg("match voided as no contest")

	s.notify.Dispatch(ctx,
		api.Event{Type: api.EventDisputeResolved, RecipientID: m.Participant1ID, Context: matchContext(m)},
		api.Event{Type: api.EventDisputeResolved, RecipientID: m.Participant2ID, Context: matchContext(m)},
	)

	return s.matches.Get(ctx, s.db, m.ID)
}
