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

// SubmissionService runs the dual-submission consensus protocol: each
// participant reports the result once; the match completes when both
// reports match exactly and goes to dispute when they do not.
type SubmissionService struct {
	db          *sqlx.DB
	matches     *repository.MatchRepository
	tournaments *repository.TournamentRepository
	ladders     *repository.LadderRepository
	fanout      *ResultFanout
	notify      *api.NotifyClient
	logger      zerolog.Logger
}

func NewSubmissionService(
	db *sqlx.DB,
	matches *repository.MatchRepository,
	tournaments *repository.TournamentRepository,
	ladders *repository.LadderRepository,
	fanout *ResultFanout,
	notify *api.NotifyClient,
	logger zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		db:          db,
		matches:     matches,
		tournaments: tournaments,
		ladders:     ladders,
		fanout:      fanout,
		notify:      notify,
		logger:      logger,
	}
}

func (s *SubmissionService) Get(ctx context.Context, matchID string) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	return s.matches.Get(ctx, s.db, matchID)
}

// Accept lets the challenged party open a ladder match for play.
func (s *SubmissionService) Accept(ctx context.Context, matchID string, callerID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	m, err := s.matches.Get(ctx, s.db, matchID)
	if err != nil {
		return err
	}
	if m.Kind != domain.LadderMatch {
		return fmt.Errorf("tournament matches need no acceptance: %w", domain.ErrStateConflict)
	}
	if callerID != m.Participant2ID {
		return fmt.Errorf("only the challenged party may accept: %w", domain.ErrUnauthorized)
	}

	ok, err := s.matches.Transition(ctx, s.db, matchID, domain.MatchScheduled, domain.MatchAccepted)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("match %s is not awaiting acceptance: %w", matchID, domain.ErrStateConflict)
	}

	s.notify.Dispatch(ctx, api.Event{
		Type:        api.EventMatchCreated,
		RecipientID: m.Participant1ID,
		Context:     matchContext(m),
	})
	return nil
}

// Decline terminally refuses a ladder challenge.
func (s *SubmissionService) Decline(ctx context.Context, matchID string, callerID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	m, err := s.matches.Get(ctx, s.db, matchID)
	if err != nil {
		return err
	}
	if m.Kind != domain.LadderMatch {
		return fmt.Errorf("tournament matches cannot be declined: %w", domain.ErrStateConflict)
	}
	if callerID != m.Participant2ID {
		return fmt.Errorf("only the challenged party may decline: %w", domain.ErrUnauthorized)
	}

	ok, err := s.matches.Transition(ctx, s.db, matchID, domain.MatchScheduled, domain.MatchDeclined)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("match %s is not awaiting acceptance: %w", matchID, domain.ErrStateConflict)
	}
	return nil
}

type SubmissionInput struct {
	Scores domain.ScoreLine
	Winner uuid.UUID
}

// Submit records one participant's result. When the second report lands,
// consensus either completes the match and fans the result downstream or
// parks it in dispute.
func (s *SubmissionService) Submit(ctx context.Context, matchID string, callerID uuid.UUID, in SubmissionInput) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if len(in.Scores) == 0 {
		return nil, fmt.Errorf("score sequence is required: %w", domain.ErrValidation)
	}
	if len(in.Scores) > constants.MaxSetScores {
		return nil, fmt.Errorf("score sequence exceeds %d sets: %w", constants.MaxSetScores, domain.ErrValidation)
	}

	m, err := s.matches.Get(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}

	side := m.Side(callerID)
	if side == 0 {
		return nil, fmt.Errorf("participant %s is not in this match: %w", callerID, domain.ErrUnauthorized)
	}
	if !m.HasParticipant(in.Winner) {
		return nil, fmt.Errorf("declared winner is not a match participant: %w", domain.ErrValidation)
	}
	if m.Status != domain.MatchAccepted {
		return nil, fmt.Errorf("match %s is %s, not open for submission: %w", matchID, m.Status, domain.ErrStateConflict)
	}

	ok, err := s.matches.RecordSubmission(ctx, s.db, matchID, side, in.Scores, in.Winner)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The guard failed: either this side already reported, or the
		// match left the open state underneath us.
		current, err := s.matches.Get(ctx, s.db, matchID)
		if err != nil {
			return nil, err
		}
		if _, winner := current.Submission(side); winner != nil {
			return nil, fmt.Errorf("participant %s: %w", callerID, domain.ErrDuplicateSubmission)
		}
		return nil, fmt.Errorf("match %s is %s, not open for submission: %w", matchID, current.Status, domain.ErrStateConflict)
	}

	s.logger.Info().
		Str("match_id", matchID).
		Str("participant_id", callerID.String()).
		Int("side", side).
		Msg("result submitted")

	m, err = s.matches.Get(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}
	if !m.BothSubmitted() {
		return m, nil
	}

	if m.SubmissionsAgree() {
		if err := s.complete(ctx, m); err != nil {
			return nil, err
		}
	} else {
		if err := s.dispute(ctx, m); err != nil {
			return nil, err
		}
	}

	return s.matches.Get(ctx, s.db, matchID)
}

func (s *SubmissionService) complete(ctx context.Context, m *domain.Match) error {
	winnerID := *m.Sub1Winner

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := s.matches.Complete(ctx, tx, m.ID, domain.MatchAccepted, m.Sub1Scores, winnerID, domain.ResolutionConsensus, nil)
	if err != nil {
		return err
	}
	if !ok {
		// A concurrent writer (second submitter, sweeper) settled the
		// match first; their outcome stands.
		return nil
	}
	if err := s.fanout.Apply(ctx, tx, m, winnerID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}

	s.logger.Info().
		Str("match_id", m.ID).
		Str("winner_id", winnerID.String()).
		Msg("match completed by consensus")

	s.notify.Dispatch(ctx,
		api.Event{Type: api.EventMatchCompleted, RecipientID: m.Participant1ID, Context: matchContext(m)},
		api.Event{Type: api.EventMatchCompleted, RecipientID: m.Participant2ID, Context: matchContext(m)},
	)
	return nil
}

func (s *SubmissionService) dispute(ctx context.Context, m *domain.Match) error {
	ok, err := s.matches.Transition(ctx, s.db, m.ID, domain.MatchAccepted, domain.MatchDisputed)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.logger.Warn().
		Str("match_id", m.ID).
		Msg("submissions disagree, match disputed")

	s.notify.Dispatch(ctx,
		api.Event{Type: api.EventMatchDisputed, RecipientID: m.Participant1ID, Context: matchContext(m)},
		api.Event{Type: api.EventMatchDisputed, RecipientID: m.Participant2ID, Context: matchContext(m)},
	)
	return nil
}

// Reset clears one side's submission on a disputed match and reopens it
// for a fresh consensus attempt. Only the competition creator may reset.
func (s *SubmissionService) Reset(ctx context.Context, matchID string, callerID, clearParticipantID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	m, err := s.matches.Get(ctx, s.db, matchID)
	if err != nil {
		return err
	}

	creatorID, err := competitionCreator(ctx, s.db, s.tournaments, s.ladders, m)
	if err != nil {
		return err
	}
	if callerID != creatorID {
		return fmt.Errorf("only the competition creator may reset a submission: %w", domain.ErrUnauthorized)
	}

	side := m.Side(clearParticipantID)
	if side == 0 {
		return fmt.Errorf("participant %s is not in this match: %w", clearParticipantID, domain.ErrValidation)
	}

	ok, err := s.matches.ClearSubmission(ctx, s.db, matchID, side)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("match %s is not disputed: %w", matchID, domain.ErrStateConflict)
	}

	s.logger.Info().
		Str("match_id", matchID).
		Str("cleared_participant_id", clearParticipantID.String()).
		Msg("disputed submission reset")
	return nil
}

// competitionCreator resolves the principal allowed to administer a
// match: the creator of its tournament or ladder.
func competitionCreator(ctx context.Context, q sqlx.QueryerContext, tournaments *repository.TournamentRepository, ladders *repository.LadderRepository, m *domain.Match) (uuid.UUID, error) {
	switch m.Kind {
	case domain.TournamentMatch:
		if m.TournamentID == nil {
			return uuid.Nil, fmt.Errorf("tournament match %s missing tournament id", m.ID)
		}
		t, err := tournaments.Get(ctx, q, *m.TournamentID)
		if err != nil {
			return uuid.Nil, err
		}
		return t.CreatorID, nil
	case domain.LadderMatch:
		if m.LadderID == nil {
			return uuid.Nil, fmt.Errorf("ladder match %s missing ladder id", m.ID)
		}
		l, err := ladders.Get(ctx, q, *m.LadderID)
		if err != nil {
			return uuid.Nil, err
		}
		return l.CreatorID, nil
	}
	return uuid.Nil, fmt.Errorf("unknown match kind %q", m.Kind)
}
