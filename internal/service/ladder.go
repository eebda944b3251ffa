package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchplay-engine/internal/api"
	"matchplay-engine/internal/constants"
	"matchplay-engine/internal/domain"
	"matchplay-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type LadderService struct {
	db        *sqlx.DB
	ladders   *repository.LadderRepository
	matches   *repository.MatchRepository
	directory *api.DirectoryClient
	notify    *api.NotifyClient
	logger    zerolog.Logger
}

func NewLadderService(
	db *sqlx.DB,
	ladders *repository.LadderRepository,
	matches *repository.MatchRepository,
	directory *api.DirectoryClient,
	notify *api.NotifyClient,
	logger zerolog.Logger,
) *LadderService {
	return &LadderService{
		db:        db,
		ladders:   ladders,
		matches:   matches,
		directory: directory,
		notify:    notify,
		logger:    logger,
	}
}

type CreateLadderInput struct {
	Name                string
	ChallengeWindowSecs int64
}

// Create opens a ladder with the creator holding rank 1.
func (s *LadderService) Create(ctx context.Context, creatorID uuid.UUID, in CreateLadderInput) (*domain.Ladder, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if in.Name == "" {
		return nil, fmt.Errorf("ladder name is required: %w", domain.ErrValidation)
	}
	if in.ChallengeWindowSecs == 0 {
		in.ChallengeWindowSecs = int64(constants.DefaultChallengeWindow / time.Second)
	}
	if time.Duration(in.ChallengeWindowSecs)*time.Second < constants.MinChallengeWindow {
		return nil, fmt.Errorf("challenge window below %s: %w", constants.MinChallengeWindow, domain.ErrValidation)
	}

	now := time.Now().UTC()
	l := &domain.Ladder{
		ID:                  uuid.New(),
		CreatorID:           creatorID,
		Name:                in.Name,
		ChallengeWindowSecs: in.ChallengeWindowSecs,
		Status:              domain.LadderActive,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.ladders.Create(ctx, tx, l); err != nil {
		return nil, err
	}
	if _, err := s.ladders.AppendPosition(ctx, tx, l.ID, creatorID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ladder: %w", err)
	}

	s.logger.Info().
		Str("ladder_id", l.ID.String()).
		Str("creator_id", creatorID.String()).
		Msg("ladder created")
	return l, nil
}

type LadderDetail struct {
	Ladder    *domain.Ladder
	Positions []domain.LadderPosition
	Matches   []domain.Match
	Profiles  map[uuid.UUID]*api.Profile
}

func (s *LadderService) Get(ctx context.Context, ladderID uuid.UUID) (*LadderDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	l, err := s.ladders.Get(ctx, s.db, ladderID)
	if err != nil {
		return nil, err
	}
	positions, err := s.ladders.GetPositions(ctx, s.db, ladderID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matches.ListByLadder(ctx, ladderID)
	if err != nil {
		return nil, err
	}

	detail := &LadderDetail{
		Ladder:    l,
		Positions: positions,
		Matches:   matches,
		Profiles:  map[uuid.UUID]*api.Profile{},
	}
	if s.directory.Configured() {
		for _, p := range positions {
			profile, err := s.directory.GetProfile(ctx, p.ParticipantID)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("participant_id", p.ParticipantID.String()).
					Msg("directory lookup failed")
				continue
			}
			detail.Profiles[p.ParticipantID] = profile
		}
	}
	return detail, nil
}

// Join appends the participant at the bottom of the ladder.
func (s *LadderService) Join(ctx context.Context, ladderID, participantID uuid.UUID) (*domain.LadderPosition, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	l, err := s.ladders.Get(ctx, s.db, ladderID)
	if err != nil {
		return nil, err
	}
	if l.Status != domain.LadderActive {
		return nil, fmt.Errorf("ladder %s is closed: %w", ladderID, domain.ErrStateConflict)
	}

	if _, err := s.ladders.GetPosition(ctx, s.db, ladderID, participantID); err == nil {
		return nil, fmt.Errorf("participant %s already on the ladder: %w", participantID, domain.ErrStateConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pos, err := s.ladders.AppendPosition(ctx, tx, ladderID, participantID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit join: %w", err)
	}
	return pos, nil
}

// Leave removes the participant and closes the rank gap. The creator
// anchors the ladder and may not leave.
func (s *LadderService) Leave(ctx context.Context, ladderID, participantID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	l, err := s.ladders.Get(ctx, s.db, ladderID)
	if err != nil {
		return err
	}
	if l.CreatorID == participantID {
		return fmt.Errorf("the ladder creator may not leave: %w", domain.ErrValidation)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.ladders.RemovePosition(ctx, tx, ladderID, participantID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit leave: %w", err)
	}

	s.logger.Info().
		Str("ladder_id", ladderID.String()).
		Str("participant_id", participantID.String()).
		Msg("participant left ladder")
	return nil
}

// Challenge opens a scheduled match between a challenger and a
// higher-ranked challengee. It awaits the challengee's accept/decline.
func (s *LadderService) Challenge(ctx context.Context, ladderID, challengerID, challengeeID uuid.UUID) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if challengerID == challengeeID {
		return nil, fmt.Errorf("cannot challenge yourself: %w", domain.ErrValidation)
	}

	l, err := s.ladders.Get(ctx, s.db, ladderID)
	if err != nil {
		return nil, err
	}
	if l.Status != domain.LadderActive {
		return nil, fmt.Errorf("ladder %s is closed: %w", ladderID, domain.ErrStateConflict)
	}

	challengerPos, err := s.ladders.GetPosition(ctx, s.db, ladderID, challengerID)
	if err != nil {
		return nil, err
	}
	challengeePos, err := s.ladders.GetPosition(ctx, s.db, ladderID, challengeeID)
	if err != nil {
		return nil, err
	}
	if challengerPos.Rank <= challengeePos.Rank {
		return nil, fmt.Errorf("challenges must target a higher rank: %w", domain.ErrValidation)
	}

	m := &domain.Match{
		Kind:           domain.LadderMatch,
		LadderID:       &ladderID,
		Participant1ID: challengerID,
		Participant2ID: challengeeID,
		Status:         domain.MatchScheduled,
		Deadline:       time.Now().UTC().Add(l.ChallengeWindow()),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.matches.Create(ctx, tx, m); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit challenge: %w", err)
	}

	s.logger.Info().
		Str("ladder_id", ladderID.String()).
		Str("match_id", m.ID).
		Int("challenger_rank", challengerPos.Rank).
		Int("challengee_rank", challengeePos.Rank).
		Msg("challenge issued")

	s.notify.Dispatch(ctx, api.Event{
		Type:        api.EventChallengeIssued,
		RecipientID: challengeeID,
		Context:     matchContext(m),
	})
	return m, nil
}
