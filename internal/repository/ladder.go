package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"matchplay-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type LadderRepository struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func NewLadderRepository(db *sqlx.DB, logger zerolog.Logger) *LadderRepository {
	return &LadderRepository{db: db, logger: logger}
}

func (r *LadderRepository) DB() *sqlx.DB { return r.db }

func (r *LadderRepository) Create(ctx context.Context, tx *sqlx.Tx, l *domain.Ladder) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO ladders
		(id, creator_id, name, challenge_window_secs, status, created_at, updated_at)
		VALUES (:id, :creator_id, :name, :challenge_window_secs, :status, :created_at, :updated_at)`, l)
	if err != nil {
		return fmt.Errorf("failed to insert ladder: %w", err)
	}
	return nil
}

func (r *LadderRepository) Get(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*domain.Ladder, error) {
	var l domain.Ladder
	err := sqlx.GetContext(ctx, q, &l, `SELECT * FROM ladders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ladder %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ladder: %w", err)
	}
	return &l, nil
}

// GetPositions returns the standings in rank order, always a contiguous
// permutation of 1..N.
func (r *LadderRepository) GetPositions(ctx context.Context, q sqlx.QueryerContext, ladderID uuid.UUID) ([]domain.LadderPosition, error) {
	var out []domain.LadderPosition
	err := sqlx.SelectContext(ctx, q, &out, `SELECT * FROM ladder_positions
		WHERE ladder_id = ? ORDER BY rank ASC`, ladderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ladder positions: %w", err)
	}
	return out, nil
}

func (r *LadderRepository) GetPosition(ctx context.Context, q sqlx.QueryerContext, ladderID, participantID uuid.UUID) (*domain.LadderPosition, error) {
	var p domain.LadderPosition
	err := sqlx.GetContext(ctx, q, &p, `SELECT * FROM ladder_positions
		WHERE ladder_id = ? AND participant_id = ?`, ladderID, participantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ladder position for %s: %w", participantID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ladder position: %w", err)
	}
	return &p, nil
}

// AppendPosition places a participant at the bottom of the ladder.
func (r *LadderRepository) AppendPosition(ctx context.Context, tx *sqlx.Tx, ladderID, participantID uuid.UUID) (*domain.LadderPosition, error) {
	var bottom int
	if err := tx.GetContext(ctx, &bottom, `SELECT COALESCE(MAX(rank), 0) FROM ladder_positions
		WHERE ladder_id = ?`, ladderID); err != nil {
		return nil, fmt.Errorf("failed to find bottom rank: %w", err)
	}

	p := &domain.LadderPosition{LadderID: ladderID, Rank: bottom + 1, ParticipantID: participantID}
	if _, err := tx.NamedExecContext(ctx, `INSERT INTO ladder_positions
		(ladder_id, rank, participant_id) VALUES (:ladder_id, :rank, :participant_id)`, p); err != nil {
		return nil, fmt.Errorf("failed to append ladder position: %w", err)
	}
	return p, nil
}

// ApplyChallengerWin performs the rank swap for a successful challenge
// from below: everyone strictly between the two ranks moves down one, the
// challenger takes the challengee's rank, and the challengee lands one
// below it. Ranks pass through their negatives so the unique(ladder, rank)
// constraint never trips mid-shift.
func (r *LadderRepository) ApplyChallengerWin(ctx context.Context, tx *sqlx.Tx, ladderID uuid.UUID, challengerRank, challengeeRank int) error {
	if challengerRank <= challengeeRank {
		return fmt.Errorf("challenger rank %d must be below challengee rank %d: %w",
			challengerRank, challengeeRank, domain.ErrValidation)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE ladder_positions SET rank = -(rank + 1)
		WHERE ladder_id = ? AND rank >= ? AND rank < ?`,
		ladderID, challengeeRank, challengerRank); err != nil {
		return fmt.Errorf("failed to shift ranks down: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE ladder_positions SET rank = ?
		WHERE ladder_id = ? AND rank = ?`,
		challengeeRank, ladderID, challengerRank); err != nil {
		return fmt.Errorf("failed to move challenger up: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE ladder_positions SET rank = -rank
		WHERE ladder_id = ? AND rank < 0`, ladderID); err != nil {
		return fmt.Errorf("failed to restore shifted ranks: %w", err)
	}

	return nil
}

// RemovePosition drops a participant and closes the rank gap.
func (r *LadderRepository) RemovePosition(ctx context.Context, tx *sqlx.Tx, ladderID, participantID uuid.UUID) error {
	pos, err := r.GetPosition(ctx, tx, ladderID, participantID)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ladder_positions
		WHERE ladder_id = ? AND participant_id = ?`, ladderID, participantID); err != nil {
		return fmt.Errorf("failed to remove ladder position: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE ladder_positions SET rank = -(rank - 1)
		WHERE ladder_id = ? AND rank > ?`, ladderID, pos.Rank); err != nil {
		return fmt.Errorf("failed to close rank gap: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE ladder_positions SET rank = -rank
		WHERE ladder_id = ? AND rank < 0`, ladderID); err != nil {
		return fmt.Errorf("failed to restore closed ranks: %w", err)
	}

	return nil
}
