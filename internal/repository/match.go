package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"matchplay-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type MatchRepository struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func NewMatchRepository(db *sqlx.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: db, logger: logger}
}

func (r *MatchRepository) DB() *sqlx.DB { return r.db }

// Create inserts a match, generating its id when absent.
func (r *MatchRepository) Create(ctx context.Context, e sqlx.ExtContext, m *domain.Match) error {
	if m.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate match id: %w", err)
		}
		m.ID = id
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	_, err := sqlx.NamedExecContext(ctx, e, `INSERT INTO matches
		(id, kind, tournament_id, match_number, ladder_id, participant1_id, participant2_id,
		 status, deadline, sub1_scores, sub1_winner, sub1_at, sub2_scores, sub2_winner, sub2_at,
		 final_scores, final_winner, resolution_method, resolved_by, resolved_at, created_at, updated_at)
		VALUES (:id, :kind, :tournament_id, :match_number, :ladder_id, :participant1_id, :participant2_id,
		 :status, :deadline, :sub1_scores, :sub1_winner, :sub1_at, :sub2_scores, :sub2_winner, :sub2_at,
		 :final_scores, :final_winner, :resolution_method, :resolved_by, :resolved_at, :created_at, :updated_at)`, m)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *MatchRepository) Get(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.Match, error) {
	var m domain.Match
	err := sqlx.GetContext(ctx, q, &m, `SELECT * FROM matches WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return &m, nil
}

func (r *MatchRepository) GetByTournamentNumber(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID, matchNumber int) (*domain.Match, error) {
	var m domain.Match
	err := sqlx.GetContext(ctx, q, &m, `SELECT * FROM matches
		WHERE tournament_id = ? AND match_number = ?`, tournamentID, matchNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tournament match %d: %w", matchNumber, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament match: %w", err)
	}
	return &m, nil
}

func (r *MatchRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]domain.Match, error) {
	var out []domain.Match
	err := r.db.SelectContext(ctx, &out, `SELECT * FROM matches
		WHERE tournament_id = ? ORDER BY match_number ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament matches: %w", err)
	}
	return out, nil
}

func (r *MatchRepository) ListByLadder(ctx context.Context, ladderID uuid.UUID) ([]domain.Match, error) {
	var out []domain.Match
	err := r.db.SelectContext(ctx, &out, `SELECT * FROM matches
		WHERE ladder_id = ? ORDER BY created_at DESC`, ladderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ladder matches: %w", err)
	}
	return out, nil
}

// Transition moves a match between statuses only when it still holds the
// expected one; the zero-rows answer is how racing writers lose politely.
func (r *MatchRepository) Transition(ctx context.Context, e sqlx.ExtContext, id string, from, to domain.MatchStatus) (bool, error) {
	res, err := e.ExecContext(ctx, `UPDATE matches SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`, to, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TransitionAny is Transition with several acceptable source states.
func (r *MatchRepository) TransitionAny(ctx context.Context, e sqlx.ExtContext, id string, from []domain.MatchStatus, to domain.MatchStatus) (bool, error) {
	query, args, err := sqlx.In(`UPDATE matches SET status = ?, updated_at = ?
		WHERE id = ? AND status IN (?)`, to, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to build transition query: %w", err)
	}

	res, err := e.ExecContext(ctx, e.Rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("failed to transition match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordSubmission writes one side's result. The guard enforces both the
// open-state requirement and the one-submission-per-side rule in a single
// conditional write.
func (r *MatchRepository) RecordSubmission(ctx context.Context, e sqlx.ExtContext, id string, side int, scores domain.ScoreLine, winnerID uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	var query string
	switch side {
	case 1:
		query = `UPDATE matches SET sub1_scores = ?, sub1_winner = ?, sub1_at = ?, updated_at = ?
			WHERE id = ? AND status = ? AND sub1_winner IS NULL`
	case 2:
		query = `UPDATE matches SET sub2_scores = ?, sub2_winner = ?, sub2_at = ?, updated_at = ?
			WHERE id = ? AND status = ? AND sub2_winner IS NULL`
	default:
		return false, fmt.Errorf("invalid submission side %d", side)
	}

	res, err := e.ExecContext(ctx, query, scores, winnerID, now, now, id, domain.MatchAccepted)
	if err != nil {
		return false, fmt.Errorf("failed to record submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearSubmission wipes one side's report on a disputed match and reopens
// it for a fresh consensus attempt.
func (r *MatchRepository) ClearSubmission(ctx context.Context, e sqlx.ExtContext, id string, side int) (bool, error) {
	now := time.Now().UTC()
	var query string
	switch side {
	case 1:
		query = `UPDATE matches SET sub1_scores = NULL, sub1_winner = NULL, sub1_at = NULL,
			status = ?, updated_at = ? WHERE id = ? AND status = ?`
	case 2:
		query = `UPDATE matches SET sub2_scores = NULL, sub2_winner = NULL, sub2_at = NULL,
			status = ?, updated_at = ? WHERE id = ? AND status = ?`
	default:
		return false, fmt.Errorf("invalid submission side %d", side)
	}

	res, err := e.ExecContext(ctx, query, domain.MatchAccepted, now, id, domain.MatchDisputed)
	if err != nil {
		return false, fmt.Errorf("failed to clear submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Complete finalizes a match with its agreed or resolved result.
func (r *MatchRepository) Complete(ctx context.Context, e sqlx.ExtContext, id string, from domain.MatchStatus, scores domain.ScoreLine, winnerID uuid.UUID, method domain.ResolutionMethod, resolvedBy *uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	res, err := e.ExecContext(ctx, `UPDATE matches SET status = ?, final_scores = ?, final_winner = ?,
		resolution_method = ?, resolved_by = ?, resolved_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		domain.MatchCompleted, scores, winnerID, method, resolvedBy, now, now, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to complete match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Terminate forces a match into a terminal no-winner state (expired,
// no-contest) with resolution metadata.
func (r *MatchRepository) Terminate(ctx context.Context, e sqlx.ExtContext, id string, from []domain.MatchStatus, to domain.MatchStatus, method domain.ResolutionMethod, resolvedBy *uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	// sqlx.In calls Value through typed nil pointers, so the nullable
	// resolver is flattened before the query is built.
	var resolver any
	if resolvedBy != nil {
		resolver = *resolvedBy
	}
	query, args, err := sqlx.In(`UPDATE matches SET status = ?, resolution_method = ?,
		resolved_by = ?, resolved_at = ?, updated_at = ?
		WHERE id = ? AND status IN (?)`,
		to, method, resolver, now, now, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to build terminate query: %w", err)
	}

	res, err := e.ExecContext(ctx, e.Rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("failed to terminate match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListOverdue finds matches still waiting on players whose response
// window has elapsed. Terminal and disputed matches never reappear here,
// which is what makes repeated sweeps safe.
func (r *MatchRepository) ListOverdue(ctx context.Context, kind domain.MatchKind, now time.Time) ([]domain.Match, error) {
	var out []domain.Match
	err := r.db.SelectContext(ctx, &out, `SELECT * FROM matches
		WHERE kind = ? AND status IN (?, ?) AND deadline < ?
		ORDER BY deadline ASC`,
		kind, domain.MatchScheduled, domain.MatchAccepted, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue matches: %w", err)
	}
	return out, nil
}
