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
	"github.com/rs/zerolog"
)

type TournamentRepository struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func NewTournamentRepository(db *sqlx.DB, logger zerolog.Logger) *TournamentRepository {
	return &TournamentRepository{db: db, logger: logger}
}

func (r *TournamentRepository) Create(ctx context.Context, tx *sqlx.Tx, t *domain.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments
		(id, creator_id, name, format, visibility, challenge_window_secs, status, created_at, updated_at)
		VALUES (:id, :creator_id, :name, :format, :visibility, :challenge_window_secs, :status, :created_at, :updated_at)`, t)
	if err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (r *TournamentRepository) Get(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*domain.Tournament, error) {
	var t domain.Tournament
	err := sqlx.GetContext(ctx, q, &t, `SELECT * FROM tournaments WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tournament %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return &t, nil
}

func (r *TournamentRepository) DB() *sqlx.DB { return r.db }

func (r *TournamentRepository) AddParticipant(ctx context.Context, e sqlx.ExtContext, p *domain.TournamentParticipant) error {
	_, err := sqlx.NamedExecContext(ctx, e, `INSERT INTO tournament_participants
		(tournament_id, participant_id, seed, joined_at)
		VALUES (:tournament_id, :participant_id, :seed, :joined_at)`, p)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

func (r *TournamentRepository) GetParticipants(ctx context.Context, tournamentID uuid.UUID) ([]domain.TournamentParticipant, error) {
	var out []domain.TournamentParticipant
	err := r.db.SelectContext(ctx, &out, `SELECT * FROM tournament_participants
		WHERE tournament_id = ? ORDER BY joined_at ASC, participant_id ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return out, nil
}

func (r *TournamentRepository) HasParticipant(ctx context.Context, tournamentID, participantID uuid.UUID) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tournament_participants
		WHERE tournament_id = ? AND participant_id = ?`, tournamentID, participantID)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return count > 0, nil
}

func (r *TournamentRepository) SetSeed(ctx context.Context, tx *sqlx.Tx, tournamentID, participantID uuid.UUID, seed int) error {
	_, err := tx.ExecContext(ctx, `UPDATE tournament_participants SET seed = ?
		WHERE tournament_id = ? AND participant_id = ?`, seed, tournamentID, participantID)
	if err != nil {
		return fmt.Errorf("failed to set seed: %w", err)
	}
	return nil
}

// TransitionStatus moves a tournament between lifecycle states only when
// it still holds the expected one. Returns false when another writer got
// there first.
func (r *TournamentRepository) TransitionStatus(ctx context.Context, e sqlx.ExtContext, id uuid.UUID, from, to domain.TournamentStatus) (bool, error) {
	res, err := e.ExecContext(ctx, `UPDATE tournaments SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`, to, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition tournament status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Complete marks the tournament finished with its champion. The winner may
// be nil when every path to the final voided out.
func (r *TournamentRepository) Complete(ctx context.Context, e sqlx.ExtContext, id uuid.UUID, winnerID *uuid.UUID) (bool, error) {
	res, err := e.ExecContext(ctx, `UPDATE tournaments SET status = ?, winner_id = ?, updated_at = ?
		WHERE id = ? AND status = ?`, domain.TournamentCompleted, winnerID, time.Now().UTC(), id, domain.TournamentActive)
	if err != nil {
		return false, fmt.Errorf("failed to complete tournament: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *TournamentRepository) CreateSlots(ctx context.Context, tx *sqlx.Tx, slots []domain.BracketSlot) error {
	if len(slots) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO bracket_slots
		(tournament_id, round, slot_order, match_number, participant1_id, participant2_id, winner_id, void, feeder1_match, feeder2_match)
		VALUES (:tournament_id, :round, :slot_order, :match_number, :participant1_id, :participant2_id, :winner_id, :void, :feeder1_match, :feeder2_match)`, slots)
	if err != nil {
		return fmt.Errorf("failed to insert bracket slots: %w", err)
	}
	return nil
}

func (r *TournamentRepository) GetSlots(ctx context.Context, tournamentID uuid.UUID) ([]domain.BracketSlot, error) {
	var out []domain.BracketSlot
	err := r.db.SelectContext(ctx, &out, `SELECT * FROM bracket_slots
		WHERE tournament_id = ? ORDER BY round ASC, slot_order ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bracket slots: %w", err)
	}
	return out, nil
}

func (r *TournamentRepository) GetSlot(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID, matchNumber int) (*domain.BracketSlot, error) {
	var s domain.BracketSlot
	err := sqlx.GetContext(ctx, q, &s, `SELECT * FROM bracket_slots
		WHERE tournament_id = ? AND match_number = ?`, tournamentID, matchNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bracket slot %d: %w", matchNumber, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bracket slot: %w", err)
	}
	return &s, nil
}

// GetSlotFedBy locates the next-round slot wired to a given match via its
// stored back-reference. Returns nil for the final.
func (r *TournamentRepository) GetSlotFedBy(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID, matchNumber int) (*domain.BracketSlot, error) {
	var s domain.BracketSlot
	err := sqlx.GetContext(ctx, q, &s, `SELECT * FROM bracket_slots
		WHERE tournament_id = ? AND (feeder1_match = ? OR feeder2_match = ?)`,
		tournamentID, matchNumber, matchNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find fed slot: %w", err)
	}
	return &s, nil
}

// SetSlotWinner records a slot outcome. Winners are immutable: the guard
// only fires on a slot with no outcome yet, which doubles as the
// advancement idempotence check.
func (r *TournamentRepository) SetSlotWinner(ctx context.Context, e sqlx.ExtContext, tournamentID uuid.UUID, matchNumber int, winnerID uuid.UUID) (bool, error) {
	res, err := e.ExecContext(ctx, `UPDATE bracket_slots SET winner_id = ?
		WHERE tournament_id = ? AND match_number = ? AND winner_id IS NULL AND void = 0`,
		winnerID, tournamentID, matchNumber)
	if err != nil {
		return false, fmt.Errorf("failed to set slot winner: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// VoidSlot settles a slot with no winner (expiry, no-contest).
func (r *TournamentRepository) VoidSlot(ctx context.Context, e sqlx.ExtContext, tournamentID uuid.UUID, matchNumber int) (bool, error) {
	res, err := e.ExecContext(ctx, `UPDATE bracket_slots SET void = 1
		WHERE tournament_id = ? AND match_number = ? AND winner_id IS NULL AND void = 0`,
		tournamentID, matchNumber)
	if err != nil {
		return false, fmt.Errorf("failed to void slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetSlotParticipant fills one side of a not-yet-populated slot.
func (r *TournamentRepository) SetSlotParticipant(ctx context.Context, e sqlx.ExtContext, tournamentID uuid.UUID, matchNumber, side int, participantID uuid.UUID) (bool, error) {
	var query string
	switch side {
	case 1:
		query = `UPDATE bracket_slots SET participant1_id = ?
			WHERE tournament_id = ? AND match_number = ? AND participant1_id IS NULL`
	case 2:
		query = `UPDATE bracket_slots SET participant2_id = ?
			WHERE tournament_id = ? AND match_number = ? AND participant2_id IS NULL`
	default:
		return false, fmt.Errorf("invalid slot side %d", side)
	}

	res, err := e.ExecContext(ctx, query, participantID, tournamentID, matchNumber)
	if err != nil {
		return false, fmt.Errorf("failed to set slot participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
