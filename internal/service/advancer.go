package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchplay-engine/internal/domain"
	"matchplay-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Advancer carries a resolved tournament match's outcome forward through
// the bracket: it writes the winner into the slot the match feeds, creates
// the next playable match once both feeders have settled, and resolves
// byes and voided slots recursively. Every write is conditional, so
// re-invoking on an already-advanced match is a no-op.
type Advancer struct {
	tournaments *repository.TournamentRepository
	matches     *repository.MatchRepository
	logger      zerolog.Logger
}

func NewAdvancer(tournaments *repository.TournamentRepository, matches *repository.MatchRepository, logger zerolog.Logger) *Advancer {
	return &Advancer{tournaments: tournaments, matches: matches, logger: logger}
}

// Advance records a winner for the given match number and propagates it.
// All writes ride the caller's transaction.
func (a *Advancer) Advance(ctx context.Context, tx *sqlx.Tx, t *domain.Tournament, matchNumber int, winnerID uuid.UUID) error {
	ok, err := a.tournaments.SetSlotWinner(ctx, tx, t.ID, matchNumber, winnerID)
	if err != nil {
		return err
	}
	if !ok {
		// Winner already recorded or the slot voided: nothing to do.
		a.logger.Debug().
			Str("tournament_id", t.ID.String()).
			Int("match_number", matchNumber).
			Msg("advancement skipped, slot already settled")
		return nil
	}
	return a.propagateWinner(ctx, tx, t, matchNumber, winnerID)
}

// AdvanceVoid settles a match's slot with no winner (expiry, no-contest)
// and propagates the emptiness so a completed sibling's winner can move
// up unopposed.
func (a *Advancer) AdvanceVoid(ctx context.Context, tx *sqlx.Tx, t *domain.Tournament, matchNumber int) error {
	ok, err := a.tournaments.VoidSlot(ctx, tx, t.ID, matchNumber)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	next, err := a.tournaments.GetSlotFedBy(ctx, tx, t.ID, matchNumber)
	if err != nil {
		return err
	}
	if next == nil {
		// A voided final: the tournament ends without a champion.
		a.logger.Warn().
			Str("tournament_id", t.ID.String()).
			Int("match_number", matchNumber).
			Msg("final slot voided, completing tournament without a winner")
		_, err := a.tournaments.Complete(ctx, tx, t.ID, nil)
		return err
	}
	return a.settle(ctx, tx, t, next.MatchNumber)
}

func (a *Advancer) propagateWinner(ctx context.Context, tx *sqlx.Tx, t *domain.Tournament, matchNumber int, winnerID uuid.UUID) error {
	next, err := a.tournaments.GetSlotFedBy(ctx, tx, t.ID, matchNumber)
	if err != nil {
		return err
	}
	if next == nil {
		// No slot consumes this match: it was the final.
		ok, err := a.tournaments.Complete(ctx, tx, t.ID, &winnerID)
		if err != nil {
			return err
		}
		if ok {
			a.logger.Info().
				Str("tournament_id", t.ID.String()).
				Str("winner_id", winnerID.String()).
				Msg("tournament completed")
		}
		return nil
	}

	side := 2
	if next.Feeder1Match != nil && *next.Feeder1Match == matchNumber {
		side = 1
	}
	if _, err := a.tournaments.SetSlotParticipant(ctx, tx, t.ID, next.MatchNumber, side, winnerID); err != nil {
		return err
	}

	return a.settle(ctx, tx, t, next.MatchNumber)
}

// settle checks whether both matches feeding a slot have produced their
// outcome and, if so, turns the slot into the next playable match, a
// walkover, or a further void.
func (a *Advancer) settle(ctx context.Context, tx *sqlx.Tx, t *domain.Tournament, matchNumber int) error {
	slot, err := a.tournaments.GetSlot(ctx, tx, t.ID, matchNumber)
	if err != nil {
		return err
	}
	if slot.Feeder1Match == nil || slot.Feeder2Match == nil {
		return fmt.Errorf("slot %d has no feeder back-references", matchNumber)
	}

	f1, err := a.tournaments.GetSlot(ctx, tx, t.ID, *slot.Feeder1Match)
	if err != nil {
		return err
	}
	f2, err := a.tournaments.GetSlot(ctx, tx, t.ID, *slot.Feeder2Match)
	if err != nil {
		return err
	}
	if !f1.Settled() || !f2.Settled() {
		// Sibling still playing; this slot settles on its resolution.
		return nil
	}

	p1, p2 := slot.Participant1ID, slot.Participant2ID
	switch {
	case p1 == nil && p2 == nil:
		// Both feeders ended without a winner.
		return a.AdvanceVoid(ctx, tx, t, slot.MatchNumber)
	case p1 != nil && p2 != nil && *p1 == *p2:
		// Same participant on both sides is a data error; resolve in
		// their favor rather than scheduling an unplayable match.
		a.logger.Error().
			Str("tournament_id", t.ID.String()).
			Int("match_number", slot.MatchNumber).
			Str("participant_id", p1.String()).
			Msg("identical participants on both slot sides")
		return a.Advance(ctx, tx, t, slot.MatchNumber, *p1)
	case p1 == nil:
		return a.Advance(ctx, tx, t, slot.MatchNumber, *p2)
	case p2 == nil:
		return a.Advance(ctx, tx, t, slot.MatchNumber, *p1)
	}

	return a.createMatch(ctx, tx, t, slot, *p1, *p2)
}

func (a *Advancer) createMatch(ctx context.Context, tx *sqlx.Tx, t *domain.Tournament, slot *domain.BracketSlot, p1, p2 uuid.UUID) error {
	switch _, err := a.matches.GetByTournamentNumber(ctx, tx, t.ID, slot.MatchNumber); {
	case err == nil:
		// Already created by an earlier propagation.
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("failed to check for existing match %d: %w", slot.MatchNumber, err)
	}

	matchNumber := slot.MatchNumber
	m := &domain.Match{
		Kind:           domain.TournamentMatch,
		TournamentID:   &t.ID,
		MatchNumber:    &matchNumber,
		Participant1ID: p1,
		Participant2ID: p2,
		Status:         domain.MatchAccepted,
		Deadline:       time.Now().UTC().Add(t.ChallengeWindow()),
	}
	if err := a.matches.Create(ctx, tx, m); err != nil {
		return err
	}

	a.logger.Info().
		Str("tournament_id", t.ID.String()).
		Int("match_number", slot.MatchNumber).
		Int("round", slot.Round).
		Str("match_id", m.ID).
		Msg("next-round match created")
	return nil
}
