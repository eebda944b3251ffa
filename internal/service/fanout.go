package service

import (
	"context"
	"errors"
	"fmt"

	"matchplay-engine/internal/domain"
	"matchplay-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// ResultFanout routes a completed match's outcome downstream: tournament
// results feed the bracket advancer, ladder results feed the rank table.
// Consensus completion and dispute resolution share it.
type ResultFanout struct {
	tournaments *repository.TournamentRepository
	ladders     *repository.LadderRepository
	advancer    *Advancer
	logger      zerolog.Logger
}

func NewResultFanout(tournaments *repository.TournamentRepository, ladders *repository.LadderRepository, advancer *Advancer, logger zerolog.Logger) *ResultFanout {
	return &ResultFanout{tournaments: tournaments, ladders: ladders, advancer: advancer, logger: logger}
}

func (f *ResultFanout) Apply(ctx context.Context, tx *sqlx.Tx, m *domain.Match, winnerID uuid.UUID) error {
	switch m.Kind {
	case domain.TournamentMatch:
		if m.TournamentID == nil || m.MatchNumber == nil {
			return fmt.Errorf("tournament match %s missing bracket context", m.ID)
		}
		t, err := f.tournaments.Get(ctx, tx, *m.TournamentID)
		if err != nil {
			return err
		}
		return f.advancer.Advance(ctx, tx, t, *m.MatchNumber, winnerID)

	case domain.LadderMatch:
		if m.LadderID == nil {
			return fmt.Errorf("ladder match %s missing ladder context", m.ID)
		}
		return f.applyLadder(ctx, tx, m, winnerID)
	}

	return fmt.Errorf("unknown match kind %q", m.Kind)
}

// applyLadder applies the rank-adjustment rule: only a win by the
// lower-ranked challenger moves anyone. Ranks are read at completion
// time, so intervening ladder movement is respected.
func (f *ResultFanout) applyLadder(ctx context.Context, tx *sqlx.Tx, m *domain.Match, winnerID uuid.UUID) error {
	challengerID := m.Participant1ID
	challengeeID := m.Participant2ID

	if winnerID != challengerID {
		return nil
	}

	challengerPos, err := f.ladders.GetPosition(ctx, tx, *m.LadderID, challengerID)
	if errors.Is(err, domain.ErrNotFound) {
		f.logger.Warn().Str("match_id", m.ID).Msg("challenger left the ladder before completion, skipping rank update")
		return nil
	}
	if err != nil {
		return err
	}
	challengeePos, err := f.ladders.GetPosition(ctx, tx, *m.LadderID, challengeeID)
	if errors.Is(err, domain.ErrNotFound) {
		f.logger.Warn().Str("match_id", m.ID).Msg("challengee left the ladder before completion, skipping rank update")
		return nil
	}
	if err != nil {
		return err
	}

	if challengerPos.Rank <= challengeePos.Rank {
		// The challenger already climbed past; a win changes nothing.
		return nil
	}

	if err := f.ladders.ApplyChallengerWin(ctx, tx, *m.LadderID, challengerPos.Rank, challengeePos.Rank); err != nil {
		return err
	}

	f.logger.Info().
		Str("ladder_id", m.LadderID.String()).
		Str("challenger_id", challengerID.String()).
		Int("from_rank", challengerPos.Rank).
		Int("to_rank", challengeePos.Rank).
		Msg("ladder ranks updated")
	return nil
}
