package service

import (
	"context"
	"testing"
	"time"

	"matchplay-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceTwiceIsNoOp(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()
	players := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	tr, semis := e.startedTournament(t, creator, players)
	require.Len(t, semis, 2)
	winner := semis[0].Participant1ID

	for i := 0; i < 2; i++ {
		tx, err := e.db.BeginTxx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, e.advancer.Advance(ctx, tx, tr, *semis[0].MatchNumber, winner))
		require.NoError(t, tx.Commit())
	}

	slot, err := e.tournamentRepo.GetSlot(ctx, e.db, tr.ID, *semis[0].MatchNumber)
	require.NoError(t, err)
	require.NotNil(t, slot.WinnerID)
	assert.Equal(t, winner, *slot.WinnerID)
}

func TestAdvanceCannotOverwriteSlotWinner(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()
	players := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	tr, semis := e.startedTournament(t, creator, players)
	first := semis[0].Participant1ID
	second := semis[0].Participant2ID

	tx, err := e.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, e.advancer.Advance(ctx, tx, tr, *semis[0].MatchNumber, first))
	// The late conflicting write loses against the recorded winner.
	require.NoError(t, e.advancer.Advance(ctx, tx, tr, *semis[0].MatchNumber, second))
	require.NoError(t, tx.Commit())

	slot, err := e.tournamentRepo.GetSlot(ctx, e.db, tr.ID, *semis[0].MatchNumber)
	require.NoError(t, err)
	require.NotNil(t, slot.WinnerID)
	assert.Equal(t, first, *slot.WinnerID)

	final, err := e.tournamentRepo.GetSlotFedBy(ctx, e.db, tr.ID, *semis[0].MatchNumber)
	require.NoError(t, err)
	require.NotNil(t, final)
	participants := []*uuid.UUID{final.Participant1ID, final.Participant2ID}
	count := 0
	for _, p := range participants {
		if p != nil {
			assert.Equal(t, first, *p)
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one final slot side should be filled")
}

func TestCreateRejectsDuplicateBracketMatchNumber(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()
	players := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	tr, semis := e.startedTournament(t, creator, players)
	require.Len(t, semis, 2)

	// The unique index on (tournament_id, match_number) backstops the
	// advancer's existence check.
	dup := &domain.Match{
		Kind:           domain.TournamentMatch,
		TournamentID:   &tr.ID,
		MatchNumber:    semis[0].MatchNumber,
		Participant1ID: uuid.New(),
		Participant2ID: uuid.New(),
		Status:         domain.MatchAccepted,
		Deadline:       time.Now().UTC().Add(time.Hour),
	}
	err := e.matchRepo.Create(ctx, e.db, dup)
	require.Error(t, err)
}
