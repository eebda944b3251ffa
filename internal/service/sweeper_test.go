package service

import (
	"context"
	"testing"

	"matchplay-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepIgnoresFutureDeadlines(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{uuid.New(), uuid.New()})

	report, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.TournamentMatches)
	assert.Zero(t, report.LadderMatches)

	current, err := e.matchRepo.Get(ctx, e.db, matches[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchAccepted, current.Status)
}

func TestSweepExpiresOverdueTournamentMatch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()
	players := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	tr, semis := e.startedTournament(t, creator, players)
	require.Len(t, semis, 2)

	// One semifinal completes in time, the other lapses.
	w := semis[1].Participant1ID
	e.submitBoth(t, &semis[1], w, domain.ScoreLine{"13-4"})
	e.backdate(t, semis[0].ID)

	report, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TournamentMatches)

	expired, err := e.matchRepo.Get(ctx, e.db, semis[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchExpired, expired.Status)
	require.NotNil(t, expired.ResolutionMethod)
	assert.Equal(t, domain.ResolutionForfeit, *expired.ResolutionMethod)

	// The surviving semifinalist wins the title unopposed.
	got, err := e.tournamentRepo.Get(ctx, e.db, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TournamentCompleted, got.Status)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, w, *got.WinnerID)
}

func TestSweepBothSemisExpiredVoidsTournament(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()
	players := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	tr, semis := e.startedTournament(t, creator, players)
	e.backdate(t, semis[0].ID)
	e.backdate(t, semis[1].ID)

	report, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TournamentMatches)

	got, err := e.tournamentRepo.Get(ctx, e.db, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TournamentCompleted, got.Status)
	assert.Nil(t, got.WinnerID)

	slots, err := e.tournamentRepo.GetSlots(ctx, tr.ID)
	require.NoError(t, err)
	for _, s := range slots {
		assert.True(t, s.Void, "slot %d should be void", s.MatchNumber)
	}
}

func TestSweepSendsOverdueLadderMatchToDispute(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator, b := uuid.New(), uuid.New()
	l := e.ladderWithPlayers(t, creator, b)

	m, err := e.ladders.Challenge(ctx, l.ID, b, creator)
	require.NoError(t, err)
	e.backdate(t, m.ID)

	report, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.LadderMatches)

	current, err := e.matchRepo.Get(ctx, e.db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchDisputed, current.Status)
	assert.Equal(t, []uuid.UUID{creator, b}, e.ranks(t, l.ID))

	// The ladder creator still decides the outcome.
	out, err := e.disputes.Resolve(ctx, m.ID, creator, ResolutionInput{Method: domain.ResolutionNoContest})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchNoContest, out.Status)
	assert.Equal(t, []uuid.UUID{creator, b}, e.ranks(t, l.ID))
}

func TestSweepIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{uuid.New(), uuid.New()})
	e.backdate(t, matches[0].ID)

	first, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TournamentMatches)

	second, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.TournamentMatches)
	assert.Zero(t, second.LadderMatches)
}

func TestSubmitAfterSweepRejected(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{uuid.New(), uuid.New()})
	m := &matches[0]
	e.backdate(t, m.ID)

	_, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)

	_, err = e.submissions.Submit(ctx, m.ID, m.Participant1ID, SubmissionInput{Scores: domain.ScoreLine{"13-1"}, Winner: m.Participant1ID})
	assert.ErrorIs(t, err, domain.ErrStateConflict)
}

func TestSweepExpiresEveryOpenMatchInByeBracket(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()
	players := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	tr, open := e.startedTournament(t, creator, players)
	require.Len(t, open, 2)
	for i := range open {
		e.backdate(t, open[i].ID)
	}

	report, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TournamentMatches)

	// System-driven expiry records a forfeit with no resolver on file.
	for i := range open {
		expired, err := e.matchRepo.Get(ctx, e.db, open[i].ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MatchExpired, expired.Status)
		require.NotNil(t, expired.ResolutionMethod)
		assert.Equal(t, domain.ResolutionForfeit, *expired.ResolutionMethod)
		assert.Nil(t, expired.ResolvedBy)
	}

	// The bye winner on the untouched semifinal side walks through to the
	// title once both forfeits propagate.
	got, err := e.tournamentRepo.Get(ctx, e.db, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TournamentCompleted, got.Status)
	require.NotNil(t, got.WinnerID)

	slot, err := e.tournamentRepo.GetSlot(ctx, e.db, tr.ID, 3)
	require.NoError(t, err)
	require.NotNil(t, slot.WinnerID)
	assert.Equal(t, *slot.WinnerID, *got.WinnerID)
}
