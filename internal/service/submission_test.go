package service

import (
	"context"
	"testing"

	"matchplay-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitConsensusCompletesMatch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()
	p1, p2 := uuid.New(), uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{p1, p2})
	require.Len(t, matches, 1)
	m := &matches[0]

	line := domain.ScoreLine{"13-7", "13-11"}
	out := e.submitBoth(t, m, m.Participant1ID, line)

	assert.Equal(t, domain.MatchCompleted, out.Status)
	require.NotNil(t, out.FinalWinner)
	assert.Equal(t, m.Participant1ID, *out.FinalWinner)
	assert.True(t, line.Equal(out.FinalScores))
	require.NotNil(t, out.ResolutionMethod)
	assert.Equal(t, domain.ResolutionConsensus, *out.ResolutionMethod)
	assert.Nil(t, out.ResolvedBy)

	// Only match of a two-player bracket, so its winner takes the title.
	tr, err := e.tournamentRepo.Get(ctx, e.db, *m.TournamentID)
	require.NoError(t, err)
	assert.Equal(t, domain.TournamentCompleted, tr.Status)
	require.NotNil(t, tr.WinnerID)
	assert.Equal(t, m.Participant1ID, *tr.WinnerID)
}

func TestSubmitConsensusIsOrderIndependent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{uuid.New(), uuid.New()})
	m := &matches[0]
	line := domain.ScoreLine{"13-2"}

	// Side 2 reports before side 1.
	_, err := e.submissions.Submit(ctx, m.ID, m.Participant2ID, SubmissionInput{Scores: line, Winner: m.Participant2ID})
	require.NoError(t, err)
	out, err := e.submissions.Submit(ctx, m.ID, m.Participant1ID, SubmissionInput{Scores: line, Winner: m.Participant2ID})
	require.NoError(t, err)

	assert.Equal(t, domain.MatchCompleted, out.Status)
	require.NotNil(t, out.FinalWinner)
	assert.Equal(t, m.Participant2ID, *out.FinalWinner)
}

func TestSubmitDisagreementDisputes(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{uuid.New(), uuid.New()})
	m := &matches[0]

	_, err := e.submissions.Submit(ctx, m.ID, m.Participant1ID, SubmissionInput{Scores: domain.ScoreLine{"13-5"}, Winner: m.Participant1ID})
	require.NoError(t, err)
	out, err := e.submissions.Submit(ctx, m.ID, m.Participant2ID, SubmissionInput{Scores: domain.ScoreLine{"13-5"}, Winner: m.Participant2ID})
	require.NoError(t, err)

	assert.Equal(t, domain.MatchDisputed, out.Status)
	assert.Nil(t, out.FinalWinner)
}

func TestSubmitScoreMismatchDisputes(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{uuid.New(), uuid.New()})
	m := &matches[0]

	// Same winner, different score sequence: still no consensus.
	_, err := e.submissions.Submit(ctx, m.ID, m.Participant1ID, SubmissionInput{Scores: domain.ScoreLine{"13-5", "13-9"}, Winner: m.Participant1ID})
	require.NoError(t, err)
	out, err := e.submissions.Submit(ctx, m.ID, m.Participant2ID, SubmissionInput{Scores: domain.ScoreLine{"13-5", "13-10"}, Winner: m.Participant1ID})
	require.NoError(t, err)

	assert.Equal(t, domain.MatchDisputed, out.Status)
}

func TestSubmitTwiceRejected(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{uuid.New(), uuid.New()})
	m := &matches[0]

	in := SubmissionInput{Scores: domain.ScoreLine{"13-0"}, Winner: m.Participant1ID}
	_, err := e.submissions.Submit(ctx, m.ID, m.Participant1ID, in)
	require.NoError(t, err)
	_, err = e.submissions.Submit(ctx, m.ID, m.Participant1ID, in)
	assert.ErrorIs(t, err, domain.ErrDuplicateSubmission)
}

func TestSubmitByOutsiderRejected(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{uuid.New(), uuid.New()})
	m := &matches[0]

	_, err := e.submissions.Submit(ctx, m.ID, uuid.New(), SubmissionInput{Scores: domain.ScoreLine{"13-0"}, Winner: m.Participant1ID})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSubmitForNonParticipantWinnerRejected(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{uuid.New(), uuid.New()})
	m := &matches[0]

	_, err := e.submissions.Submit(ctx, m.ID, m.Participant1ID, SubmissionInput{Scores: domain.ScoreLine{"13-0"}, Winner: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSubmitOnSettledMatchRejected(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{uuid.New(), uuid.New()})
	m := &matches[0]
	e.submitBoth(t, m, m.Participant1ID, domain.ScoreLine{"13-4"})

	_, err := e.submissions.Submit(ctx, m.ID, m.Participant2ID, SubmissionInput{Scores: domain.ScoreLine{"13-4"}, Winner: m.Participant1ID})
	assert.ErrorIs(t, err, domain.ErrStateConflict)
}

func TestResetReopensDisputedMatch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{uuid.New(), uuid.New()})
	m := &matches[0]
	line := domain.ScoreLine{"13-6"}

	_, err := e.submissions.Submit(ctx, m.ID, m.Participant1ID, SubmissionInput{Scores: line, Winner: m.Participant1ID})
	require.NoError(t, err)
	_, err = e.submissions.Submit(ctx, m.ID, m.Participant2ID, SubmissionInput{Scores: line, Winner: m.Participant2ID})
	require.NoError(t, err)

	require.NoError(t, e.submissions.Reset(ctx, m.ID, creator, m.Participant2ID))

	current, err := e.matchRepo.Get(ctx, e.db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchAccepted, current.Status)
	assert.Nil(t, current.Sub2Winner)
	require.NotNil(t, current.Sub1Winner)

	// The corrected report now agrees with the surviving one.
	out, err := e.submissions.Submit(ctx, m.ID, m.Participant2ID, SubmissionInput{Scores: line, Winner: m.Participant1ID})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchCompleted, out.Status)
}

func TestResetByNonCreatorRejected(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{uuid.New(), uuid.New()})
	m := &matches[0]

	_, err := e.submissions.Submit(ctx, m.ID, m.Participant1ID, SubmissionInput{Scores: domain.ScoreLine{"13-6"}, Winner: m.Participant1ID})
	require.NoError(t, err)
	_, err = e.submissions.Submit(ctx, m.ID, m.Participant2ID, SubmissionInput{Scores: domain.ScoreLine{"13-6"}, Winner: m.Participant2ID})
	require.NoError(t, err)

	err = e.submissions.Reset(ctx, m.ID, m.Participant1ID, m.Participant2ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestResetOutsideDisputeRejected(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	creator := uuid.New()

	_, matches := e.startedTournament(t, creator, []uuid.UUID{uuid.New(), uuid.New()})
	m := &matches[0]

	err := e.submissions.Reset(ctx, m.ID, creator, m.Participant1ID)
	assert.ErrorIs(t, err, domain.ErrStateConflict)
}
