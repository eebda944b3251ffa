package service

import (
	"context"
	"testing"
	"time"

	"matchplay-engine/internal/api"
	"matchplay-engine/internal/config"
	"matchplay-engine/internal/database"
	"matchplay-engine/internal/domain"
	"matchplay-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// testEnv wires the full service graph over an in-memory database with
// the production schema and no external services configured.
type testEnv struct {
	db *sqlx.DB

	tournamentRepo *repository.TournamentRepository
	ladderRepo     *repository.LadderRepository
	matchRepo      *repository.MatchRepository

	advancer    *Advancer
	tournaments *TournamentService
	ladders     *LadderService
	submissions *SubmissionService
	disputes    *DisputeService
	sweeper     *SweepService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.Nop()
	require.NoError(t, database.Migrate(db, log))

	cfg := &config.Config{IdentityBaseURL: "http://identity.test"}
	notify := api.NewNotifyClient(cfg, log)
	directory := api.NewDirectoryClient(cfg)

	tournamentRepo := repository.NewTournamentRepository(db, log)
	ladderRepo := repository.NewLadderRepository(db, log)
	matchRepo := repository.NewMatchRepository(db, log)

	advancer := NewAdvancer(tournamentRepo, matchRepo, log)
	fanout := NewResultFanout(tournamentRepo, ladderRepo, advancer, log)

	return &testEnv{
		db:             db,
		tournamentRepo: tournamentRepo,
		ladderRepo:     ladderRepo,
		matchRepo:      matchRepo,
		advancer:       advancer,
		tournaments:    NewTournamentService(db, tournamentRepo, matchRepo, advancer, directory, notify, log),
		ladders:        NewLadderService(db, ladderRepo, matchRepo, directory, notify, log),
		submissions:    NewSubmissionService(db, matchRepo, tournamentRepo, ladderRepo, fanout, notify, log),
		disputes:       NewDisputeService(db, matchRepo, tournamentRepo, ladderRepo, fanout, advancer, notify, log),
		sweeper:        NewSweepService(db, matchRepo, tournamentRepo, advancer, notify, log),
	}
}

// startedTournament creates a tournament, joins every player, and starts
// it, returning the tournament with its open matches.
func (e *testEnv) startedTournament(t *testing.T, creator uuid.UUID, players []uuid.UUID) (*domain.Tournament, []domain.Match) {
	t.Helper()
	ctx := context.Background()

	tr, err := e.tournaments.Create(ctx, creator, CreateTournamentInput{Name: "weekly cup"})
	require.NoError(t, err)
	for _, p := range players {
		require.NoError(t, e.tournaments.Join(ctx, tr.ID, p))
	}
	require.NoError(t, e.tournaments.Start(ctx, tr.ID, creator))

	tr, err = e.tournamentRepo.Get(ctx, e.db, tr.ID)
	require.NoError(t, err)
	matches, err := e.matchRepo.ListByTournament(ctx, tr.ID)
	require.NoError(t, err)
	return tr, matches
}

// ladderWithPlayers creates a ladder and joins the given players below
// the creator, in order.
func (e *testEnv) ladderWithPlayers(t *testing.T, creator uuid.UUID, players ...uuid.UUID) *domain.Ladder {
	t.Helper()
	ctx := context.Background()

	l, err := e.ladders.Create(ctx, creator, CreateLadderInput{Name: "office ladder"})
	require.NoError(t, err)
	for _, p := range players {
		_, err := e.ladders.Join(ctx, l.ID, p)
		require.NoError(t, err)
	}
	return l
}

// acceptedChallenge issues a challenge and has the challengee accept it.
func (e *testEnv) acceptedChallenge(t *testing.T, ladderID, challenger, challengee uuid.UUID) *domain.Match {
	t.Helper()
	ctx := context.Background()

	m, err := e.ladders.Challenge(ctx, ladderID, challenger, challengee)
	require.NoError(t, err)
	require.NoError(t, e.submissions.Accept(ctx, m.ID, challengee))

	m, err = e.matchRepo.Get(ctx, e.db, m.ID)
	require.NoError(t, err)
	return m
}

// submitBoth sends matching reports from both participants.
func (e *testEnv) submitBoth(t *testing.T, m *domain.Match, winner uuid.UUID, line domain.ScoreLine) *domain.Match {
	t.Helper()
	ctx := context.Background()

	_, err := e.submissions.Submit(ctx, m.ID, m.Participant1ID, SubmissionInput{Scores: line, Winner: winner})
	require.NoError(t, err)
	out, err := e.submissions.Submit(ctx, m.ID, m.Participant2ID, SubmissionInput{Scores: line, Winner: winner})
	require.NoError(t, err)
	return out
}

// backdate pushes a match's deadline into the past so a sweep picks it up.
func (e *testEnv) backdate(t *testing.T, matchID string) {
	t.Helper()
	_, err := e.db.Exec(`UPDATE matches SET deadline = ? WHERE id = ?`,
		time.Now().UTC().Add(-time.Hour), matchID)
	require.NoError(t, err)
}

// ranks returns the ladder's participant ids ordered by rank.
func (e *testEnv) ranks(t *testing.T, ladderID uuid.UUID) []uuid.UUID {
	t.Helper()
	positions, err := e.ladderRepo.GetPositions(context.Background(), e.db, ladderID)
	require.NoError(t, err)

	out := make([]uuid.UUID, len(positions))
	for i, p := range positions {
		require.Equal(t, i+1, p.Rank, "ranks must stay contiguous from 1")
		out[i] = p.ParticipantID
	}
	return out
}
