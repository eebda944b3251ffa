package bracket

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestBuildRoundCounts(t *testing.T) {
	testCases := []struct {
		name           string
		players        int
		expectedRounds int
		expectedByes   int
	}{
		{"2 players", 2, 1, 0},
		{"4 players", 4, 2, 0},
		{"5 players", 5, 3, 3},
		{"7 players", 7, 3, 1},
		{"8 players", 8, 3, 0},
		{"9 players", 9, 4, 7},
		{"16 players", 16, 4, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bp, err := Build(ids(tc.players), rand.New(rand.NewSource(1)))
			require.NoError(t, err)

			assert.Equal(t, tc.expectedRounds, bp.Rounds)

			byes := 0
			for _, s := range bp.RoundSlots(1) {
				if s.Bye {
					byes++
					require.NotNil(t, s.Winner)
				}
			}
			assert.Equal(t, tc.expectedByes, byes)

			// Full binary tree of slots; playable resolutions are N-1.
			assert.Len(t, bp.Slots, (1<<bp.Rounds)-1)
			assert.Equal(t, tc.players-1, len(bp.Slots)-byes)
		})
	}
}

func TestBuildFivePlayers(t *testing.T) {
	bp, err := Build(ids(5), rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	require.Equal(t, 3, bp.Rounds)
	require.Len(t, bp.Slots, 7)

	round1 := bp.RoundSlots(1)
	require.Len(t, round1, 4)

	var byes, playable int
	for _, s := range round1 {
		if s.Bye {
			byes++
			assert.NotNil(t, s.Winner)
		} else {
			playable++
			require.NotNil(t, s.Participant1)
			require.NotNil(t, s.Participant2)
		}
	}
	assert.Equal(t, 3, byes, "5-player bracket carries 3 byes")
	assert.Equal(t, 1, playable)
}

func TestBuildMatchNumbersSequential(t *testing.T) {
	bp, err := Build(ids(8), rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	for i, s := range bp.Slots {
		assert.Equal(t, i+1, s.MatchNumber)
	}
}

func TestBuildFeederWiring(t *testing.T) {
	bp, err := Build(ids(8), rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	seen := make(map[int]int)
	for _, s := range bp.Slots {
		if s.Round == 1 {
			assert.Nil(t, s.Feeder1Match)
			assert.Nil(t, s.Feeder2Match)
			continue
		}
		require.NotNil(t, s.Feeder1Match)
		require.NotNil(t, s.Feeder2Match)
		assert.Equal(t, *s.Feeder1Match+1, *s.Feeder2Match, "feeders are adjacent matches")
		seen[*s.Feeder1Match]++
		seen[*s.Feeder2Match]++
	}

	// Every non-final match feeds exactly one later slot.
	for _, s := range bp.Slots {
		if s.MatchNumber == len(bp.Slots) {
			continue
		}
		assert.Equal(t, 1, seen[s.MatchNumber], "match %d", s.MatchNumber)
	}
}

func TestBuildAllParticipantsPlaced(t *testing.T) {
	players := ids(11)
	bp, err := Build(players, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	placed := make(map[uuid.UUID]int)
	for _, s := range bp.RoundSlots(1) {
		if s.Participant1 != nil {
			placed[*s.Participant1]++
		}
		if s.Participant2 != nil {
			placed[*s.Participant2]++
		}
	}

	require.Len(t, placed, len(players))
	for _, p := range players {
		assert.Equal(t, 1, placed[p])
	}
}

func TestBuildRejectsTooFewPlayers(t *testing.T) {
	_, err := Build(ids(1), rand.New(rand.NewSource(1)))
	assert.Error(t, err)

	_, err = Build(nil, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}
