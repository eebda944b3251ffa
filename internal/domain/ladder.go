package domain

import (
	"time"

	"github.com/google/uuid"
)

type LadderStatus string

const (
	LadderActive LadderStatus = "active"
	LadderClosed LadderStatus = "closed"
)

type Ladder struct {
	ID                  uuid.UUID    `db:"id"`
	CreatorID           uuid.UUID    `db:"creator_id"`
	Name                string       `db:"name"`
	ChallengeWindowSecs int64        `db:"challenge_window_secs"`
	Status              LadderStatus `db:"status"`
	CreatedAt           time.Time    `db:"created_at"`
	UpdatedAt           time.Time    `db:"updated_at"`
}

func (l *Ladder) ChallengeWindow() time.Duration {
	return time.Duration(l.ChallengeWindowSecs) * time.Second
}

// LadderPosition is one (rank, participant) pair. Ranks within a ladder
// are a contiguous permutation of 1..N, no duplicates, no gaps.
type LadderPosition struct {
	LadderID      uuid.UUID `db:"ladder_id"`
	Rank          int       `db:"rank"`
	ParticipantID uuid.UUID `db:"participant_id"`
}
