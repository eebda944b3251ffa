package domain

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentPending   TournamentStatus = "pending"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
)

type TournamentFormat string

const (
	SingleElimination TournamentFormat = "single"
	DoubleElimination TournamentFormat = "double"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type Tournament struct {
	ID                  uuid.UUID        `db:"id"`
	CreatorID           uuid.UUID        `db:"creator_id"`
	Name                string           `db:"name"`
	Format              TournamentFormat `db:"format"`
	Visibility          Visibility       `db:"visibility"`
	ChallengeWindowSecs int64            `db:"challenge_window_secs"`
	Status              TournamentStatus `db:"status"`
	WinnerID            *uuid.UUID       `db:"winner_id"`
	CreatedAt           time.Time        `db:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at"`
}

// ChallengeWindow is the duration a match stays open before the deadline
// sweep forces an outcome.
func (t *Tournament) ChallengeWindow() time.Duration {
	return time.Duration(t.ChallengeWindowSecs) * time.Second
}

type TournamentParticipant struct {
	TournamentID  uuid.UUID `db:"tournament_id"`
	ParticipantID uuid.UUID `db:"participant_id"`
	Seed          *int      `db:"seed"`
	JoinedAt      time.Time `db:"joined_at"`
}

// BracketSlot is one node of the elimination tree. Round-1 slots carry
// participants directly; later rounds reference the one or two earlier
// matches that feed them. Winner, once set, is immutable. Void marks a
// slot settled with no winner (expired or no-contest feeders).
type BracketSlot struct {
	TournamentID   uuid.UUID  `db:"tournament_id"`
	Round          int        `db:"round"`
	SlotOrder      int        `db:"slot_order"`
	MatchNumber    int        `db:"match_number"`
	Participant1ID *uuid.UUID `db:"participant1_id"`
	Participant2ID *uuid.UUID `db:"participant2_id"`
	WinnerID       *uuid.UUID `db:"winner_id"`
	Void           bool       `db:"void"`
	Feeder1Match   *int       `db:"feeder1_match"`
	Feeder2Match   *int       `db:"feeder2_match"`
}

// Settled reports whether the slot has produced its outcome: a winner, or
// a void marker meaning no participant will ever emerge from it.
func (s *BracketSlot) Settled() bool {
	return s.WinnerID != nil || s.Void
}
