package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MatchKind string

const (
	TournamentMatch MatchKind = "tournament"
	LadderMatch     MatchKind = "ladder"
)

type MatchStatus string

const (
	// MatchScheduled is the entry state for ladder challenges awaiting
	// the challengee's accept/decline.
	MatchScheduled MatchStatus = "scheduled"
	// MatchAccepted is the open state in which results may be submitted.
	// Tournament matches are created directly in this state.
	MatchAccepted  MatchStatus = "accepted"
	MatchCompleted MatchStatus = "completed"
	MatchDisputed  MatchStatus = "disputed"
	MatchDeclined  MatchStatus = "declined"
	MatchExpired   MatchStatus = "expired"
	MatchNoContest MatchStatus = "no_contest"
)

// Terminal reports whether no further transition may leave the status.
// Disputed is not terminal: it awaits resolution or reset.
func (s MatchStatus) Terminal() bool {
	switch s {
	case MatchCompleted, MatchDeclined, MatchExpired, MatchNoContest:
		return true
	}
	return false
}

type ResolutionMethod string

const (
	ResolutionConsensus    ResolutionMethod = "consensus"
	ResolutionAcceptFirst  ResolutionMethod = "accept_first"
	ResolutionAcceptSecond ResolutionMethod = "accept_second"
	ResolutionCustom       ResolutionMethod = "custom"
	ResolutionNoContest    ResolutionMethod = "no_contest"
	ResolutionForfeit      ResolutionMethod = "forfeit"
)

// ScoreLine is an ordered sequence of per-set scores ("6-4", "7-5", ...).
// Persisted as a JSON array so consensus comparison stays exact.
type ScoreLine []string

func (s ScoreLine) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score line: %w", err)
	}
	return string(b), nil
}

func (s *ScoreLine) Scan(src any) error {
	if src == nil {
		*s = nil
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into score line", src)
	}
	return json.Unmarshal(b, s)
}

func (s ScoreLine) Equal(other ScoreLine) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Match is the unit driven through the consensus, dispute, and sweep
// flows. Exactly one of the tournament or ladder context groups is set.
type Match struct {
	ID   string    `db:"id"`
	Kind MatchKind `db:"kind"`

	TournamentID *uuid.UUID `db:"tournament_id"`
	MatchNumber  *int       `db:"match_number"`
	LadderID     *uuid.UUID `db:"ladder_id"`

	// Participant1 is the ladder challenger when Kind is LadderMatch.
	Participant1ID uuid.UUID `db:"participant1_id"`
	Participant2ID uuid.UUID `db:"participant2_id"`

	Status   MatchStatus `db:"status"`
	Deadline time.Time   `db:"deadline"`

	Sub1Scores ScoreLine  `db:"sub1_scores"`
	Sub1Winner *uuid.UUID `db:"sub1_winner"`
	Sub1At     *time.Time `db:"sub1_at"`
	Sub2Scores ScoreLine  `db:"sub2_scores"`
	Sub2Winner *uuid.UUID `db:"sub2_winner"`
	Sub2At     *time.Time `db:"sub2_at"`

	FinalScores ScoreLine  `db:"final_scores"`
	FinalWinner *uuid.UUID `db:"final_winner"`

	ResolutionMethod *ResolutionMethod `db:"resolution_method"`
	ResolvedBy       *uuid.UUID        `db:"resolved_by"`
	ResolvedAt       *time.Time        `db:"resolved_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Side returns 1 or 2 for a participant of this match, 0 otherwise.
func (m *Match) Side(participantID uuid.UUID) int {
	switch participantID {
	case m.Participant1ID:
		return 1
	case m.Participant2ID:
		return 2
	}
	return 0
}

func (m *Match) HasParticipant(participantID uuid.UUID) bool {
	return m.Side(participantID) != 0
}

// Submission returns the recorded submission for side 1 or 2, or nil if
// that side has not reported.
func (m *Match) Submission(side int) (ScoreLine, *uuid.UUID) {
	if side == 1 {
		return m.Sub1Scores, m.Sub1Winner
	}
	return m.Sub2Scores, m.Sub2Winner
}

func (m *Match) BothSubmitted() bool {
	return m.Sub1Winner != nil && m.Sub2Winner != nil
}

// SubmissionsAgree compares the two recorded submissions: exact score
// sequence equality and the same declared winner.
func (m *Match) SubmissionsAgree() bool {
	if !m.BothSubmitted() {
		return false
	}
	return *m.Sub1Winner == *m.Sub2Winner && m.Sub1Scores.Equal(m.Sub2Scores)
}
