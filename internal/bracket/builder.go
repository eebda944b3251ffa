// Package bracket holds the pure single-elimination bracket math: seed
// shuffling, balanced bye placement, and slot wiring. Persistence and
// advancement live in the service layer.
package bracket

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// Slot is one planned node of the elimination tree. Round-1 slots carry
// participants; later rounds carry back-references to the two matches
// whose winners feed them.
type Slot struct {
	Round        int
	SlotOrder    int
	MatchNumber  int
	Participant1 *uuid.UUID
	Participant2 *uuid.UUID

	// Bye marks a round-1 slot with a single participant: Winner is
	// preset and no playable match exists for it.
	Bye    bool
	Winner *uuid.UUID

	Feeder1Match *int
	Feeder2Match *int
}

// Blueprint is a fully wired bracket ready to persist: ceil(log2 N)
// rounds, match numbers assigned sequentially from round 1 onward.
type Blueprint struct {
	Rounds int
	Slots  []Slot
}

// RoundSlots returns the blueprint slots for one round, in slot order.
func (b *Blueprint) RoundSlots(round int) []Slot {
	var out []Slot
	for _, s := range b.Slots {
		if s.Round == round {
			out = append(out, s)
		}
	}
	return out
}

// Build seeds the participants into a single-elimination bracket.
// The shuffle source is injected so tests can fix the seeding order.
func Build(participants []uuid.UUID, rnd *rand.Rand) (*Blueprint, error) {
	n := len(participants)
	if n < 2 {
		return nil, fmt.Errorf("at least 2 participants required, got %d", n)
	}

	numRounds := 0
	for (1 << numRounds) < n {
		numRounds++
	}
	totalSlots := 1 << numRounds
	numByes := totalSlots - n

	seeds := make([]uuid.UUID, n)
	copy(seeds, participants)
	if rnd != nil {
		rnd.Shuffle(n, func(i, j int) {
			seeds[i], seeds[j] = seeds[j], seeds[i]
		})
	}

	byePositions := byePositions(totalSlots, numByes)

	positions := make([]*uuid.UUID, totalSlots)
	next := 0
	for _, seed := range seeds {
		for byePositions[next] {
			next++
		}
		id := seed
		positions[next] = &id
		next++
	}

	bp := &Blueprint{Rounds: numRounds}

	matchNumber := 0
	for i := 0; i < totalSlots; i += 2 {
		matchNumber++
		slot := Slot{
			Round:        1,
			SlotOrder:    i/2 + 1,
			MatchNumber:  matchNumber,
			Participant1: positions[i],
			Participant2: positions[i+1],
		}

		switch {
		case slot.Participant1 == nil && slot.Participant2 == nil:
			return nil, fmt.Errorf("round 1 match %d has no participants", matchNumber)
		case slot.Participant1 == nil:
			slot.Bye = true
			slot.Winner = slot.Participant2
		case slot.Participant2 == nil:
			slot.Bye = true
			slot.Winner = slot.Participant1
		}

		bp.Slots = append(bp.Slots, slot)
	}

	// Later rounds: empty slots wired to the two matches that feed them.
	prevRoundFirst := 1
	for r := 2; r <= numRounds; r++ {
		matchesInRound := totalSlots >> uint(r)
		roundFirst := matchNumber + 1
		for j := 0; j < matchesInRound; j++ {
			matchNumber++
			f1 := prevRoundFirst + 2*j
			f2 := f1 + 1
			bp.Slots = append(bp.Slots, Slot{
				Round:        r,
				SlotOrder:    j + 1,
				MatchNumber:  matchNumber,
				Feeder1Match: &f1,
				Feeder2Match: &f2,
			})
		}
		prevRoundFirst = roundFirst
	}

	return bp, nil
}

// byePositions spreads byes across the bracket with the balanced
// bisection rule: start from position 0 and repeatedly double the
// candidate set with a halving step, so byes land in distinct pairings.
func byePositions(totalSlots, numByes int) map[int]bool {
	out := make(map[int]bool, numByes)
	if numByes == 0 {
		return out
	}

	candidates := []int{0}
	step := totalSlots
	for len(candidates) < numByes {
		step /= 2
		doubled := make([]int, 0, len(candidates)*2)
		for _, p := range candidates {
			doubled = append(doubled, p, p+step)
		}
		candidates = doubled
	}

	for _, p := range candidates[:numByes] {
		out[p] = true
	}
	return out
}
