package session

import (
	"fmt"

	"github.com/jmorrisey/pokedraft/internal/models"
)

// Slot identifies who is on the clock for one overall pick number.
type Slot struct {
	Round       int
	PickInRound int
	Overall     int
	TeamID      int64
}

// SlotFor resolves the overall pick number to a turn slot. participants must
// be sorted by draft position. customOrder is consulted only for CUSTOM
// drafts and is indexed by overall pick.
func SlotFor(draftType models.DraftType, participants []models.Participant, customOrder []int64, overall int) (Slot, error) {
	n := len(participants)
	if n == 0 {
		return Slot{}, fmt.Errorf("no participants registered")
	}
	if overall < 1 {
		return Slot{}, fmt.Errorf("overall pick must be >= 1, got %d", overall)
	}

	round := (overall-1)/n + 1
	pickInRound := (overall-1)%n + 1

	slot := Slot{Round: round, PickInRound: pickInRound, Overall: overall}

	switch draftType {
	case models.DraftTypeSnake:
		idx := pickInRound - 1
		if round%2 == 0 {
			idx = n - pickInRound
		}
		slot.TeamID = participants[idx].TeamID
	case models.DraftTypeLinear:
		slot.TeamID = participants[pickInRound-1].TeamID
	case models.DraftTypeCustom:
		if overall > len(customOrder) {
			return Slot{}, fmt.Errorf("overall pick %d exceeds custom order table (%d slots)", overall, len(customOrder))
		}
		slot.TeamID = customOrder[overall-1]
	default:
		return Slot{}, fmt.Errorf("unknown draft type: %s", draftType)
	}

	return slot, nil
}

// ValidateCustomOrder checks that an explicit per-overall-pick assignment
// table covers exactly participants x rounds slots, with every team appearing
// exactly rounds times.
func ValidateCustomOrder(participants []models.Participant, rounds int, order []int64) error {
	n := len(participants)
	if rounds <= 0 {
		return fmt.Errorf("custom drafts require a positive round count")
	}
	if len(order) != n*rounds {
		return fmt.Errorf("custom order covers %d slots, want %d (%d teams x %d rounds)", len(order), n*rounds, n, rounds)
	}

	known := make(map[int64]bool, n)
	for _, p := range participants {
		known[p.TeamID] = true
	}

	counts := make(map[int64]int, n)
	for _, teamID := range order {
		if !known[teamID] {
			return fmt.Errorf("custom order references team %d which is not a participant", teamID)
		}
		counts[teamID]++
	}
	for teamID, c := range counts {
		if c != rounds {
			return fmt.Errorf("team %d appears %d times in custom order, want %d", teamID, c, rounds)
		}
	}
	return nil
}
