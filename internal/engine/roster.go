package engine

import (
	"encoding/json"

	"github.com/0-th/antenna-client/pkg/types"
)

// PlayerSlot is one seat position. The creator identity is always known; the
// profile fields are present only while the slot is seated. A slot is either
// fully seated or fully empty; a snapshot with a partial seat is normalized
// down to empty.
type PlayerSlot struct {
	Creator   types.User
	ProfileID *int
	Details   json.RawMessage
	Stats     *[8]int
	Traits    []string
}

func (p PlayerSlot) Seated() bool { return p.ProfileID != nil }

// Roster is the ordered seat list. The index is the seat number: stable once
// assigned and never reused within a session, so roster updates replace the
// whole slice rather than patch it.
type Roster []PlayerSlot

func RosterFrom(players []types.Player) Roster {
	roster := make(Roster, 0, len(players))
	for _, p := range players {
		slot := PlayerSlot{Creator: p.Creator}
		if p.ID != nil && p.Stats != nil && p.Details != nil {
			id := *p.ID
			stats := *p.Stats
			slot.ProfileID = &id
			slot.Details = p.Details
			slot.Stats = &stats
			slot.Traits = p.Traits
		}
		roster = append(roster, slot)
	}
	return roster
}

// SeatOf returns the seat index whose seated profile belongs to userID, or
// -1. Presence alone (an unseated creator slot) does not count as a seat.
func (r Roster) SeatOf(userID int) int {
	for i, slot := range r {
		if slot.Seated() && slot.Creator.ID == userID {
			return i
		}
	}
	return -1
}

// AllSeated reports whether every slot is occupied, the assembly-phase
// precondition for the start command.
func (r Roster) AllSeated() bool {
	for _, slot := range r {
		if !slot.Seated() {
			return false
		}
	}
	return true
}
