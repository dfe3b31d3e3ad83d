package engine

import (
	"github.com/0-th/antenna-client/pkg/types"
)

// Selection accumulates the turn holder's three independent picks: an arena
// keyword, a hand card and a target. Each setter overwrites only its own
// slot. Target distinguishes "unset" from an explicit types.NoTarget.
//
// Selection does not know whose turn it is; the session state machine resets
// it whenever holder or step moves away from the local player's selection
// turn, so a stale partial pick can never combine with a new turn's picks.
type Selection struct {
	arena  *int
	hand   *int
	target *int
}

func (s *Selection) ChooseArena(index int) { s.arena = &index }
func (s *Selection) ChooseHand(index int)  { s.hand = &index }
func (s *Selection) ChooseTarget(seat int) { s.target = &seat }

func (s *Selection) Reset() {
	s.arena, s.hand, s.target = nil, nil, nil
}

// Pending reports which slots are filled, for display purposes.
func (s *Selection) Pending() (arena, hand, target *int) {
	return s.arena, s.hand, s.target
}

// Take returns the completed action and clears all three slots in the same
// step. It returns false while any slot is unset, and can return true at
// most once per completed triple; the reset is what guarantees at-most-once
// emission.
func (s *Selection) Take() (types.ActionCmd, bool) {
	if s.arena == nil || s.hand == nil || s.target == nil {
		return types.ActionCmd{}, false
	}
	cmd := types.ActionCmd{
		HandIndex:  *s.hand,
		ArenaIndex: *s.arena,
		Target:     *s.target,
	}
	s.Reset()
	return cmd, true
}
