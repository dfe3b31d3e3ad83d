// Package cards holds the static card-definition table. The table is
// server-published data: the client only uses it to annotate hand cards with
// their cognitive-function requirements and relationship deltas, never to
// resolve outcomes; checks happen server-side.
package cards

import (
	"encoding/json"
	"fmt"
)

// Cognitive function indices, in the order profile stats are laid out.
const (
	Se = iota
	Si
	Ne
	Ni
	Te
	Ti
	Fe
	Fi
)

// FunctionNames maps a condition index to its display name.
var FunctionNames = [8]string{"Se", "Si", "Ne", "Ni", "Te", "Ti", "Fe", "Fi"}

// Card describes one playable card: which cognitive functions a check rolls
// against, the growth value, and the passion/harmony/trust deltas applied on
// a result.
type Card struct {
	Condition          []int  `json:"condition"`
	Growth             int    `json:"growth"`
	RelationshipChange [3]int `json:"relationship_change"`
}

// Table is the card set keyed by card name.
type Table map[string]Card

func Parse(data []byte) (Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse card table: %w", err)
	}
	return t, nil
}

func (t Table) Lookup(name string) (Card, bool) {
	c, ok := t[name]
	return c, ok
}

// Requirements renders a card's condition as function names, for display.
func (t Table) Requirements(name string) []string {
	c, ok := t[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(c.Condition))
	for _, idx := range c.Condition {
		if idx >= 0 && idx < len(FunctionNames) {
			out = append(out, FunctionNames[idx])
		}
	}
	return out
}
