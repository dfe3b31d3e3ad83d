package types

import (
	"encoding/json"
	"fmt"
)

// Outbound commands are player intents sent to the server. They use the same
// "type" tagging convention as inbound messages. The closed interface forces
// an exhaustive switch in EncodeOutbound: adding a command without an encoder
// is a compile-time hole the default case turns into an explicit error.
type Outbound interface{ isOutbound() }

// StartCmd asks the server to leave assembly. Only honored for the room
// creator; the local phase changes when the server confirms via a push.
type StartCmd struct{}

type SeatCmd struct {
	ProfileID int `json:"profile_id"`
}

type WithdrawCmd struct{}

type AppointmentAcceptCmd struct{}

type AppointmentPassCmd struct{}

// ActionCmd is the completed selection triple. Target NoTarget means the
// card is played without a target.
type ActionCmd struct {
	HandIndex  int `json:"hand_index"`
	ArenaIndex int `json:"arena_index"`
	Target     int `json:"target"`
}

type QueueCmd struct{}

type CommentCmd struct {
	Text string `json:"text"`
}

type StorytellingEndCmd struct{}

func (StartCmd) isOutbound()             {}
func (SeatCmd) isOutbound()              {}
func (WithdrawCmd) isOutbound()          {}
func (AppointmentAcceptCmd) isOutbound() {}
func (AppointmentPassCmd) isOutbound()   {}
func (ActionCmd) isOutbound()            {}
func (QueueCmd) isOutbound()             {}
func (CommentCmd) isOutbound()           {}
func (StorytellingEndCmd) isOutbound()   {}

func EncodeOutbound(cmd Outbound) ([]byte, error) {
	switch c := cmd.(type) {
	case StartCmd:
		return json.Marshal(tagged{"start"})
	case SeatCmd:
		return json.Marshal(struct {
			Type      string `json:"type"`
			ProfileID int    `json:"profile_id"`
		}{"seat", c.ProfileID})
	case WithdrawCmd:
		return json.Marshal(tagged{"withdraw"})
	case AppointmentAcceptCmd:
		return json.Marshal(tagged{"appointment_accept"})
	case AppointmentPassCmd:
		return json.Marshal(tagged{"appointment_pass"})
	case ActionCmd:
		if c.Target == NoTarget {
			// The server treats a missing target as "no target".
			return json.Marshal(struct {
				Type       string `json:"type"`
				HandIndex  int    `json:"hand_index"`
				ArenaIndex int    `json:"arena_index"`
			}{"action", c.HandIndex, c.ArenaIndex})
		}
		return json.Marshal(struct {
			Type       string `json:"type"`
			HandIndex  int    `json:"hand_index"`
			ArenaIndex int    `json:"arena_index"`
			Target     int    `json:"target"`
		}{"action", c.HandIndex, c.ArenaIndex, c.Target})
	case QueueCmd:
		return json.Marshal(tagged{"queue"})
	case CommentCmd:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{"comment", c.Text})
	case StorytellingEndCmd:
		return json.Marshal(tagged{"storytelling_end"})
	default:
		return nil, fmt.Errorf("unencodable command %T", cmd)
	}
}

type tagged struct {
	Type string `json:"type"`
}
