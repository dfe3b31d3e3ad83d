package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound messages are what the server pushes over the room channel. Every
// message carries a "type" discriminant; the one exception is the bare
// `{"error": ...}` rejection notice, which is mapped to ServerError.
var ErrUnknownType = errors.New("unknown message type")

// NoTarget is the wire sentinel for "acts without a target".
const NoTarget = -1

// NoticeID marks client-synthesized log entries. Server-assigned ids are
// non-negative.
const NoticeID = -1

type LogEntry struct {
	ID        int    `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Content   string `json:"content"`
}

type User struct {
	ID       int    `json:"id"`
	Nickname string `json:"nickname"`
}

// Room mirrors the server's room representation. The id is a string on the
// wire even though it is numeric server-side.
type Room struct {
	ID          string   `json:"id"`
	Creator     User     `json:"creator"`
	CreatedAt   int64    `json:"created_at"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
}

// Player is one roster slot as the server reports it. ID, Details and Stats
// are all null for a player who is present but not seated.
type Player struct {
	ID      *int            `json:"id"`
	Creator User            `json:"creator"`
	Details json.RawMessage `json:"details,omitempty"`
	Stats   *[8]int         `json:"stats,omitempty"`
	Traits  []string        `json:"traits,omitempty"`
}

// Profile is an owned character sheet returned by the profile endpoints.
type Profile struct {
	ID      int             `json:"id"`
	Creator User            `json:"creator"`
	Details json.RawMessage `json:"details"`
	Stats   [8]int          `json:"stats"`
	Traits  []string        `json:"traits"`
}

type AppointmentStatus struct {
	Holder int     `json:"holder"`
	Timer  float64 `json:"timer"`
}

// GameplayStatus is the per-viewer gameplay payload. Hand, relationship and
// action points are already filtered to the receiving player by the server.
// The action/keyword/result fields are null outside storytelling steps.
type GameplayStatus struct {
	Event            string       `json:"event,omitempty"`
	ActCount         int          `json:"act_count"`
	RoundCount       int          `json:"round_count"`
	MoveCount        int          `json:"move_count"`
	Relationship     [][3]float64 `json:"relationship"`
	ActionPoints     int          `json:"action_points"`
	Hand             []string     `json:"hand"`
	Arena            []string     `json:"arena"`
	Holder           int          `json:"holder"`
	Step             string       `json:"step"`
	Action           *string      `json:"action"`
	Keyword          *int         `json:"keyword"`
	Target           *int         `json:"target"`
	HolderDifficulty *int         `json:"holder_difficulty"`
	HolderResult     *int         `json:"holder_result"`
	TargetDifficulty *int         `json:"target_difficulty"`
	TargetResult     *int         `json:"target_result"`
	Timer            float64      `json:"timer"`
	Queue            []int        `json:"queue"`
}

// Gameplay sub-steps reported in GameplayStatus.Step.
const (
	StepSelection          = "selection"
	StepStorytellingHolder = "storytelling_holder"
	StepStorytellingTarget = "storytelling_target"
)

type Inbound interface{ isInbound() }

type Log struct {
	Log []LogEntry `json:"log"`
}

// RoomState is the full snapshot sent on every (re)connect. It is wholly
// authoritative: the receiver replaces, never merges.
type RoomState struct {
	Room              Room               `json:"room"`
	MyIndex           *int               `json:"my_index"`
	Players           []Player           `json:"players"`
	Phase             string             `json:"phase"`
	AppointmentStatus *AppointmentStatus `json:"appointment_status"`
	GameplayStatus    *GameplayStatus    `json:"gameplay_status"`
}

type AssemblyUpdate struct {
	Players []Player `json:"players"`
}

type Start struct {
	Holder  int  `json:"holder"`
	MyIndex *int `json:"my_index"`
}

type AppointmentPass struct {
	PrevHolder int `json:"prev_holder"`
	NextHolder int `json:"next_holder"`
}

type AppointmentAccept struct {
	PrevHolder     *int           `json:"prev_holder"`
	GameplayStatus GameplayStatus `json:"gameplay_status"`
}

type GameplayProgress struct {
	GameplayStatus GameplayStatus `json:"gameplay_status"`
}

type GameEnd struct {
	Relationship [][3]float64 `json:"relationship"`
	GrowthPoints []int        `json:"growth_points"`
}

type ServerError struct {
	Error string `json:"error"`
}

func (*Log) isInbound()               {}
func (*RoomState) isInbound()         {}
func (*AssemblyUpdate) isInbound()    {}
func (*Start) isInbound()             {}
func (*AppointmentPass) isInbound()   {}
func (*AppointmentAccept) isInbound() {}
func (*GameplayProgress) isInbound()  {}
func (*GameEnd) isInbound()           {}
func (*ServerError) isInbound()       {}

// DecodeInbound maps one wire frame to its concrete message. Unrecognized
// discriminants return ErrUnknownType so old clients stay forward-compatible
// with new server pushes.
func DecodeInbound(data []byte) (Inbound, error) {
	var probe struct {
		Type  string  `json:"type"`
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var m Inbound
	switch probe.Type {
	case "log":
		m = &Log{}
	case "room_state":
		m = &RoomState{}
	case "assembly_update":
		m = &AssemblyUpdate{}
	case "start":
		m = &Start{}
	case "appointment_pass":
		m = &AppointmentPass{}
	case "appointment_accept":
		m = &AppointmentAccept{}
	case "gameplay_progress":
		m = &GameplayProgress{}
	case "game_end":
		m = &GameEnd{}
	case "":
		if probe.Error != nil {
			return &ServerError{Error: *probe.Error}, nil
		}
		return nil, ErrUnknownType
	default:
		return nil, ErrUnknownType
	}

	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode %q payload: %w", probe.Type, err)
	}
	return m, nil
}
