package engine

import (
	"fmt"
	"time"

	"github.com/0-th/antenna-client/pkg/types"
)

type Phase string

const (
	PhaseAssembly    Phase = "assembly"
	PhaseAppointment Phase = "appointment"
	PhaseGameplay    Phase = "gameplay"
	PhaseGameEnd     Phase = "game_end"
)

// Appointment is the local view of the appointment phase: who currently
// holds the offer to start.
type Appointment struct {
	Holder int
}

// Summary is the final game_end payload.
type Summary struct {
	Relationship [][3]float64
	GrowthPoints []int
}

// TimerOp tells the owner of the countdown schedule what a message did to
// the server-side timer.
type TimerOp int

const (
	TimerKeep TimerOp = iota
	TimerSet
	TimerCancel
)

// Effect is the side-channel result of applying one inbound message: the
// timer directive and whether a partial selection was discarded. State
// mutation itself happens in place on the Session.
type Effect struct {
	Timer            TimerOp
	TimerSeconds     float64
	SelectionDropped bool
}

func setTimer(seconds float64) Effect {
	return Effect{Timer: TimerSet, TimerSeconds: seconds}
}

// Session is the reconciled local view of one room membership. All mutation
// goes through Apply (server pushes) and the Selection accumulator (local
// intents); everything else on it is a read or a derived marker.
//
// Session is deliberately pure: no goroutines, no I/O, no wall clock beyond
// the injectable Clock used to timestamp synthesized log entries. The
// single-threaded session actor owns it and runs each Apply to completion.
type Session struct {
	SelfID int
	RoomID string
	Room   types.Room

	Phase    Phase
	Roster   Roster
	SelfSeat int
	Log      *EventLog

	Appointment *Appointment
	Gameplay    *types.GameplayStatus
	Summary     *Summary

	Selection Selection

	// Clock stamps synthesized log notices. Tests pin it.
	Clock func() int64
}

func NewSession(selfID int, room types.Room) *Session {
	return &Session{
		SelfID:   selfID,
		RoomID:   room.ID,
		Room:     room,
		Phase:    PhaseAssembly,
		Roster:   Roster{},
		SelfSeat: -1,
		Log:      NewEventLog(),
		Clock:    func() int64 { return time.Now().Unix() },
	}
}

// Apply folds one server push into the session. It never fails: unexpected
// order and phase-inappropriate payloads are tolerated by adopting whatever
// the server reports, because the stream is eventually consistent and the
// latest authoritative snapshot always wins.
func (s *Session) Apply(m types.Inbound) Effect {
	switch m := m.(type) {
	case *types.Log:
		s.Log.Append(m.Log)
		return Effect{}

	case *types.RoomState:
		return s.applyRoomState(m)

	case *types.AssemblyUpdate:
		s.replaceRoster(m.Players, nil)
		return Effect{}

	case *types.Start:
		s.Phase = PhaseAppointment
		s.Appointment = &Appointment{Holder: m.Holder}
		s.Gameplay = nil
		if m.MyIndex != nil {
			s.SelfSeat = *m.MyIndex
		}
		return setTimer(AppointmentDuration.Seconds())

	case *types.AppointmentPass:
		s.Phase = PhaseAppointment
		s.Appointment = &Appointment{Holder: m.NextHolder}
		return setTimer(AppointmentDuration.Seconds())

	case *types.AppointmentAccept:
		st := m.GameplayStatus
		dropped := s.enterGameplay(&st)
		eff := setTimer(st.Timer)
		eff.SelectionDropped = dropped
		return eff

	case *types.GameplayProgress:
		st := m.GameplayStatus
		dropped := s.enterGameplay(&st)
		eff := setTimer(st.Timer)
		eff.SelectionDropped = dropped
		return eff

	case *types.GameEnd:
		s.Phase = PhaseGameEnd
		s.Gameplay = nil
		s.Appointment = nil
		s.Summary = &Summary{
			Relationship: m.Relationship,
			GrowthPoints: m.GrowthPoints,
		}
		s.Selection.Reset()
		return Effect{Timer: TimerCancel}

	case *types.ServerError:
		// Surfaced by the actor's logger; no state to reconcile.
		return Effect{}
	}
	return Effect{}
}

// applyRoomState adopts a full snapshot. Locally accumulated partial
// selection and timer state are discarded, never merged.
func (s *Session) applyRoomState(m *types.RoomState) Effect {
	s.Room = m.Room
	if content := describeRoom(m.Room); content != "" {
		s.Log.AppendNotice(content, s.Clock())
	}
	s.replaceRoster(m.Players, m.MyIndex)
	// The snapshot carries no summary; a previous game's result must not
	// outlive it.
	s.Summary = nil

	arena, hand, _ := s.Selection.Pending()
	dropped := arena != nil || hand != nil
	s.Selection.Reset()

	eff := Effect{Timer: TimerCancel, SelectionDropped: dropped}
	switch m.Phase {
	case "assembly":
		s.Phase = PhaseAssembly
		s.Appointment = nil
		s.Gameplay = nil
	case "appointment":
		s.Phase = PhaseAppointment
		s.Gameplay = nil
		if m.AppointmentStatus != nil {
			s.Appointment = &Appointment{Holder: m.AppointmentStatus.Holder}
			eff = setTimer(m.AppointmentStatus.Timer)
			eff.SelectionDropped = dropped
		}
	case "gameplay":
		if m.GameplayStatus != nil {
			st := *m.GameplayStatus
			s.enterGameplay(&st)
			eff = setTimer(st.Timer)
			eff.SelectionDropped = dropped
		} else {
			s.Phase = PhaseGameplay
		}
	}
	return eff
}

// enterGameplay installs a gameplay status and applies the selection guard:
// whenever the update leaves the local player without an active selection
// turn, any partial picks from a previous turn are dropped. Reports whether
// something was actually dropped.
func (s *Session) enterGameplay(st *types.GameplayStatus) bool {
	s.Phase = PhaseGameplay
	s.Appointment = nil
	s.Gameplay = st

	if s.SelfCanAct() {
		return false
	}
	arena, hand, target := s.Selection.Pending()
	s.Selection.Reset()
	return arena != nil || hand != nil || target != nil
}

func (s *Session) replaceRoster(players []types.Player, myIndex *int) {
	s.Roster = RosterFrom(players)
	// Seat indices are positional; always recompute, never carry over.
	s.SelfSeat = s.Roster.SeatOf(s.SelfID)
	if myIndex != nil {
		s.SelfSeat = *myIndex
	}
}

func describeRoom(room types.Room) string {
	if room.Title == "" {
		return ""
	}
	if room.Description == "" {
		return fmt.Sprintf("进入房间【%s】", room.Title)
	}
	return fmt.Sprintf("进入房间【%s】：%s", room.Title, room.Description)
}

////// Derived markers //////

// HolderSeat is the seat currently holding the turn (appointment offer or
// gameplay move), or -1.
func (s *Session) HolderSeat() int {
	switch {
	case s.Appointment != nil:
		return s.Appointment.Holder
	case s.Gameplay != nil:
		return s.Gameplay.Holder
	}
	return -1
}

// StorytellerSeat is the seat currently telling the story, or -1 outside
// storytelling steps. During storytelling_target it is the action's target,
// not the holder.
func (s *Session) StorytellerSeat() int {
	if s.Gameplay == nil {
		return -1
	}
	switch s.Gameplay.Step {
	case types.StepStorytellingHolder:
		return s.Gameplay.Holder
	case types.StepStorytellingTarget:
		if s.Gameplay.Target != nil {
			return *s.Gameplay.Target
		}
	}
	return -1
}

// SelfCanAct reports whether the local player may pick a card right now:
// they hold the turn and the step is selection.
func (s *Session) SelfCanAct() bool {
	return s.Gameplay != nil &&
		s.Gameplay.Step == types.StepSelection &&
		s.SelfSeat >= 0 &&
		s.Gameplay.Holder == s.SelfSeat
}

// SelfIsStoryteller reports whether the local player should be narrating.
func (s *Session) SelfIsStoryteller() bool {
	seat := s.StorytellerSeat()
	return seat >= 0 && seat == s.SelfSeat
}

// CanStart reports start-button eligibility during assembly: every present
// slot must be seated. The server re-checks; this only drives the UI state.
func (s *Session) CanStart() bool {
	return s.Phase == PhaseAssembly && len(s.Roster) > 0 && s.Roster.AllSeated()
}
