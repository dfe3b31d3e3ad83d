package engine

import (
	"testing"

	"github.com/0-th/antenna-client/pkg/types"
)

func newTestSession(selfID int) *Session {
	s := NewSession(selfID, types.Room{ID: "7", Title: "酒馆", Description: "一家小酒馆"})
	s.Clock = func() int64 { return 1000 }
	return s
}

func gameplay(holder int, step string, timer float64) types.GameplayStatus {
	return types.GameplayStatus{
		Holder:       holder,
		Step:         step,
		Timer:        timer,
		Hand:         []string{"安慰", "挑衅"},
		Arena:        []string{"吧台", "后院"},
		Relationship: [][3]float64{{0, 0, 0}},
	}
}

func intp(v int) *int { return &v }

func TestSession_StartsInAssembly(t *testing.T) {
	s := newTestSession(10)
	if s.Phase != PhaseAssembly {
		t.Fatalf("want assembly, got %v", s.Phase)
	}
	if s.SelfSeat != -1 {
		t.Fatalf("want no seat, got %d", s.SelfSeat)
	}
}

func TestSession_LogAppends(t *testing.T) {
	s := newTestSession(10)
	eff := s.Apply(&types.Log{Log: []types.LogEntry{{ID: 1, Content: "hi"}}})
	if eff.Timer != TimerKeep {
		t.Fatalf("log must not touch the timer")
	}
	if s.Log.Len() != 1 {
		t.Fatalf("want 1 entry, got %d", s.Log.Len())
	}
}

func TestSession_RoomStateAssembly(t *testing.T) {
	s := newTestSession(10)
	eff := s.Apply(&types.RoomState{
		Room:    types.Room{ID: "7", Title: "酒馆"},
		Players: []types.Player{seatedPlayer(10, 101), presentPlayer(20)},
		Phase:   "assembly",
	})

	if s.Phase != PhaseAssembly {
		t.Fatalf("want assembly, got %v", s.Phase)
	}
	if s.SelfSeat != 0 {
		t.Fatalf("want seat 0 for own profile, got %d", s.SelfSeat)
	}
	if eff.Timer != TimerCancel {
		t.Fatalf("assembly snapshot must cancel any countdown")
	}
	// The synthesized room notice lands in the log.
	if s.Log.Len() != 1 || s.Log.Entries()[0].ID != types.NoticeID {
		t.Fatalf("want one synthesized notice, got %+v", s.Log.Entries())
	}
}

func TestSession_RoomStateReplayIsIdempotent(t *testing.T) {
	s := newTestSession(10)
	snap := &types.RoomState{
		Room:    types.Room{ID: "7", Title: "酒馆"},
		Players: []types.Player{seatedPlayer(10, 101)},
		Phase:   "assembly",
	}
	s.Apply(snap)
	s.Apply(snap) // reconnect replay

	if s.Log.Len() != 1 {
		t.Fatalf("replayed snapshot must not duplicate the notice, got %d entries", s.Log.Len())
	}
	if len(s.Roster) != 1 || s.SelfSeat != 0 {
		t.Fatalf("roster should be replaced, not accumulated: %d slots", len(s.Roster))
	}
}

func TestSession_RoomStateMyIndexWins(t *testing.T) {
	s := newTestSession(10)
	// Server says seat 2 even though no roster slot matches the local user.
	s.Apply(&types.RoomState{
		Room:    types.Room{ID: "7", Title: "酒馆"},
		MyIndex: intp(2),
		Players: []types.Player{seatedPlayer(20, 102), seatedPlayer(30, 103), seatedPlayer(40, 104)},
		Phase:   "assembly",
	})
	if s.SelfSeat != 2 {
		t.Fatalf("explicit my_index must win, got %d", s.SelfSeat)
	}
}

func TestSession_RoomStateAppointmentRestoresTimer(t *testing.T) {
	s := newTestSession(10)
	eff := s.Apply(&types.RoomState{
		Room:    types.Room{ID: "7", Title: "酒馆"},
		Players: []types.Player{seatedPlayer(10, 101)},
		Phase:   "appointment",
		AppointmentStatus: &types.AppointmentStatus{
			Holder: 0,
			Timer:  12.4,
		},
	})

	if s.Phase != PhaseAppointment {
		t.Fatalf("want appointment, got %v", s.Phase)
	}
	if s.Appointment == nil || s.Appointment.Holder != 0 {
		t.Fatalf("holder not adopted: %+v", s.Appointment)
	}
	if eff.Timer != TimerSet || eff.TimerSeconds != 12.4 {
		t.Fatalf("want remaining 12.4s from snapshot, got %+v", eff)
	}
}

func TestSession_RoomStateGameplayDiscardsPartialSelection(t *testing.T) {
	s := newTestSession(10)
	s.Selection.ChooseArena(0)
	s.Selection.ChooseHand(1)

	st := gameplay(3, types.StepSelection, 25)
	eff := s.Apply(&types.RoomState{
		Room:           types.Room{ID: "7", Title: "酒馆"},
		Players:        []types.Player{seatedPlayer(10, 101)},
		Phase:          "gameplay",
		GameplayStatus: &st,
	})

	if !eff.SelectionDropped {
		t.Fatalf("partial selection must be reported dropped")
	}
	arena, hand, target := s.Selection.Pending()
	if arena != nil || hand != nil || target != nil {
		t.Fatalf("selection should be empty after snapshot")
	}
	if eff.Timer != TimerSet || eff.TimerSeconds != 25 {
		t.Fatalf("gameplay timer not adopted: %+v", eff)
	}
}

func TestSession_StartEntersAppointment(t *testing.T) {
	s := newTestSession(10)
	eff := s.Apply(&types.Start{Holder: 1, MyIndex: intp(0)})

	if s.Phase != PhaseAppointment {
		t.Fatalf("want appointment, got %v", s.Phase)
	}
	if s.Appointment.Holder != 1 {
		t.Fatalf("want holder 1, got %d", s.Appointment.Holder)
	}
	if s.SelfSeat != 0 {
		t.Fatalf("start carries the final seat index, got %d", s.SelfSeat)
	}
	if eff.Timer != TimerSet || eff.TimerSeconds != AppointmentDuration.Seconds() {
		t.Fatalf("want fresh %v countdown, got %+v", AppointmentDuration, eff)
	}
}

func TestSession_AppointmentPassMovesHolderAndResetsTimer(t *testing.T) {
	s := newTestSession(10)
	s.Apply(&types.Start{Holder: 0})

	eff := s.Apply(&types.AppointmentPass{PrevHolder: 0, NextHolder: 1})
	if s.Appointment.Holder != 1 {
		t.Fatalf("want holder 1 after pass, got %d", s.Appointment.Holder)
	}
	if eff.Timer != TimerSet || eff.TimerSeconds != AppointmentDuration.Seconds() {
		t.Fatalf("pass must rearm the full countdown, got %+v", eff)
	}
}

func TestSession_AppointmentAcceptEntersGameplay(t *testing.T) {
	s := newTestSession(10)
	s.Apply(&types.Start{Holder: 0, MyIndex: intp(0)})

	st := gameplay(0, types.StepSelection, 40)
	eff := s.Apply(&types.AppointmentAccept{PrevHolder: intp(0), GameplayStatus: st})

	if s.Phase != PhaseGameplay {
		t.Fatalf("want gameplay, got %v", s.Phase)
	}
	if s.Appointment != nil {
		t.Fatalf("appointment view must clear on accept")
	}
	if eff.Timer != TimerSet || eff.TimerSeconds != 40 {
		t.Fatalf("want gameplay timer 40s, got %+v", eff)
	}
}

func TestSession_AppointmentAcceptDropsStaleSelection(t *testing.T) {
	s := newTestSession(10)
	s.Apply(&types.Start{Holder: 1, MyIndex: intp(0)})
	s.Selection.ChooseArena(0)
	s.Selection.ChooseHand(1)

	// Another seat accepts and opens their selection turn; our leftover
	// picks must be dropped and reported, same as on gameplay_progress.
	eff := s.Apply(&types.AppointmentAccept{GameplayStatus: gameplay(1, types.StepSelection, 40)})
	if !eff.SelectionDropped {
		t.Fatalf("stale picks dropped on accept must be reported")
	}
	if _, ok := s.Selection.Take(); ok {
		t.Fatalf("stale picks must not survive into the new gameplay")
	}
}

func TestSession_GameplayProgressKeepsOwnSelectionTurn(t *testing.T) {
	s := newTestSession(10)
	s.Apply(&types.Start{Holder: 0, MyIndex: intp(0)})
	st := gameplay(0, types.StepSelection, 40)
	s.Apply(&types.AppointmentAccept{GameplayStatus: st})

	s.Selection.ChooseArena(0)

	// Progress that still shows our selection turn keeps the partial pick.
	next := gameplay(0, types.StepSelection, 35)
	eff := s.Apply(&types.GameplayProgress{GameplayStatus: next})
	if eff.SelectionDropped {
		t.Fatalf("own selection turn must not drop picks")
	}
	arena, _, _ := s.Selection.Pending()
	if arena == nil {
		t.Fatalf("partial pick lost on progress")
	}
}

func TestSession_GameplayProgressDropsStaleSelection(t *testing.T) {
	s := newTestSession(10)
	s.Apply(&types.Start{Holder: 0, MyIndex: intp(0)})
	s.Apply(&types.AppointmentAccept{GameplayStatus: gameplay(0, types.StepSelection, 40)})

	s.Selection.ChooseArena(0)
	s.Selection.ChooseHand(1)

	// The turn moved to seat 2; the half-built pick must not leak into it.
	eff := s.Apply(&types.GameplayProgress{GameplayStatus: gameplay(2, types.StepSelection, 40)})
	if !eff.SelectionDropped {
		t.Fatalf("selection guard should report the drop")
	}
	if _, ok := s.Selection.Take(); ok {
		t.Fatalf("stale picks must not survive the turn change")
	}
}

func TestSession_GameEnd(t *testing.T) {
	s := newTestSession(10)
	s.Apply(&types.AppointmentAccept{GameplayStatus: gameplay(0, types.StepSelection, 40)})
	s.Selection.ChooseArena(0)

	eff := s.Apply(&types.GameEnd{
		Relationship: [][3]float64{{1, 2, 3}},
		GrowthPoints: []int{5, 2},
	})

	if s.Phase != PhaseGameEnd {
		t.Fatalf("want game_end, got %v", s.Phase)
	}
	if s.Gameplay != nil {
		t.Fatalf("gameplay view must clear")
	}
	if s.Summary == nil || len(s.Summary.Relationship) != 1 || s.Summary.GrowthPoints[0] != 5 {
		t.Fatalf("summary not adopted: %+v", s.Summary)
	}
	if eff.Timer != TimerCancel {
		t.Fatalf("game end must cancel the countdown")
	}
	if _, ok := s.Selection.Take(); ok {
		t.Fatalf("selection must reset at game end")
	}
}

func TestSession_RoomStateClearsPreviousSummary(t *testing.T) {
	s := newTestSession(10)
	s.Apply(&types.GameEnd{Relationship: [][3]float64{{1, 2, 3}}})
	if s.Summary == nil {
		t.Fatalf("game end should record a summary")
	}

	// A new game starts in the same room: the snapshot carries no summary,
	// so none may linger.
	s.Apply(&types.RoomState{
		Room:    types.Room{ID: "7", Title: "酒馆"},
		Players: []types.Player{seatedPlayer(10, 101)},
		Phase:   "assembly",
	})
	if s.Summary != nil {
		t.Fatalf("previous game's summary must not survive a room snapshot")
	}
	if s.Phase != PhaseAssembly {
		t.Fatalf("want assembly, got %v", s.Phase)
	}
}

func TestSession_ServerErrorIsInert(t *testing.T) {
	s := newTestSession(10)
	s.Apply(&types.Start{Holder: 0})
	before := s.Phase

	eff := s.Apply(&types.ServerError{Error: "It's not your turn"})
	if eff.Timer != TimerKeep || s.Phase != before {
		t.Fatalf("a rejection must not disturb state")
	}
}

func TestSession_PhaseInappropriateMessageStillApplies(t *testing.T) {
	// Server is truth: a gameplay push during assembly is adopted, not refused.
	s := newTestSession(10)
	s.Apply(&types.GameplayProgress{GameplayStatus: gameplay(1, types.StepSelection, 30)})
	if s.Phase != PhaseGameplay {
		t.Fatalf("unexpected push should still move the phase, got %v", s.Phase)
	}
}

func TestSession_DerivedMarkers(t *testing.T) {
	target := 2
	cases := []struct {
		name            string
		setup           func(s *Session)
		holder          int
		storyteller     int
		selfCanAct      bool
		selfStoryteller bool
	}{
		{
			name:   "no turn anywhere",
			setup:  func(s *Session) {},
			holder: -1, storyteller: -1,
		},
		{
			name: "appointment holder",
			setup: func(s *Session) {
				s.Apply(&types.Start{Holder: 1})
			},
			holder: 1, storyteller: -1,
		},
		{
			name: "own selection turn",
			setup: func(s *Session) {
				s.Apply(&types.Start{Holder: 0, MyIndex: intp(0)})
				s.Apply(&types.AppointmentAccept{GameplayStatus: gameplay(0, types.StepSelection, 30)})
			},
			holder: 0, storyteller: -1, selfCanAct: true,
		},
		{
			name: "holder storytelling",
			setup: func(s *Session) {
				s.Apply(&types.Start{Holder: 0, MyIndex: intp(0)})
				s.Apply(&types.AppointmentAccept{GameplayStatus: gameplay(0, types.StepStorytellingHolder, 60)})
			},
			holder: 0, storyteller: 0, selfStoryteller: true,
		},
		{
			name: "target storytelling narrates the target seat",
			setup: func(s *Session) {
				st := gameplay(0, types.StepStorytellingTarget, 60)
				st.Target = &target
				s.Apply(&types.Start{Holder: 0, MyIndex: intp(0)})
				s.Apply(&types.AppointmentAccept{GameplayStatus: st})
			},
			holder: 0, storyteller: 2,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSession(10)
			tc.setup(s)
			if got := s.HolderSeat(); got != tc.holder {
				t.Fatalf("HolderSeat: want %d, got %d", tc.holder, got)
			}
			if got := s.StorytellerSeat(); got != tc.storyteller {
				t.Fatalf("StorytellerSeat: want %d, got %d", tc.storyteller, got)
			}
			if got := s.SelfCanAct(); got != tc.selfCanAct {
				t.Fatalf("SelfCanAct: want %v, got %v", tc.selfCanAct, got)
			}
			if got := s.SelfIsStoryteller(); got != tc.selfStoryteller {
				t.Fatalf("SelfIsStoryteller: want %v, got %v", tc.selfStoryteller, got)
			}
		})
	}
}

func TestSession_CanStart(t *testing.T) {
	s := newTestSession(10)
	if s.CanStart() {
		t.Fatalf("empty roster must not allow start")
	}

	s.Apply(&types.AssemblyUpdate{Players: []types.Player{seatedPlayer(10, 101), presentPlayer(20)}})
	if s.CanStart() {
		t.Fatalf("unseated slot must block start")
	}

	s.Apply(&types.AssemblyUpdate{Players: []types.Player{seatedPlayer(10, 101), seatedPlayer(20, 102)}})
	if !s.CanStart() {
		t.Fatalf("fully seated assembly should allow start")
	}

	s.Apply(&types.Start{Holder: 0})
	if s.CanStart() {
		t.Fatalf("start is assembly-only")
	}
}
