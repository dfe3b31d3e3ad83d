package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/0-th/antenna-client/internal/engine"
	"github.com/0-th/antenna-client/pkg/types"
)

// Sender is the transport capability the session needs: deliver one command
// to the server. The websocket connection implements it.
type Sender interface {
	Send(ctx context.Context, cmd types.Outbound) error
}

type Msg interface{ isSessionMsg() }

// FromServer carries one raw frame delivered by the transport.
type FromServer struct {
	Data []byte
}

// Command forwards a player intent verbatim (seat, start, comment, ...).
// Selection picks go through ChooseArena/ChooseHand/ChooseTarget instead so
// the accumulator controls when the action command is emitted.
type Command struct {
	Cmd types.Outbound
}

type ChooseArena struct{ Index int }
type ChooseHand struct{ Index int }
type ChooseTarget struct{ Seat int }

// ConnState reports transport connectivity, surfaced in snapshots.
type ConnState struct {
	Online bool
}

type Join struct {
	SubscriberID string
	Outbox       chan Snapshot
}

type Leave struct{ SubscriberID string }

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

// timerFired is the countdown tick. Generation-tagged so a fire scheduled by
// a superseded timer is dropped instead of racing the replacement.
type timerFired struct {
	gen uint64
}

func (FromServer) isSessionMsg()   {}
func (Command) isSessionMsg()      {}
func (ChooseArena) isSessionMsg()  {}
func (ChooseHand) isSessionMsg()   {}
func (ChooseTarget) isSessionMsg() {}
func (ConnState) isSessionMsg()    {}
func (Join) isSessionMsg()         {}
func (Leave) isSessionMsg()        {}
func (GetState) isSessionMsg()     {}
func (Shutdown) isSessionMsg()     {}
func (timerFired) isSessionMsg()   {}

// Snapshot is the immutable-by-convention view handed to subscribers after
// every state change. The presentation layer renders from it and never
// touches the session directly.
type Snapshot struct {
	Version  int
	Online   bool
	Room     types.Room
	Phase    engine.Phase
	Roster   engine.Roster
	SelfSeat int

	HolderSeat        int
	StorytellerSeat   int
	SelfCanAct        bool
	SelfIsStoryteller bool
	CanStart          bool

	Appointment *engine.Appointment
	Gameplay    *types.GameplayStatus
	Summary     *engine.Summary

	Log []types.LogEntry

	// TimerSeconds is the whole-second countdown display, nil when no
	// countdown is live.
	TimerSeconds *int
}

// View reflects internal state for tests without data races.
type View struct {
	Version        int
	NumSubscribers int
	Phase          engine.Phase
	SelfSeat       int
	TimerSeconds   *int
}

// Session is the single-threaded actor owning one engine.Session. All
// mutation happens on its loop goroutine, one inbox message at a time, so
// two server messages never interleave mid-handler.
type Session struct {
	inbox   chan Msg
	state   *engine.Session
	version int
	subs    map[string]chan Snapshot
	sender  Sender
	logger  *zap.Logger

	online bool

	timerGen     uint64
	timerExpires time.Time
	timerHandle  *time.Timer
	timerSecs    *int

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, selfID int, room types.Room, sender Sender, logger *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:  make(chan Msg, 64),
		state:  engine.NewSession(selfID, room),
		subs:   make(map[string]chan Snapshot),
		sender: sender,
		logger: logger.With(zap.String("room", room.ID)),
		ctx:    ctx,
		cancel: cancel,
	}
	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// The initial snapshot delivery is non-blocking for the
				// same reason broadcast is: a subscriber that cannot take
				// it would stall the whole actor.
				select {
				case msg.Outbox <- s.snapshot():
					s.subs[msg.SubscriberID] = msg.Outbox
				default:
					close(msg.Outbox)
				}

			case Leave:
				delete(s.subs, msg.SubscriberID)

			case FromServer:
				s.handleFrame(msg.Data)

			case Command:
				s.send(msg.Cmd)

			case ChooseArena:
				s.state.Selection.ChooseArena(msg.Index)
				s.afterChoose()

			case ChooseHand:
				s.state.Selection.ChooseHand(msg.Index)
				s.afterChoose()

			case ChooseTarget:
				s.state.Selection.ChooseTarget(msg.Seat)
				s.afterChoose()

			case ConnState:
				s.online = msg.Online
				s.bump()

			case timerFired:
				s.handleTimerFired(msg.gen)

			case GetState:
				msg.Reply <- View{
					Version:        s.version,
					NumSubscribers: len(s.subs),
					Phase:          s.state.Phase,
					SelfSeat:       s.state.SelfSeat,
					TimerSeconds:   s.timerSecs,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// handleFrame is the message router: decode, then dispatch into the engine.
// Malformed payloads and unknown types are dropped without touching state,
// so the connection stays usable and future message types stay harmless.
func (s *Session) handleFrame(data []byte) {
	m, err := types.DecodeInbound(data)
	if err != nil {
		if errors.Is(err, types.ErrUnknownType) {
			s.logger.Debug("ignoring unknown message type")
		} else {
			s.logger.Warn("dropping malformed frame", zap.Error(err))
		}
		return
	}

	if se, ok := m.(*types.ServerError); ok {
		s.logger.Warn("server rejected command", zap.String("reason", se.Error))
		return
	}

	eff := s.state.Apply(m)
	if eff.SelectionDropped {
		s.logger.Debug("discarded partial selection")
	}
	switch eff.Timer {
	case engine.TimerSet:
		s.setTimer(eff.TimerSeconds)
	case engine.TimerCancel:
		s.cancelTimer()
	}
	s.bump()
}

// afterChoose runs the completion check the accumulator contract requires
// after every setter: the instant all three slots are set, the action is
// emitted exactly once and the slots reset.
func (s *Session) afterChoose() {
	if cmd, ok := s.state.Selection.Take(); ok {
		s.send(cmd)
	}
	s.bump()
}

func (s *Session) send(cmd types.Outbound) {
	ctx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
	defer cancel()
	if err := s.sender.Send(ctx, cmd); err != nil {
		s.logger.Warn("send failed", zap.Error(err))
	}
}

////// Countdown reconciliation //////

// setTimer supersedes any pending countdown with a fresh one. Bumping the
// generation is the cancellation: a stale AfterFunc fire finds its gen
// outdated and is dropped, so a reconnect replaying room_state can never
// leave two countdowns ticking.
func (s *Session) setTimer(seconds float64) {
	s.timerGen++
	s.stopTimerHandle()
	s.timerExpires = time.Now().Add(time.Duration(seconds * float64(time.Second)))
	s.updateTimerDisplay()
}

func (s *Session) cancelTimer() {
	s.timerGen++
	s.stopTimerHandle()
	s.timerSecs = nil
}

func (s *Session) stopTimerHandle() {
	if s.timerHandle != nil {
		s.timerHandle.Stop()
		s.timerHandle = nil
	}
}

func (s *Session) handleTimerFired(gen uint64) {
	if gen != s.timerGen {
		return // superseded countdown
	}
	s.timerHandle = nil
	s.updateTimerDisplay()
	s.bump()
}

// updateTimerDisplay recomputes the displayed whole seconds from the
// absolute expiry (never by decrementing, so coarse scheduling cannot skew
// it) and re-arms one fire at the next second boundary.
func (s *Session) updateTimerDisplay() {
	secs := engine.DisplaySeconds(time.Until(s.timerExpires))
	s.timerSecs = &secs
	if secs == 0 {
		return
	}

	next := time.Until(s.timerExpires.Add(-time.Duration(secs-1) * time.Second))
	if next < time.Millisecond {
		next = time.Millisecond
	}
	gen := s.timerGen
	s.timerHandle = time.AfterFunc(next, func() {
		select {
		case s.inbox <- timerFired{gen: gen}:
		case <-s.ctx.Done():
		}
	})
}

////// Snapshot fan-out //////

func (s *Session) bump() {
	s.version++
	s.broadcast(s.snapshot())
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		Version:           s.version,
		Online:            s.online,
		Room:              s.state.Room,
		Phase:             s.state.Phase,
		Roster:            s.state.Roster,
		SelfSeat:          s.state.SelfSeat,
		HolderSeat:        s.state.HolderSeat(),
		StorytellerSeat:   s.state.StorytellerSeat(),
		SelfCanAct:        s.state.SelfCanAct(),
		SelfIsStoryteller: s.state.SelfIsStoryteller(),
		CanStart:          s.state.CanStart(),
		Appointment:       s.state.Appointment,
		Gameplay:          s.state.Gameplay,
		Summary:           s.state.Summary,
		Log:               s.state.Log.Entries(),
		TimerSeconds:      s.timerSecs,
	}
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Subscriber is slow or full; drop it.
			close(ch)
			delete(s.subs, id)
		}
	}
}

func (s *Session) shutdown() {
	s.cancelTimer()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.cancel()
}
