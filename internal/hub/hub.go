package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/0-th/antenna-client/internal/session"
)

type HubMsg interface{ isHubMsg() }

// Register installs a session for a room. If the room already has one, the
// existing session wins and the caller should shut the offered one down.
type Register struct {
	RoomID  string
	Session *session.Session
	Reply   chan *session.Session
}

type Get struct {
	RoomID string
	Reply  chan *session.Session
}

type Remove struct {
	RoomID string
}

type ShutdownHub struct{}

func (Register) isHubMsg()    {}
func (Get) isHubMsg()         {}
func (Remove) isHubMsg()      {}
func (ShutdownHub) isHubMsg() {}

// Hub tracks the live room sessions of one client, keyed by room id, and
// guarantees one session actor per room.
type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 16),
		sessions: make(map[string]*session.Session),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Register:
				if existing := h.sessions[msg.RoomID]; existing != nil {
					msg.Reply <- existing
					break
				}
				h.sessions[msg.RoomID] = msg.Session
				h.logger.Debug("session registered", zap.String("room", msg.RoomID))
				msg.Reply <- msg.Session

			case Get:
				msg.Reply <- h.sessions[msg.RoomID] // may be nil

			case Remove:
				if sess := h.sessions[msg.RoomID]; sess != nil {
					sess.Inbox() <- session.Shutdown{}
					delete(h.sessions, msg.RoomID)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, sess := range h.sessions {
		sess.Inbox() <- session.Shutdown{}
		delete(h.sessions, id)
	}
	h.cancel()
}
