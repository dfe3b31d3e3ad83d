// Package testserver is a scripted double of the game server, used by
// integration tests: it serves the REST context endpoints and a room channel
// that replays a fixed frame script, then records whatever the client sends.
package testserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/0-th/antenna-client/pkg/types"
)

type Server struct {
	Me       types.User
	Room     types.Room
	Profiles []types.Profile
	Cards    json.RawMessage

	// Script frames are written to the channel as soon as a client
	// connects, in order, before anything is read.
	Script [][]byte

	// Commands receives every frame the client sends.
	Commands chan []byte

	srv    *httptest.Server
	logger *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func New(logger *zap.Logger) *Server {
	s := &Server{
		Commands: make(chan []byte, 32),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Get("/me", s.handleMe)
	r.Get("/room/{roomID}", s.handleRoom)
	r.Get("/profile/my", s.handleProfiles)
	r.Get("/cards", s.handleCards)
	r.Get("/room/{roomID}/channel", s.handleChannel)

	s.srv = httptest.NewServer(r)
	return s
}

func (s *Server) URL() string { return s.srv.URL }

func (s *Server) Close() {
	s.DropConn()
	s.srv.Close()
}

// Push sends one live frame over the active channel connection.
func (s *Server) Push(frame []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return http.ErrServerClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, frame)
}

// DropConn severs the active channel connection, simulating a transport
// drop.
func (s *Server) DropConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusGoingAway, "drop")
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Me)
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "roomID") != s.Room.ID {
		http.Error(w, "No such room", http.StatusNotFound)
		return
	}
	writeJSON(w, s.Room)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Profiles)
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.Cards)
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	ctx := r.Context()
	for _, frame := range s.Script {
		if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
			return
		}
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		select {
		case s.Commands <- data:
		default:
			s.logger.Warn("command buffer full, dropping frame")
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
