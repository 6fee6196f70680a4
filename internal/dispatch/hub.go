package dispatch

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Session is one subscribed websocket connection. Writes are serialized;
// gorilla/websocket permits one concurrent writer per conn.
type Session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *Session) Send(event interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(event)
}

// Hub holds per-ride rooms. Joining a ride scopes a connection to that
// ride's location and status events only.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Session]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{rooms: make(map[string]map[*Session]struct{}), logger: logger}
}

func (h *Hub) Join(rideID string, conn *websocket.Conn) *Session {
	s := &Session{conn: conn}
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[rideID]
	if !ok {
		room = make(map[*Session]struct{})
		h.rooms[rideID] = room
	}
	room[s] = struct{}{}
	return s
}

func (h *Hub) Leave(rideID string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[rideID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, rideID)
		}
	}
	_ = s.conn.Close()
}

// Broadcast sends an event to every subscriber of the ride's room. Dead
// sessions are dropped; failures never propagate to the caller.
func (h *Hub) Broadcast(rideID string, event interface{}) {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.rooms[rideID]))
	for s := range h.rooms[rideID] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		if err := s.Send(event); err != nil {
			h.logger.Warn("ws send failed, dropping session", "ride_id", rideID, "error", err)
			h.Leave(rideID, s)
		}
	}
}
