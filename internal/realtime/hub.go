package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is one change-feed event, scoped to a session's board. Entity is
// one of session_task, participant, task_viewer, session; Action is created,
// updated, or deleted.
type Message struct {
	Type      string `json:"type"`
	Entity    string `json:"entity"`
	Action    string `json:"action"`
	SessionID int64  `json:"session_id"`
	ID        int64  `json:"id,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, sessionID, id int64, payload any) Message {
	return Message{
		Type:      fmt.Sprintf("%s_%s", entity, action),
		Entity:    entity,
		Action:    action,
		SessionID: sessionID,
		ID:        id,
		Payload:   payload,
	}
}

// Hub maintains the set of subscribed clients, grouped into per-session rooms,
// and fans change-feed events out to them. Subscriptions are explicit handles:
// a client joins exactly one room for its connection lifetime and is removed
// on teardown, never left dangling across session switches.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[int64]map[*Client]struct{}
	logger *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[int64]map[*Client]struct{}),
		logger: logger,
	}
}

// Register adds a client to its session's room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.sessionID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.sessionID] = room
	}
	room[c] = struct{}{}
	size := len(room)
	h.mu.Unlock()

	h.logger.Debug("client subscribed", "client_id", c.id, "session_id", c.sessionID, "room_size", size)
}

// Unregister removes a client from its room and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	removed := false
	h.mu.Lock()
	if room, ok := h.rooms[c.sessionID]; ok {
		if _, ok := room[c]; ok {
			delete(room, c)
			close(c.send)
			removed = true
		}
		if len(room) == 0 {
			delete(h.rooms, c.sessionID)
		}
	}
	h.mu.Unlock()

	if removed {
		h.logger.Debug("client unsubscribed", "client_id", c.id, "session_id", c.sessionID)
	}
}

// Broadcast sends a message to every client subscribed to the session.
func (h *Hub) Broadcast(sessionID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[sessionID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop message to avoid blocking
		}
	}
}

// ClientCount returns the number of clients subscribed to a session.
func (h *Hub) ClientCount(sessionID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}
