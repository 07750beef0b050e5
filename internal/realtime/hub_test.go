package realtime

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, sessionID int64) *Client {
	return &Client{
		sessionID: sessionID,
		hub:       hub,
		conn:      nil,
		send:      make(chan []byte, sendBufferSize),
	}
}

func TestNewClientAssignsDistinctIDs(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := NewClient(hub, 1, nil)
	c2 := NewClient(hub, 1, nil)

	if c1.ID() == uuid.Nil {
		t.Error("client id should be set")
	}
	if c1.ID() == c2.ID() {
		t.Errorf("clients share id %s", c1.ID())
	}

	// Register/Unregister log the connection id; the round trip must work
	// for freshly minted clients.
	hub.Register(c1)
	hub.Unregister(c1)
	if got := hub.ClientCount(1); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 1)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(1); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(1); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(1); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(1); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastScopedToSession(t *testing.T) {
	hub := NewHub(slog.Default())

	inRoom := mockClient(hub, 7)
	otherRoom := mockClient(hub, 8)
	hub.Register(inRoom)
	hub.Register(otherRoom)

	hub.Broadcast(7, NewMessage("session_task", "updated", 7, 42, nil))

	select {
	case data := <-inRoom.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if msg.Type != "session_task_updated" {
			t.Errorf("type = %q, want %q", msg.Type, "session_task_updated")
		}
		if msg.SessionID != 7 || msg.ID != 42 {
			t.Errorf("session_id/id = %d/%d, want 7/42", msg.SessionID, msg.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("client in room received nothing")
	}

	select {
	case <-otherRoom.send:
		t.Fatal("client in other room should not receive the message")
	default:
	}
}

func TestBroadcastFullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 3)
	hub.Register(c)

	// Overfill the buffer; extra messages must be dropped, not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBufferSize*2; i++ {
			hub.Broadcast(3, NewMessage("participant", "updated", 3, int64(i), nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full client buffer")
	}
}
