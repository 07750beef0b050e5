package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ws "github.com/coder/websocket"
)

func TestHandleWebSocketSendsSnapshotFirst(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	hub := NewHub(logger)
	snapshot := func(ctx context.Context, sessionID int64) (any, error) {
		return map[string]any{"session_id": sessionID}, nil
	}
	srv := httptest.NewServer(HandleWebSocket(hub, snapshot, logger))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, srv.URL+"?session_id=7", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	// The very first frame is the full state, before any feed events.
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if msg.Type != "board_snapshot" {
		t.Fatalf("first frame type = %q, want board_snapshot", msg.Type)
	}
	if msg.SessionID != 7 {
		t.Errorf("snapshot session_id = %d, want 7", msg.SessionID)
	}

	// Once registered, the connection receives room broadcasts.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(7) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never joined the room")
		}
		time.Sleep(10 * time.Millisecond)
	}
	hub.Broadcast(7, NewMessage("session_task", "updated", 7, 42, nil))

	_, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if msg.Type != "session_task_updated" || msg.ID != 42 {
		t.Errorf("broadcast frame = %+v, want session_task_updated/42", msg)
	}
}

func TestHandleWebSocketRejectsBadSessionID(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	hub := NewHub(logger)
	snapshot := func(ctx context.Context, sessionID int64) (any, error) {
		t.Error("snapshot should not be called")
		return nil, nil
	}
	srv := httptest.NewServer(HandleWebSocket(hub, snapshot, logger))
	defer srv.Close()

	for _, q := range []string{"", "?session_id=abc", "?session_id=0"} {
		resp, err := http.Get(srv.URL + q)
		if err != nil {
			t.Fatalf("get %q: %v", q, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%q status = %d, want 400", q, resp.StatusCode)
		}
	}
}
