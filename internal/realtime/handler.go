package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"
)

// SnapshotFunc loads the full current board state for a session. It is sent
// to every client on (re)connect so a dropped feed never leaves a client
// assuming it missed nothing.
type SnapshotFunc func(ctx context.Context, sessionID int64) (any, error)

// HandleWebSocket returns an HTTP handler that upgrades connections, sends
// the state snapshot, and runs them as Hub clients in the session's room.
func HandleWebSocket(hub *Hub, snapshot SnapshotFunc, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := strconv.ParseInt(r.URL.Query().Get("session_id"), 10, 64)
		if err != nil || sessionID <= 0 {
			http.Error(w, "invalid session_id", http.StatusBadRequest)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Board links are shared by code; any origin may connect
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		state, err := snapshot(r.Context(), sessionID)
		if err != nil {
			logger.Error("board snapshot", "session_id", sessionID, "error", err)
			conn.Close(ws.StatusInternalError, "snapshot failed")
			return
		}

		data, err := json.Marshal(Message{
			Type:      "board_snapshot",
			Entity:    "board",
			Action:    "snapshot",
			SessionID: sessionID,
			Payload:   state,
		})
		if err != nil {
			logger.Error("marshal snapshot", "session_id", sessionID, "error", err)
			conn.Close(ws.StatusInternalError, "snapshot failed")
			return
		}
		if err := conn.Write(r.Context(), ws.MessageText, data); err != nil {
			return
		}

		client := NewClient(hub, sessionID, conn)
		client.Run(r.Context())
	}
}
