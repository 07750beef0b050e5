package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dulbrich/wardclean/internal/board"
	"github.com/dulbrich/wardclean/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func parsePathInt(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// writeBoardError maps the board and store error taxonomy onto HTTP statuses.
// Claim races and stale transitions surface as 409 so clients refresh rather
// than retry.
func writeBoardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, "task already claimed")
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid state transition")
	case errors.Is(err, store.ErrNotAssignee):
		writeError(w, http.StatusForbidden, "task is assigned to someone else")
	case errors.Is(err, board.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, board.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, board.ErrNoIdentity):
		writeError(w, http.StatusUnauthorized, "no identity")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
