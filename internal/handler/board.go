package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dulbrich/wardclean/internal/board"
	"github.com/dulbrich/wardclean/internal/identity"
	"github.com/dulbrich/wardclean/internal/model"
	"github.com/dulbrich/wardclean/internal/store"
)

type BoardHandler struct {
	boards       *board.Service
	sessions     *store.SessionStore
	participants *store.ParticipantStore
	logger       *slog.Logger
}

func NewBoardHandler(bs *board.Service, ss *store.SessionStore, ps *store.ParticipantStore, logger *slog.Logger) *BoardHandler {
	return &BoardHandler{boards: bs, sessions: ss, participants: ps, logger: logger}
}

func guestCookieName(sessionID int64) string {
	return fmt.Sprintf("wardclean_guest_%d", sessionID)
}

// actorIdentity resolves who is acting: the authenticated user if logged in,
// otherwise the guest temp id from the X-Guest-ID header or the per-session
// guest cookie. Returns a zero identity when nothing is presented.
func actorIdentity(r *http.Request, sessionID int64) identity.Identity {
	if ac, ok := identity.AuthFromContext(r.Context()); ok {
		return identity.Authenticated(ac.UserID)
	}
	if tempID := strings.TrimSpace(r.Header.Get("X-Guest-ID")); tempID != "" {
		return identity.Anonymous(tempID)
	}
	if cookie, err := r.Cookie(guestCookieName(sessionID)); err == nil && cookie.Value != "" {
		return identity.Anonymous(cookie.Value)
	}
	return identity.Identity{}
}

// Bootstrap lands an actor on the ward's board: it finds or creates the
// session for the next scheduled cleaning and returns the full board state.
// A ward with nothing scheduled gets an explicit empty state, not an error.
func (h *BoardHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	wardID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ward id")
		return
	}

	// No session is known yet, so the per-session guest cookie cannot be
	// resolved here (the zero key matches nothing). Bootstrap only needs the
	// member/guest distinction; guests get their cookie on Join.
	ident := actorIdentity(r, 0)
	sess, created, err := h.boards.Bootstrap(r.Context(), wardID, nil, ident)
	if err != nil {
		h.logger.Error("bootstrap board", "ward_id", wardID, "error", err)
		writeBoardError(w, err)
		return
	}
	if sess == nil {
		writeJSON(w, http.StatusOK, map[string]any{"session": nil})
		return
	}

	state, err := h.boards.Snapshot(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("snapshot board", "session_id", sess.ID, "error", err)
		writeBoardError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, state)
}

// State returns the current board snapshot for a session.
func (h *BoardHandler) State(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	state, err := h.boards.Snapshot(r.Context(), sessionID)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Join registers the actor as a session participant. First-time guests get a
// minted temp id, persisted in a per-session cookie and echoed in the response
// so the client can present it as X-Guest-ID on later requests.
func (h *BoardHandler) Join(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	ident := actorIdentity(r, sessionID)
	if !ident.Valid() {
		ident = identity.Anonymous(identity.NewTempID())
	}
	if !ident.IsAuthenticated() {
		http.SetCookie(w, &http.Cookie{
			Name:     guestCookieName(sessionID),
			Value:    ident.TempID,
			Path:     "/",
			MaxAge:   24 * 60 * 60,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	p, err := h.boards.Join(r.Context(), sessionID, ident)
	if err != nil {
		h.logger.Error("join session", "session_id", sessionID, "error", err)
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Heartbeat refreshes the actor's participant row.
func (h *BoardHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	p, ok := h.participant(w, r, sessionID)
	if !ok {
		return
	}
	if err := h.boards.Heartbeat(r.Context(), sessionID, p.ID); err != nil {
		writeBoardError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoardHandler) Claim(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.boards.ClaimTask)
}

func (h *BoardHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.boards.CompleteTask)
}

func (h *BoardHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.boards.CancelTask)
}

func (h *BoardHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, taskID int64, ident identity.Identity) (*model.SessionTaskDetail, error),
) {
	sessionID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	taskID, err := parsePathInt(r, "task_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	ident := actorIdentity(r, sessionID)
	detail, err := op(r.Context(), taskID, ident)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// OpenView records that the actor has a task's detail view open.
func (h *BoardHandler) OpenView(w http.ResponseWriter, r *http.Request) {
	sessionID, taskID, p, ok := h.viewTarget(w, r)
	if !ok {
		return
	}
	v, err := h.boards.OpenTaskView(r.Context(), sessionID, taskID, p.ID)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// CloseView clears the actor's viewing marker. Closing an unopened view is a
// no-op.
func (h *BoardHandler) CloseView(w http.ResponseWriter, r *http.Request) {
	sessionID, taskID, p, ok := h.viewTarget(w, r)
	if !ok {
		return
	}
	if err := h.boards.CloseTaskView(r.Context(), sessionID, taskID, p.ID); err != nil {
		writeBoardError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoardHandler) viewTarget(w http.ResponseWriter, r *http.Request) (sessionID, taskID int64, p *model.SessionParticipant, ok bool) {
	sessionID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return 0, 0, nil, false
	}
	taskID, err = parsePathInt(r, "task_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return 0, 0, nil, false
	}
	p, ok = h.participant(w, r, sessionID)
	return sessionID, taskID, p, ok
}

// Leave clears all of the actor's viewing markers when they leave the board.
func (h *BoardHandler) Leave(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	p, ok := h.participant(w, r, sessionID)
	if !ok {
		return
	}
	if err := h.boards.LeaveSession(r.Context(), sessionID, p.ID); err != nil {
		writeBoardError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteSession marks the session done and broadcasts the celebration event.
func (h *BoardHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	ident := actorIdentity(r, sessionID)
	sess, err := h.boards.CompleteSession(r.Context(), sessionID, ident)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// JoinByCode resolves a share code to its session so shared links can land
// guests on the right board.
func (h *BoardHandler) JoinByCode(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(r.PathValue("code")))
	if code == "" {
		writeError(w, http.StatusBadRequest, "share code is required")
		return
	}

	sess, err := h.sessions.GetByShareCode(code)
	if err != nil {
		h.logger.Error("lookup share code", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "unknown share code")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// participant resolves the acting identity to its participant row, writing the
// error response when the actor has not joined the session.
func (h *BoardHandler) participant(w http.ResponseWriter, r *http.Request, sessionID int64) (*model.SessionParticipant, bool) {
	ident := actorIdentity(r, sessionID)
	if !ident.Valid() {
		writeError(w, http.StatusUnauthorized, "no identity")
		return nil, false
	}

	p, err := h.participants.GetByIdentity(sessionID, ident)
	if err != nil {
		h.logger.Error("lookup participant", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "join the session first")
		return nil, false
	}
	return p, true
}
