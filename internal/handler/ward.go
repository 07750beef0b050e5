package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dulbrich/wardclean/internal/identity"
	"github.com/dulbrich/wardclean/internal/model"
	"github.com/dulbrich/wardclean/internal/store"
)

type WardHandler struct {
	wards  *store.WardStore
	users  *store.UserStore
	logger *slog.Logger
}

func NewWardHandler(ws *store.WardStore, us *store.UserStore, logger *slog.Logger) *WardHandler {
	return &WardHandler{wards: ws, users: us, logger: logger}
}

// requireMember loads the actor's membership in a ward, optionally demanding
// the admin role. Writes the error response on failure.
func (h *WardHandler) requireMember(w http.ResponseWriter, r *http.Request, wardID int64, adminOnly bool) (*model.WardMember, bool) {
	member, err := h.wards.GetMember(wardID, identity.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get ward member", "ward_id", wardID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if member == nil {
		writeError(w, http.StatusForbidden, "not a member of this ward")
		return nil, false
	}
	if adminOnly && member.Role != "admin" {
		writeError(w, http.StatusForbidden, "admin role required")
		return nil, false
	}
	return member, true
}

func (h *WardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	ward, err := h.wards.Create(req.Name)
	if err != nil {
		h.logger.Error("create ward", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	userID := identity.UserID(r.Context())
	if _, err := h.wards.AddMember(ward.ID, userID, "admin"); err != nil {
		h.logger.Error("add ward creator", "ward_id", ward.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.wards.SetPrimary(userID, ward.ID); err != nil {
		h.logger.Error("set primary ward", "ward_id", ward.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, ward)
}

func (h *WardHandler) List(w http.ResponseWriter, r *http.Request) {
	wards, err := h.wards.ListByUser(identity.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list wards", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if wards == nil {
		wards = []model.Ward{}
	}
	writeJSON(w, http.StatusOK, wards)
}

func (h *WardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if _, ok := h.requireMember(w, r, id, false); !ok {
		return
	}

	ward, err := h.wards.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if ward == nil {
		writeError(w, http.StatusNotFound, "ward not found")
		return
	}
	writeJSON(w, http.StatusOK, ward)
}

func (h *WardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if _, ok := h.requireMember(w, r, id, true); !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	ward, err := h.wards.Update(id, req.Name)
	if err != nil {
		h.logger.Error("update ward", "ward_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, ward)
}

func (h *WardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if _, ok := h.requireMember(w, r, id, true); !ok {
		return
	}

	if err := h.wards.Delete(id); err != nil {
		h.logger.Error("delete ward", "ward_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMember enrolls a registered user in the ward by email.
func (h *WardHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	wardID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if _, ok := h.requireMember(w, r, wardID, true); !ok {
		return
	}

	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Role == "" {
		req.Role = "member"
	}
	if req.Role != "member" && req.Role != "admin" {
		writeError(w, http.StatusBadRequest, "role must be member or admin")
		return
	}

	user, err := h.users.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "no user with that email")
		return
	}

	member, err := h.wards.AddMember(wardID, user.ID, req.Role)
	if err != nil {
		h.logger.Error("add ward member", "ward_id", wardID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

// SetPrimary marks the ward as the actor's default board.
func (h *WardHandler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	wardID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.wards.SetPrimary(identity.UserID(r.Context()), wardID); err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "not a member of this ward")
			return
		}
		h.logger.Error("set primary ward", "ward_id", wardID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
