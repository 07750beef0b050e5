package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dulbrich/wardclean/internal/model"
	"github.com/dulbrich/wardclean/internal/store"
)

type WardTaskHandler struct {
	tasks  *store.WardTaskStore
	wards  *WardHandler
	logger *slog.Logger
}

func NewWardTaskHandler(ts *store.WardTaskStore, wards *WardHandler, logger *slog.Logger) *WardTaskHandler {
	return &WardTaskHandler{tasks: ts, wards: wards, logger: logger}
}

type wardTaskRequest struct {
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Instructions string `json:"instructions"`
	Equipment    string `json:"equipment"`
	Safety       string `json:"safety"`
	Color        string `json:"color"`
	Priority     string `json:"priority"`
	KidFriendly  bool   `json:"kid_friendly"`
	Points       int    `json:"points"`
	Active       *bool  `json:"active"`
}

func (req *wardTaskRequest) params() (store.WardTaskParams, string) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return store.WardTaskParams{}, "title is required"
	}

	// Empty priority means the normal middle band.
	priority := model.TaskPriority(req.Priority)
	switch priority {
	case "", model.PriorityDoFirst, model.PriorityDoLast:
	default:
		return store.WardTaskParams{}, "priority must be do_first or do_last"
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	return store.WardTaskParams{
		Title:        title,
		Subtitle:     strings.TrimSpace(req.Subtitle),
		Instructions: req.Instructions,
		Equipment:    req.Equipment,
		Safety:       req.Safety,
		Color:        strings.TrimSpace(req.Color),
		Priority:     priority,
		KidFriendly:  req.KidFriendly,
		Points:       req.Points,
		Active:       active,
	}, ""
}

func (h *WardTaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	wardID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ward id")
		return
	}
	if _, ok := h.wards.requireMember(w, r, wardID, true); !ok {
		return
	}

	var req wardTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, msg := req.params()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	task, err := h.tasks.Create(wardID, params)
	if err != nil {
		h.logger.Error("create ward task", "ward_id", wardID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *WardTaskHandler) List(w http.ResponseWriter, r *http.Request) {
	wardID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ward id")
		return
	}
	if _, ok := h.wards.requireMember(w, r, wardID, false); !ok {
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"
	tasks, err := h.tasks.ListByWard(wardID, activeOnly)
	if err != nil {
		h.logger.Error("list ward tasks", "ward_id", wardID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if tasks == nil {
		tasks = []model.WardTask{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// get loads a catalog task and verifies membership in its ward.
func (h *WardTaskHandler) get(w http.ResponseWriter, r *http.Request, adminOnly bool) (*model.WardTask, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	task, err := h.tasks.GetByID(id)
	if err != nil {
		h.logger.Error("get ward task", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	if _, ok := h.wards.requireMember(w, r, task.WardID, adminOnly); !ok {
		return nil, false
	}
	return task, true
}

func (h *WardTaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.get(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *WardTaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	task, ok := h.get(w, r, true)
	if !ok {
		return
	}

	var req wardTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, msg := req.params()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := h.tasks.Update(task.ID, params)
	if err != nil {
		h.logger.Error("update ward task", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *WardTaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.get(w, r, true)
	if !ok {
		return
	}

	if err := h.tasks.Delete(task.ID); err != nil {
		h.logger.Error("delete ward task", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
