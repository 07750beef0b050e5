package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dulbrich/wardclean/internal/model"
	"github.com/dulbrich/wardclean/internal/store"
)

type ScheduleHandler struct {
	schedules *store.ScheduleStore
	wards     *WardHandler
	logger    *slog.Logger
}

func NewScheduleHandler(ss *store.ScheduleStore, wards *WardHandler, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{schedules: ss, wards: wards, logger: logger}
}

type scheduleRequest struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

func (req *scheduleRequest) parse() (string, time.Time, error) {
	name := strings.TrimSpace(req.Name)
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		date, err = time.Parse(time.RFC3339, req.Date)
	}
	return name, date, err
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	wardID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ward id")
		return
	}
	if _, ok := h.wards.requireMember(w, r, wardID, true); !ok {
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	name, date, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	sched, err := h.schedules.Create(wardID, name, date)
	if err != nil {
		h.logger.Error("create schedule", "ward_id", wardID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, sched)
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	wardID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ward id")
		return
	}
	if _, ok := h.wards.requireMember(w, r, wardID, false); !ok {
		return
	}

	schedules, err := h.schedules.ListByWard(wardID)
	if err != nil {
		h.logger.Error("list schedules", "ward_id", wardID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if schedules == nil {
		schedules = []model.CleaningSchedule{}
	}
	writeJSON(w, http.StatusOK, schedules)
}

// get loads a schedule and verifies membership in its ward.
func (h *ScheduleHandler) get(w http.ResponseWriter, r *http.Request, adminOnly bool) (*model.CleaningSchedule, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	sched, err := h.schedules.GetByID(id)
	if err != nil {
		h.logger.Error("get schedule", "schedule_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if sched == nil {
		writeError(w, http.StatusNotFound, "schedule not found")
		return nil, false
	}
	if _, ok := h.wards.requireMember(w, r, sched.WardID, adminOnly); !ok {
		return nil, false
	}
	return sched, true
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	sched, ok := h.get(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	sched, ok := h.get(w, r, true)
	if !ok {
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	name, date, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	updated, err := h.schedules.Update(sched.ID, name, date)
	if err != nil {
		h.logger.Error("update schedule", "schedule_id", sched.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sched, ok := h.get(w, r, true)
	if !ok {
		return
	}

	if err := h.schedules.Delete(sched.ID); err != nil {
		h.logger.Error("delete schedule", "schedule_id", sched.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
