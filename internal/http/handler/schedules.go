package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"notapilot/internal/auth"
	"notapilot/internal/schedules"
)

type ScheduleAdmin interface {
	List(ctx context.Context, tenantID string) ([]schedules.Schedule, error)
	Get(ctx context.Context, tenantID, id string) (*schedules.Schedule, error)
	Create(ctx context.Context, tenantID string, in schedules.CreateInput) (*schedules.Schedule, error)
	SetEnabled(ctx context.Context, tenantID, id string, enabled bool) error
	RunNow(ctx context.Context, tenantID, id string, now time.Time) error
	UpdateInterval(ctx context.Context, tenantID, id string, seconds int) error
}

type ScheduleHandler struct {
	Store ScheduleAdmin
	Now   func() time.Time
}

type createScheduleReq struct {
	ScheduleKey     string         `json:"schedule_key"`
	TemplateKey     string         `json:"template_key"`
	IntervalSeconds int            `json:"interval_seconds"`
	CronExpr        *string        `json:"cron_expr"`
	Timezone        string         `json:"timezone"`
	NextRunAt       *string        `json:"next_run_at"` // RFC3339 optional, defaults to now
	Payload         map[string]any `json:"payload"`
	Enabled         *bool          `json:"enabled"`
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())
	rows, err := h.Store.List(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())

	var req createScheduleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	nextRunAt := h.now()
	if req.NextRunAt != nil && strings.TrimSpace(*req.NextRunAt) != "" {
		t, err := time.Parse(time.RFC3339, *req.NextRunAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid next_run_at (RFC3339)")
			return
		}
		nextRunAt = t.UTC()
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	s, err := h.Store.Create(r.Context(), tenantID, schedules.CreateInput{
		ScheduleKey:     req.ScheduleKey,
		TemplateKey:     req.TemplateKey,
		IntervalSeconds: req.IntervalSeconds,
		CronExpr:        req.CronExpr,
		Timezone:        req.Timezone,
		NextRunAt:       nextRunAt,
		Payload:         req.Payload,
		Enabled:         enabled,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

type toggleReq struct {
	Enabled *bool `json:"enabled"`
}

// Toggle sets enabled from the body, or flips it when the body is empty.
func (h *ScheduleHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req toggleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	enabled := false
	if req.Enabled != nil {
		enabled = *req.Enabled
	} else {
		s, err := h.Store.Get(r.Context(), tenantID, id)
		if err != nil {
			h.fail(w, err)
			return
		}
		enabled = !s.Enabled
	}

	if err := h.Store.SetEnabled(r.Context(), tenantID, id, enabled); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "enabled": enabled})
}

func (h *ScheduleHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.Store.RunNow(r.Context(), tenantID, id, h.now()); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type intervalReq struct {
	IntervalSeconds int `json:"interval_seconds"`
}

func (h *ScheduleHandler) UpdateInterval(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req intervalReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := h.Store.UpdateInterval(r.Context(), tenantID, id, req.IntervalSeconds); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "interval_seconds": req.IntervalSeconds})
}

func (h *ScheduleHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedules.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, schedules.ErrDuplicateKey):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, schedules.ErrInvalidInterval), errors.Is(err, schedules.ErrInvalidSchedule):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

func (h *ScheduleHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}
