package handler

import (
	"context"
	"net/http"
	"time"

	"notapilot/internal/auth"
	"notapilot/internal/dispatch"
	"notapilot/internal/jobs"
)

type RunLister interface {
	ListRecent(ctx context.Context, limit int) ([]dispatch.DispatchRun, error)
}

type JobReader interface {
	ListProblematic(ctx context.Context, tenantID string, limit int) ([]jobs.Job, error)
	ListRecentFailed(ctx context.Context, tenantID string, limit int) ([]jobs.Job, error)
	ListRetriedSince(ctx context.Context, tenantID string, since time.Time, limit int) ([]jobs.Job, error)
}

type MonitorHandler struct {
	Runs RunLister
	Jobs JobReader
	Now  func() time.Time
}

func (h *MonitorHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Runs.ListRecent(r.Context(), queryLimit(r, 50, 200))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	for i := range rows {
		rows[i] = rows[i].Redacted()
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *MonitorHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())
	rows, err := h.Jobs.ListProblematic(r.Context(), tenantID, queryLimit(r, 30, 500))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *MonitorHandler) ListFailures(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())
	rows, err := h.Jobs.ListRecentFailed(r.Context(), tenantID, queryLimit(r, 10, 500))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// TopRetries aggregates attempts per template over the last 24h.
func (h *MonitorHandler) TopRetries(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())
	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now().UTC()
	}
	rows, err := h.Jobs.ListRetriedSince(r.Context(), tenantID, now.Add(-24*time.Hour), 500)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, dispatch.TopRetries(rows, dispatch.TopRetriesLimit))
}
