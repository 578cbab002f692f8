package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"notapilot/internal/dispatch"
)

type LatestRun interface {
	Latest(ctx context.Context, source string) (*dispatch.DispatchRun, error)
}

// StatusHandler reports the health of the most recent scheduler-triggered run.
type StatusHandler struct {
	Runs LatestRun
	Env  string
	Now  func() time.Time
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now().UTC()
	}

	run, err := h.Runs.Latest(r.Context(), dispatch.SourceVercelCron)
	if errors.Is(err, dispatch.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":     false,
			"reason": "no_cron_runs",
			"env":    h.Env,
			"now":    now,
		})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"ok":     false,
			"reason": "db_error",
			"env":    h.Env,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                    true,
		"env":                   h.Env,
		"now":                   now,
		"last_cron_run_at":      run.RanAt,
		"last_cron_error":       run.Error,
		"last_cron_duration_ms": run.DurationMs,
	})
}
