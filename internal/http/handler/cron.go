package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"notapilot/internal/auth"
	"notapilot/internal/dispatch"
)

type Runner interface {
	Run(ctx context.Context, source string) (dispatch.Summary, error)
}

// CronHandler serves GET and POST /api/cron/whatsapp-dispatch.
type CronHandler struct {
	Runner Runner
	Secret string
	Logger *log.Logger
}

type cronResp struct {
	Picked  int `json:"picked"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Retried int `json:"retried"`
}

func (h *CronHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if err := auth.AuthorizeCron(r, h.Secret); err != nil {
		if errors.Is(err, auth.ErrCronSecretMissing) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	source := auth.DetectSource(r)
	sum, err := h.Runner.Run(r.Context(), source)
	if err != nil {
		h.logger().Printf("[whatsapp-dispatch] fatal source=%s: %v", source, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  "dispatch failed",
			"detail": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, cronResp{
		Picked:  sum.Picked,
		Sent:    sum.Sent,
		Failed:  sum.Failed,
		Retried: sum.Retried,
	})
}

func (h *CronHandler) logger() *log.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return log.Default()
}
