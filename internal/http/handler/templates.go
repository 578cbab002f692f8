package handler

import (
	"context"
	"net/http"

	"notapilot/internal/auth"
	"notapilot/internal/templates"
)

type TemplateLister interface {
	List(ctx context.Context, tenantID string) ([]templates.Template, error)
}

type TemplateHandler struct {
	Store TemplateLister
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())
	rows, err := h.Store.List(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
