package dispatch

import (
	"context"
	"fmt"
	"strings"

	"notapilot/internal/jobs"
	"notapilot/internal/templates"
)

type BodyResolver interface {
	Resolve(ctx context.Context, tenantID, key string, payload map[string]any) (string, error)
}

// ResolveBody returns payload.text verbatim when it is a non-blank string and
// only otherwise consults the template resolver.
func ResolveBody(ctx context.Context, r BodyResolver, j *jobs.Job) (string, error) {
	if text, ok := j.Payload["text"].(string); ok && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if r == nil {
		return "", fmt.Errorf("%w: %s", templates.ErrTemplateNotFound, j.TemplateKey)
	}
	return r.Resolve(ctx, j.TenantID, j.TemplateKey, j.Payload)
}
