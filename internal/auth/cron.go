package auth

import (
	"errors"
	"net/http"
	"strings"

	"notapilot/internal/dispatch"
)

var (
	ErrCronSecretMissing = errors.New("CRON_SECRET not configured")
	ErrUnauthorized      = errors.New("Unauthorized")
)

// AuthorizeCron checks the shared scheduler secret, sent either as a bearer
// token or in the legacy x-cron-secret header.
func AuthorizeCron(r *http.Request, secret string) error {
	if secret == "" {
		return ErrCronSecretMissing
	}
	if token, ok := bearer(r.Header.Get("Authorization")); ok && token == secret {
		return nil
	}
	if r.Header.Get("x-cron-secret") == secret {
		return nil
	}
	return ErrUnauthorized
}

// DetectSource labels the caller for run reporting. It never affects authorization.
func DetectSource(r *http.Request) string {
	if r.Header.Get("x-vercel-cron") != "" {
		return dispatch.SourceVercelCron
	}
	if strings.Contains(strings.ToLower(r.UserAgent()), "vercel-cron") {
		return dispatch.SourceVercelCron
	}
	return dispatch.SourceManual
}
