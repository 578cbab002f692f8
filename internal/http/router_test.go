package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notapilot/internal/auth"
	"notapilot/internal/config"
	"notapilot/internal/dispatch"
	"notapilot/internal/jobs"
	"notapilot/internal/schedules"
	"notapilot/internal/templates"
)

type stubRunner struct{ calls int }

func (s *stubRunner) Run(context.Context, string) (dispatch.Summary, error) {
	s.calls++
	return dispatch.Summary{}, nil
}

type stubRuns struct{}

func (stubRuns) Latest(context.Context, string) (*dispatch.DispatchRun, error) {
	return nil, dispatch.ErrNotFound
}

func (stubRuns) ListRecent(context.Context, int) ([]dispatch.DispatchRun, error) {
	return nil, nil
}

type stubJobs struct{}

func (stubJobs) ListProblematic(context.Context, string, int) ([]jobs.Job, error)  { return nil, nil }
func (stubJobs) ListRecentFailed(context.Context, string, int) ([]jobs.Job, error) { return nil, nil }
func (stubJobs) ListRetriedSince(context.Context, string, time.Time, int) ([]jobs.Job, error) {
	return nil, nil
}

type stubSchedules struct{}

func (stubSchedules) List(context.Context, string) ([]schedules.Schedule, error) { return nil, nil }
func (stubSchedules) Get(context.Context, string, string) (*schedules.Schedule, error) {
	return nil, schedules.ErrNotFound
}
func (stubSchedules) Create(context.Context, string, schedules.CreateInput) (*schedules.Schedule, error) {
	return &schedules.Schedule{}, nil
}
func (stubSchedules) SetEnabled(context.Context, string, string, bool) error         { return nil }
func (stubSchedules) RunNow(context.Context, string, string, time.Time) error        { return nil }
func (stubSchedules) UpdateInterval(context.Context, string, string, int) error      { return nil }

type stubTemplates struct{}

func (stubTemplates) List(context.Context, string) ([]templates.Template, error) { return nil, nil }

func TestRouter(t *testing.T) {
	jwtSvc := auth.NewJWT("admin-secret")
	runner := &stubRunner{}
	h := NewRouter(config.Config{CronSecret: "cron", Env: "test", CORSAllowedOrigins: []string{"http://localhost:3000"}}, Deps{
		Runner:    runner,
		Runs:      stubRuns{},
		Jobs:      stubJobs{},
		Schedules: stubSchedules{},
		Templates: stubTemplates{},
		JWT:       jwtSvc,
	})
	token, err := jwtSvc.Sign("tenant-a", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := []struct {
		name   string
		method string
		path   string
		header map[string]string
		want   int
	}{
		{"health", http.MethodGet, "/health", nil, http.StatusOK},
		{"status", http.MethodGet, "/api/status", nil, http.StatusOK},
		{"cron get", http.MethodGet, "/api/cron/whatsapp-dispatch", map[string]string{"Authorization": "Bearer cron"}, http.StatusOK},
		{"cron post", http.MethodPost, "/api/cron/whatsapp-dispatch", map[string]string{"x-cron-secret": "cron"}, http.StatusOK},
		{"cron bad secret", http.MethodPost, "/api/cron/whatsapp-dispatch", nil, http.StatusUnauthorized},
		{"admin without token", http.MethodGet, "/admin/schedules", nil, http.StatusUnauthorized},
		{"admin schedules", http.MethodGet, "/admin/schedules", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK},
		{"admin templates", http.MethodGet, "/admin/templates", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK},
		{"admin runs", http.MethodGet, "/admin/monitor/runs", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK},
		{"admin top retries", http.MethodGet, "/admin/monitor/top-retries", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK},
		{"no live hub", http.MethodGet, "/admin/live", map[string]string{"Authorization": "Bearer " + token}, http.StatusNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(c.method, c.path, nil)
			for k, v := range c.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != c.want {
				t.Fatalf("want %d, got %d (%s)", c.want, rec.Code, rec.Body.String())
			}
		})
	}
	if runner.calls != 2 {
		t.Fatalf("want 2 dispatch runs, got %d", runner.calls)
	}
}
