package http

import (
	"context"
	"net/http"

	"notapilot/internal/auth"
	"notapilot/internal/config"
	"notapilot/internal/dispatch"
	"notapilot/internal/http/handler"
	mw "notapilot/internal/http/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type RunStore interface {
	Latest(ctx context.Context, source string) (*dispatch.DispatchRun, error)
	ListRecent(ctx context.Context, limit int) ([]dispatch.DispatchRun, error)
}

type Deps struct {
	Runner    handler.Runner
	Runs      RunStore
	Jobs      handler.JobReader
	Schedules handler.ScheduleAdmin
	Templates handler.TemplateLister
	// Live is mounted at /admin/live when set.
	Live http.Handler
	JWT  *auth.JWT
}

func NewRouter(cfg config.Config, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	status := &handler.StatusHandler{Runs: d.Runs, Env: cfg.Env}
	r.Get("/api/status", status.Status)

	cron := &handler.CronHandler{Runner: d.Runner, Secret: cfg.CronSecret}
	r.Get("/api/cron/whatsapp-dispatch", cron.Dispatch)
	r.Post("/api/cron/whatsapp-dispatch", cron.Dispatch)

	monitor := &handler.MonitorHandler{Runs: d.Runs, Jobs: d.Jobs}
	sched := &handler.ScheduleHandler{Store: d.Schedules}
	tmpl := &handler.TemplateHandler{Store: d.Templates}

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))

		r.Get("/monitor/runs", monitor.ListRuns)
		r.Get("/monitor/jobs", monitor.ListJobs)
		r.Get("/monitor/failures", monitor.ListFailures)
		r.Get("/monitor/top-retries", monitor.TopRetries)

		r.Get("/schedules", sched.List)
		r.Post("/schedules", sched.Create)
		r.Post("/schedules/{id}/toggle", sched.Toggle)
		r.Post("/schedules/{id}/run-now", sched.RunNow)
		r.Post("/schedules/{id}/interval", sched.UpdateInterval)

		r.Get("/templates", tmpl.List)

		if d.Live != nil {
			r.Get("/live", d.Live.ServeHTTP)
		}
	})

	return r
}
