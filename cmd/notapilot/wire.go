package main

import (
	"context"
	"log"

	"gorm.io/gorm"

	"notapilot/internal/config"
	"notapilot/internal/db"
	"notapilot/internal/dispatch"
	"notapilot/internal/jobs"
	"notapilot/internal/messaging"
	"notapilot/internal/redisx"
	"notapilot/internal/schedules"
	"notapilot/internal/templates"
)

type app struct {
	cfg       config.Config
	db        *gorm.DB
	jobs      *jobs.Repo
	schedules *schedules.Repo
	templates *templates.Repo
	runs      *dispatch.RunRepo
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:       cfg,
		db:        gdb,
		jobs:      &jobs.Repo{DB: gdb},
		schedules: &schedules.Repo{DB: gdb},
		templates: &templates.Repo{DB: gdb},
		runs:      &dispatch.RunRepo{DB: gdb},
	}, nil
}

// runStream is nil when REDIS_ADDR is unset or Redis is unreachable; runs are still stored in Postgres.
func (a *app) runStream(ctx context.Context) dispatch.Recorder {
	if a.cfg.RedisAddr == "" {
		return nil
	}
	rdb, err := redisx.NewClient(ctx, redisx.Config{Addr: a.cfg.RedisAddr, Password: a.cfg.RedisPassword})
	if err != nil {
		log.Printf("[redis] run stream disabled: %v", err)
		return nil
	}
	return &redisx.RunStream{RDB: rdb, Stream: a.cfg.RedisRunsStream}
}

func (a *app) dispatcher(recorders ...dispatch.Recorder) *dispatch.Dispatcher {
	rec := dispatch.MultiRecorder{a.runs}
	for _, r := range recorders {
		if r != nil {
			rec = append(rec, r)
		}
	}
	return &dispatch.Dispatcher{
		Jobs: a.jobs,
		Spawner: &schedules.Spawner{
			Schedules: a.schedules,
			Jobs:      a.jobs,
			BatchSize: a.cfg.BatchSize,
		},
		Templates: &templates.Resolver{Store: a.templates},
		Sender:    messaging.NewSender(a.cfg),
		History:   &messaging.History{DB: a.db},
		Recorder:  rec,
		BatchSize: a.cfg.BatchSize,
		LockTTL:   a.cfg.LockTTL,
	}
}
