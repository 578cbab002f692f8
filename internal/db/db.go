package db

import (
	"fmt"

	"notapilot/internal/dispatch"
	"notapilot/internal/jobs"
	"notapilot/internal/messaging"
	"notapilot/internal/schedules"
	"notapilot/internal/templates"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.Exec(`create extension if not exists pgcrypto;`).Error; err != nil {
		return err
	}

	if err := gdb.AutoMigrate(
		&jobs.Job{},
		&schedules.Schedule{},
		&templates.Template{},
		&dispatch.DispatchRun{},
		&messaging.Message{},
	); err != nil {
		return err
	}

	// Dedupe: unique per tenant + dedupe_key where not null
	if err := gdb.Exec(`
create unique index if not exists uq_whatsapp_jobs_tenant_dedupe
on whatsapp_jobs(tenant_id, dedupe_key)
where dedupe_key is not null;
`).Error; err != nil {
		return err
	}

	stmts := []string{
		`create unique index if not exists uq_whatsapp_schedules_tenant_key on whatsapp_schedules(tenant_id, schedule_key);`,
		`create unique index if not exists uq_whatsapp_templates_tenant_key on whatsapp_templates(tenant_id, key);`,
		`create index if not exists idx_whatsapp_jobs_due on whatsapp_jobs(status, run_at) where locked_by is null;`,
		`create index if not exists idx_whatsapp_jobs_lock on whatsapp_jobs(status, locked_at);`,
		`create index if not exists idx_whatsapp_jobs_tenant_updated on whatsapp_jobs(tenant_id, updated_at desc);`,
		`create index if not exists idx_whatsapp_schedules_due on whatsapp_schedules(enabled, next_run_at);`,
		`create index if not exists idx_whatsapp_dispatch_runs_source on whatsapp_dispatch_runs(source, ran_at desc);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
