package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SourceVercelCron = "vercel_cron"
	SourceManual     = "manual"
)

var ErrNotFound = errors.New("not found")

// DispatchRun is the append-only audit row of one pipeline invocation.
type DispatchRun struct {
	ID                       string            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Source                   string            `gorm:"type:text;not null" json:"source"`
	Picked                   int               `gorm:"not null;default:0" json:"picked"`
	Sent                     int               `gorm:"not null;default:0" json:"sent"`
	Failed                   int               `gorm:"not null;default:0" json:"failed"`
	Retried                  int               `gorm:"not null;default:0" json:"retried"`
	SchedulesPicked          int               `gorm:"not null;default:0" json:"schedules_picked"`
	JobsCreatedFromSchedules int               `gorm:"not null;default:0" json:"jobs_created_from_schedules"`
	DurationMs               int64             `gorm:"not null;default:0" json:"duration_ms"`
	Error                    *string           `gorm:"type:text" json:"error"`
	Meta                     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'::jsonb" json:"meta"`
	ClaimedJobIDs            pq.StringArray    `gorm:"type:text[];not null;default:'{}'" json:"claimed_job_ids,omitempty"`
	RanAt                    time.Time         `gorm:"index;not null;default:now()" json:"ran_at"`
}

func (DispatchRun) TableName() string { return "whatsapp_dispatch_runs" }

// Recorder persists or publishes a finished run. Callers treat failures as best-effort.
type Recorder interface {
	Record(ctx context.Context, run DispatchRun) error
}

// MultiRecorder hands the run to every recorder, even when an earlier one fails.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, run DispatchRun) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type RunRepo struct {
	DB *gorm.DB
}

func (r *RunRepo) Record(ctx context.Context, run DispatchRun) error {
	if run.Meta == nil {
		run.Meta = datatypes.JSONMap{}
	}
	if run.ClaimedJobIDs == nil {
		run.ClaimedJobIDs = pq.StringArray{}
	}
	return r.DB.WithContext(ctx).Create(&run).Error
}

// Latest returns the most recent run for source.
func (r *RunRepo) Latest(ctx context.Context, source string) (*DispatchRun, error) {
	var run DispatchRun
	err := r.DB.WithContext(ctx).
		Where("source = ?", source).
		Order("ran_at desc").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]DispatchRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []DispatchRun
	err := r.DB.WithContext(ctx).
		Order("ran_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Redacted drops the claimed job ids. Runs span every tenant, so shared views use this.
func (r DispatchRun) Redacted() DispatchRun {
	r.ClaimedJobIDs = nil
	return r
}
