package schedules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"notapilot/internal/pgerr"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateKey    = errors.New("schedule key already used")
	ErrInvalidInterval = errors.New("interval must be at least 60 seconds")
	ErrInvalidSchedule = errors.New("invalid schedule")
)

type Repo struct {
	DB *gorm.DB
}

// PickDue locks up to limit enabled due schedules, advances each next_run_at and
// returns them with the tick that was due. Rows locked by a concurrent picker are skipped.
func (r *Repo) PickDue(ctx context.Context, now time.Time, limit int) ([]Due, error) {
	var out []Due
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []Schedule
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("enabled = ? AND next_run_at <= ?", true, now).
			Order("next_run_at asc").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return err
		}

		for _, s := range rows {
			fields := map[string]any{"updated_at": now}
			if next, err := NextAfter(s, s.NextRunAt, now); err == nil {
				fields["next_run_at"] = next
			} else {
				// cannot be advanced; disable it so it is not re-picked every run
				fields["enabled"] = false
			}
			if err := tx.Model(&Schedule{}).Where("id = ?", s.ID).Updates(fields).Error; err != nil {
				return err
			}
			out = append(out, Due{Schedule: s, DueNextRunAt: s.NextRunAt})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) List(ctx context.Context, tenantID string) ([]Schedule, error) {
	var out []Schedule
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("next_run_at asc").
		Find(&out).Error
	return out, err
}

type CreateInput struct {
	ScheduleKey     string
	TemplateKey     string
	IntervalSeconds int
	CronExpr        *string
	Timezone        string
	NextRunAt       time.Time
	Payload         map[string]any
	Enabled         bool
}

func (r *Repo) Create(ctx context.Context, tenantID string, in CreateInput) (*Schedule, error) {
	in.ScheduleKey = strings.TrimSpace(in.ScheduleKey)
	in.TemplateKey = strings.TrimSpace(in.TemplateKey)
	if in.ScheduleKey == "" || in.TemplateKey == "" {
		return nil, fmt.Errorf("%w: schedule_key and template_key required", ErrInvalidSchedule)
	}
	if in.CronExpr != nil && strings.TrimSpace(*in.CronExpr) != "" {
		if _, err := ParseCron(*in.CronExpr); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	} else {
		in.CronExpr = nil
		if in.IntervalSeconds < MinIntervalSeconds {
			return nil, ErrInvalidInterval
		}
	}
	if in.Timezone == "" {
		in.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(in.Timezone); err != nil {
		return nil, fmt.Errorf("%w: invalid timezone", ErrInvalidSchedule)
	}
	if in.Payload == nil {
		in.Payload = map[string]any{}
	}

	s := Schedule{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		ScheduleKey:     in.ScheduleKey,
		TemplateKey:     in.TemplateKey,
		Enabled:         in.Enabled,
		NextRunAt:       in.NextRunAt,
		IntervalSeconds: in.IntervalSeconds,
		CronExpr:        in.CronExpr,
		Timezone:        in.Timezone,
		Payload:         datatypes.JSONMap(in.Payload),
	}
	// Select("*") so a false Enabled is written instead of the column default.
	err := r.DB.WithContext(ctx).Select("*").Create(&s).Error
	if pgerr.IsUniqueViolation(err) {
		return nil, ErrDuplicateKey
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SetEnabled flips a schedule on or off.
func (r *Repo) SetEnabled(ctx context.Context, tenantID, id string, enabled bool) error {
	return r.update(ctx, tenantID, id, map[string]any{"enabled": enabled})
}

// RunNow makes a schedule due on the next pick.
func (r *Repo) RunNow(ctx context.Context, tenantID, id string, now time.Time) error {
	return r.update(ctx, tenantID, id, map[string]any{"next_run_at": now.Add(-time.Minute)})
}

func (r *Repo) UpdateInterval(ctx context.Context, tenantID, id string, seconds int) error {
	if seconds < MinIntervalSeconds {
		return ErrInvalidInterval
	}
	return r.update(ctx, tenantID, id, map[string]any{"interval_seconds": seconds})
}

func (r *Repo) Get(ctx context.Context, tenantID, id string) (*Schedule, error) {
	var s Schedule
	err := r.DB.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) update(ctx context.Context, tenantID, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	res := r.DB.WithContext(ctx).Model(&Schedule{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
