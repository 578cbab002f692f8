package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"notapilot/internal/pgerr"
)

var (
	// ErrDuplicate means a job with the same (tenant_id, dedupe_key) already exists.
	ErrDuplicate = errors.New("duplicate dedupe key")
	// ErrNotOwned means the row is gone or locked by another invocation.
	ErrNotOwned = errors.New("job not owned by locker")
)

type Repo struct {
	DB *gorm.DB
}

// Insert creates a job. A unique violation on the dedupe key is reported as ErrDuplicate.
func (r *Repo) Insert(ctx context.Context, j *Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = StatusPending
	}
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = DefaultMaxAttempts
	}
	if j.Payload == nil {
		j.Payload = datatypes.JSONMap{}
	}
	err := r.DB.WithContext(ctx).Create(j).Error
	if pgerr.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// ClaimPending locks up to limit due pending jobs for locker in one statement.
// FOR UPDATE SKIP LOCKED keeps concurrent claimers from overlapping.
func (r *Repo) ClaimPending(ctx context.Context, now time.Time, limit int, locker string) ([]Job, error) {
	var out []Job
	err := r.DB.WithContext(ctx).Raw(`
with cte as (
  select id
  from whatsapp_jobs
  where status = 'pending' and run_at <= ? and locked_by is null
  order by run_at asc
  for update skip locked
  limit ?
)
update whatsapp_jobs
set locked_by = ?, locked_at = ?, updated_at = ?
where id in (select id from cte)
returning *;
`, now, limit, locker, now, now).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) MarkSent(ctx context.Context, j *Job, now time.Time) error {
	return r.owned(ctx, j, `
update whatsapp_jobs
set status = 'sent', locked_by = null, locked_at = null, updated_at = ?
where id = ? and tenant_id = ? and locked_by = ?`, now)
}

func (r *Repo) MarkFailed(ctx context.Context, j *Job, attempts int, errMsg string, now time.Time) error {
	return r.owned(ctx, j, `
update whatsapp_jobs
set status = 'failed', attempts = ?, last_error = ?, locked_by = null, locked_at = null, updated_at = ?
where id = ? and tenant_id = ? and locked_by = ?`, attempts, errMsg, now)
}

func (r *Repo) RetryLater(ctx context.Context, j *Job, attempts int, runAt time.Time, errMsg string, now time.Time) error {
	return r.owned(ctx, j, `
update whatsapp_jobs
set status = 'pending',
    attempts = ?,
    run_at = ?,
    last_error = ?,
    locked_by = null,
    locked_at = null,
    updated_at = ?
where id = ? and tenant_id = ? and locked_by = ?`, attempts, runAt, errMsg, now)
}

// owned runs a single-row update scoped to the job's id, tenant and current locker.
// The three scope values are appended after args.
func (r *Repo) owned(ctx context.Context, j *Job, q string, args ...any) error {
	locker := ""
	if j.LockedBy != nil {
		locker = *j.LockedBy
	}
	args = append(args, j.ID, j.TenantID, locker)
	res := r.DB.WithContext(ctx).Exec(q, args...)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotOwned
	}
	return nil
}

// ReclaimStale releases locks taken before olderThan. Attempts are left untouched.
func (r *Repo) ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Exec(`
update whatsapp_jobs
set locked_by = null, locked_at = null, updated_at = now()
where status = 'pending' and locked_by is not null and locked_at < ?`, olderThan)
	return res.RowsAffected, res.Error
}

func (r *Repo) Get(ctx context.Context, tenantID, id string) (*Job, error) {
	var j Job
	if err := r.DB.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// ListProblematic returns jobs that were retried at least once or failed.
func (r *Repo) ListProblematic(ctx context.Context, tenantID string, limit int) ([]Job, error) {
	var out []Job
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND (attempts > 0 OR status = ?)", tenantID, string(StatusFailed)).
		Order("updated_at desc").
		Limit(clamp(limit, 30)).
		Find(&out).Error
	return out, err
}

func (r *Repo) ListRecentFailed(ctx context.Context, tenantID string, limit int) ([]Job, error) {
	var out []Job
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, string(StatusFailed)).
		Order("updated_at desc").
		Limit(clamp(limit, 10)).
		Find(&out).Error
	return out, err
}

// ListRetriedSince feeds the top-retries aggregation.
func (r *Repo) ListRetriedSince(ctx context.Context, tenantID string, since time.Time, limit int) ([]Job, error) {
	var out []Job
	err := r.DB.WithContext(ctx).
		Select("template_key", "attempts").
		Where("tenant_id = ? AND attempts > 0 AND updated_at >= ?", tenantID, since).
		Limit(clamp(limit, 500)).
		Find(&out).Error
	return out, err
}

func clamp(limit, def int) int {
	if limit <= 0 || limit > 500 {
		return def
	}
	return limit
}
