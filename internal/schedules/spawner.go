package schedules

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"

	"notapilot/internal/jobs"
)

const DefaultBatchSize = 50

type Picker interface {
	PickDue(ctx context.Context, now time.Time, limit int) ([]Due, error)
}

type JobInserter interface {
	Insert(ctx context.Context, j *jobs.Job) error
}

// Spawner materializes due schedules into pending jobs.
type Spawner struct {
	Schedules Picker
	Jobs      JobInserter
	BatchSize int
	Logger    *log.Logger
}

type SpawnResult struct {
	SchedulesPicked int
	JobsCreated     int
}

// DedupeKey is deterministic per (schedule, tick), so retrying a tick cannot double-spawn.
func DedupeKey(scheduleID string, due time.Time) string {
	return fmt.Sprintf("schedule:%s:%s", scheduleID, due.UTC().Format(time.RFC3339Nano))
}

// Destination reads payload.to_phone, falling back to payload.to.
func Destination(payload map[string]any) (string, bool) {
	for _, k := range []string{"to_phone", "to"} {
		if v, ok := payload[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// Spawn never fails: pick and insert errors are logged and counted as not created.
func (s *Spawner) Spawn(ctx context.Context, now time.Time) SpawnResult {
	var res SpawnResult
	logger := s.logger()

	batch := s.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	due, err := s.Schedules.PickDue(ctx, now, batch)
	if err != nil {
		logger.Printf("[spawner] pick error: %v", err)
		return res
	}
	res.SchedulesPicked = len(due)

	for _, d := range due {
		to, ok := Destination(d.Payload)
		if !ok {
			logger.Printf("[spawner] skip schedule=%s key=%s: payload has no to_phone/to", d.ID, d.ScheduleKey)
			continue
		}

		key := DedupeKey(d.ID, d.DueNextRunAt)
		payload := datatypes.JSONMap{}
		for k, v := range d.Payload {
			payload[k] = v
		}
		j := &jobs.Job{
			TenantID:    d.TenantID,
			Status:      jobs.StatusPending,
			RunAt:       now,
			MaxAttempts: jobs.DefaultMaxAttempts,
			DedupeKey:   &key,
			ToPhone:     to,
			TemplateKey: d.TemplateKey,
			Payload:     payload,
		}
		err := s.Jobs.Insert(ctx, j)
		switch {
		case err == nil:
			res.JobsCreated++
		case errors.Is(err, jobs.ErrDuplicate):
			// this tick already has its job
		default:
			logger.Printf("[spawner] insert error schedule=%s dedupe=%s: %v", d.ID, key, err)
		}
	}

	return res
}

func (s *Spawner) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}
