package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"notapilot/internal/jobs"
	"notapilot/internal/messaging"
	"notapilot/internal/schedules"
)

const (
	DefaultBatchSize  = 50
	DefaultJobTimeout = 30 * time.Second
	transitionTimeout = 10 * time.Second
)

type JobStore interface {
	ClaimPending(ctx context.Context, now time.Time, limit int, locker string) ([]jobs.Job, error)
	MarkSent(ctx context.Context, j *jobs.Job, now time.Time) error
	MarkFailed(ctx context.Context, j *jobs.Job, attempts int, errMsg string, now time.Time) error
	RetryLater(ctx context.Context, j *jobs.Job, attempts int, runAt time.Time, errMsg string, now time.Time) error
}

// StaleReclaimer is implemented by job stores that can release abandoned locks.
type StaleReclaimer interface {
	ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error)
}

type Spawner interface {
	Spawn(ctx context.Context, now time.Time) schedules.SpawnResult
}

type History interface {
	RecordOutbound(ctx context.Context, m messaging.OutboundMessage) error
}

// Summary is the aggregate outcome of one invocation.
type Summary struct {
	Picked                   int `json:"picked"`
	Sent                     int `json:"sent"`
	Failed                   int `json:"failed"`
	Retried                  int `json:"retried"`
	SchedulesPicked          int `json:"schedules_picked"`
	JobsCreatedFromSchedules int `json:"jobs_created_from_schedules"`
	// Unsaved counts jobs whose state transition could not be written; they stay locked.
	Unsaved int `json:"unsaved"`

	Locker string   `json:"-"`
	JobIDs []string `json:"-"`
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeRetried
	outcomeFailed
	outcomeSentUnsaved
	outcomeUnsaved
)

type Dispatcher struct {
	Jobs      JobStore
	Spawner   Spawner
	Templates BodyResolver
	Sender    messaging.Sender
	History   History
	Recorder  Recorder

	BatchSize int
	// LockTTL > 0 releases locks older than the TTL before claiming. Zero disables it.
	LockTTL time.Duration
	// JobTimeout bounds template resolution plus send for one job.
	JobTimeout time.Duration

	Logger    *log.Logger
	Now       func() time.Time
	NewLocker func() string
}

// Run is one full invocation: dispatch, then record exactly one DispatchRun.
// Panics escaping the pipeline are returned as errors and recorded.
func (d *Dispatcher) Run(ctx context.Context, source string) (sum Summary, err error) {
	start := time.Now()
	now := d.now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("unhandled dispatch error: %v", p)
		}
		d.record(ctx, source, now, time.Since(start), sum, err)
	}()
	return d.Dispatch(ctx, now)
}

// Dispatch spawns due schedules, claims due jobs and processes each one in turn.
// Only a failed claim returns an error; job failures are counted, not returned.
func (d *Dispatcher) Dispatch(ctx context.Context, now time.Time) (Summary, error) {
	logger := d.logger()
	var sum Summary

	if d.Spawner != nil {
		sp := d.Spawner.Spawn(ctx, now)
		sum.SchedulesPicked = sp.SchedulesPicked
		sum.JobsCreatedFromSchedules = sp.JobsCreated
	}

	if d.LockTTL > 0 {
		if rc, ok := d.Jobs.(StaleReclaimer); ok {
			n, err := rc.ReclaimStale(ctx, now.Add(-d.LockTTL))
			if err != nil {
				logger.Printf("[whatsapp-dispatch] reclaim error: %v", err)
			} else if n > 0 {
				logger.Printf("[whatsapp-dispatch] reclaimed %d stale locks", n)
			}
		}
	}

	sum.Locker = d.locker()
	claimed, err := d.Jobs.ClaimPending(ctx, now, d.batchSize(), sum.Locker)
	if err != nil {
		logger.Printf("[whatsapp-dispatch] pick error: %v", err)
		return sum, fmt.Errorf("failed to pick jobs: %w", err)
	}
	sum.Picked = len(claimed)
	logger.Printf("[whatsapp-dispatch] picked %d jobs locker=%s", len(claimed), sum.Locker)

	// claimed rows are ours to release, so the batch no longer follows the caller's cancellation
	jobCtx := context.WithoutCancel(ctx)
	for i := range claimed {
		j := &claimed[i]
		sum.JobIDs = append(sum.JobIDs, j.ID)
		switch d.process(jobCtx, j, now) {
		case outcomeSent:
			sum.Sent++
		case outcomeSentUnsaved:
			sum.Sent++
			sum.Unsaved++
		case outcomeRetried:
			sum.Retried++
		case outcomeFailed:
			sum.Failed++
		case outcomeUnsaved:
			sum.Unsaved++
		}
	}

	logger.Printf("[whatsapp-dispatch] done picked=%d sent=%d failed=%d retried=%d unsaved=%d schedules_picked=%d jobs_created=%d",
		sum.Picked, sum.Sent, sum.Failed, sum.Retried, sum.Unsaved, sum.SchedulesPicked, sum.JobsCreatedFromSchedules)
	return sum, nil
}

// process isolates one job: any error or panic becomes a send failure for that job only.
func (d *Dispatcher) process(ctx context.Context, j *jobs.Job, now time.Time) (out outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = d.fail(ctx, j, fmt.Sprintf("panic: %v", p), now)
		}
	}()

	body, msgID, err := d.deliver(ctx, j)
	if err != nil {
		return d.fail(ctx, j, err.Error(), now)
	}

	logger := d.logger()
	logger.Printf("[whatsapp-dispatch] sent job=%s sid=%s", j.ID, msgID)
	out = outcomeSent
	wctx, cancel := context.WithTimeout(ctx, transitionTimeout)
	defer cancel()
	if err := d.Jobs.MarkSent(wctx, j, now); err != nil {
		logger.Printf("[whatsapp-dispatch] mark sent error job=%s: %v", j.ID, err)
		out = outcomeSentUnsaved
	}
	if d.History != nil {
		if err := d.History.RecordOutbound(wctx, messaging.OutboundMessage{
			TenantID:          j.TenantID,
			From:              d.Sender.From(),
			To:                j.ToPhone,
			Body:              body,
			JobID:             j.ID,
			TemplateKey:       j.TemplateKey,
			ProviderMessageID: msgID,
		}); err != nil {
			logger.Printf("[whatsapp-dispatch] history error job=%s: %v", j.ID, err)
		}
	}
	return out
}

// deliver resolves the body and sends it within JobTimeout.
func (d *Dispatcher) deliver(ctx context.Context, j *jobs.Job) (string, string, error) {
	timeout := d.JobTimeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := ResolveBody(ctx, d.Templates, j)
	if err != nil {
		return "", "", err
	}
	msgID, err := d.Sender.Send(ctx, j.ToPhone, body)
	if err != nil {
		return "", "", err
	}
	return body, msgID, nil
}

// fail consumes one attempt. Exhausted jobs become failed, the rest go back to
// pending with run_at pushed out by Backoff(attempts). A transition that cannot
// be written is reported as outcomeUnsaved.
func (d *Dispatcher) fail(ctx context.Context, j *jobs.Job, errMsg string, now time.Time) outcome {
	logger := d.logger()
	ctx, cancel := context.WithTimeout(ctx, transitionTimeout)
	defer cancel()

	maxAttempts := j.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	attempts := j.Attempts + 1
	if attempts > maxAttempts {
		attempts = maxAttempts
	}
	logger.Printf("[whatsapp-dispatch] error job=%s attempt=%d/%d err=%s", j.ID, attempts, maxAttempts, errMsg)

	if attempts >= maxAttempts {
		if err := d.Jobs.MarkFailed(ctx, j, attempts, errMsg, now); err != nil {
			logger.Printf("[whatsapp-dispatch] mark failed error job=%s: %v", j.ID, err)
			return outcomeUnsaved
		}
		return outcomeFailed
	}

	runAt := now.Add(jobs.Backoff(attempts))
	if err := d.Jobs.RetryLater(ctx, j, attempts, runAt, errMsg, now); err != nil {
		logger.Printf("[whatsapp-dispatch] retry error job=%s: %v", j.ID, err)
		return outcomeUnsaved
	}
	return outcomeRetried
}

func (d *Dispatcher) record(ctx context.Context, source string, ranAt time.Time, took time.Duration, sum Summary, runErr error) {
	if d.Recorder == nil {
		return
	}
	if source == "" {
		source = SourceManual
	}
	run := DispatchRun{
		ID:                       uuid.NewString(),
		Source:                   source,
		Picked:                   sum.Picked,
		Sent:                     sum.Sent,
		Failed:                   sum.Failed,
		Retried:                  sum.Retried,
		SchedulesPicked:          sum.SchedulesPicked,
		JobsCreatedFromSchedules: sum.JobsCreatedFromSchedules,
		DurationMs:               took.Milliseconds(),
		Meta: map[string]any{
			"locker":     sum.Locker,
			"batch_size": d.batchSize(),
			"unsaved":    sum.Unsaved,
		},
		ClaimedJobIDs: append([]string{}, sum.JobIDs...),
		RanAt:         ranAt,
	}
	if runErr != nil {
		msg := runErr.Error()
		run.Error = &msg
	}

	// the caller may already be gone; the audit row should still land
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.Recorder.Record(rctx, run); err != nil {
		d.logger().Printf("[recorder] failed to record dispatch run: %v", err)
	}
}

func (d *Dispatcher) batchSize() int {
	if d.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return d.BatchSize
}

func (d *Dispatcher) locker() string {
	if d.NewLocker != nil {
		return d.NewLocker()
	}
	return "dispatch-" + uuid.NewString()
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Dispatcher) logger() *log.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return log.Default()
}
