package schedules

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"notapilot/internal/jobs"
)

type fakePicker struct {
	due []Due
	err error
}

func (f *fakePicker) PickDue(ctx context.Context, now time.Time, limit int) ([]Due, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

// fakeJobs enforces the (tenant_id, dedupe_key) unique index.
type fakeJobs struct {
	mu      sync.Mutex
	rows    []jobs.Job
	keys    map[string]bool
	failFor map[string]error
}

func (f *fakeJobs) Insert(ctx context.Context, j *jobs.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[j.ToPhone]; err != nil {
		return err
	}
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	if j.DedupeKey != nil {
		k := j.TenantID + "|" + *j.DedupeKey
		if f.keys[k] {
			return jobs.ErrDuplicate
		}
		f.keys[k] = true
	}
	f.rows = append(f.rows, *j)
	return nil
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func dueSchedule(id string, tick time.Time, payload map[string]any) Due {
	return Due{
		Schedule: Schedule{
			ID:          id,
			TenantID:    "tenant-1",
			ScheduleKey: "daily-" + id,
			TemplateKey: "daily_summary",
			Enabled:     true,
			Payload:     payload,
		},
		DueNextRunAt: tick,
	}
}

func TestDedupeKey(t *testing.T) {
	tick := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if got, want := DedupeKey("abc", tick), "schedule:abc:2025-03-01T12:00:00Z"; got != want {
		t.Fatalf("want %q got %q", want, got)
	}
	if DedupeKey("abc", tick) == DedupeKey("abc", tick.Add(time.Second)) {
		t.Fatalf("expected different keys for different ticks")
	}
}

func TestDestination(t *testing.T) {
	cases := []struct {
		payload map[string]any
		want    string
		ok      bool
	}{
		{map[string]any{"to_phone": "+5511999990000"}, "+5511999990000", true},
		{map[string]any{"to": "+5511888880000"}, "+5511888880000", true},
		{map[string]any{"to_phone": "+551", "to": "+552"}, "+551", true},
		{map[string]any{"to_phone": "   ", "to": "+552"}, "+552", true},
		{map[string]any{"to_phone": 5511}, "", false},
		{map[string]any{}, "", false},
	}
	for i, tc := range cases {
		got, ok := Destination(tc.payload)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("case %d: want (%q,%v) got (%q,%v)", i, tc.want, tc.ok, got, ok)
		}
	}
}

func TestSpawn_CreatesJobFromDueSchedule(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 30, 0, time.UTC)
	tick := now.Add(-30 * time.Second)
	store := &fakeJobs{}
	sp := &Spawner{
		Schedules: &fakePicker{due: []Due{dueSchedule("s1", tick, map[string]any{"to_phone": "+5511999990000", "text": "hello"})}},
		Jobs:      store,
		Logger:    quietLogger(),
	}

	res := sp.Spawn(context.Background(), now)
	if res.SchedulesPicked != 1 || res.JobsCreated != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	j := store.rows[0]
	if j.ToPhone != "+5511999990000" || j.TemplateKey != "daily_summary" || j.TenantID != "tenant-1" {
		t.Fatalf("unexpected job %+v", j)
	}
	if !j.RunAt.Equal(now) || j.Status != jobs.StatusPending {
		t.Fatalf("job should be pending and due now, got status=%s run_at=%v", j.Status, j.RunAt)
	}
	if j.DedupeKey == nil || *j.DedupeKey != DedupeKey("s1", tick) {
		t.Fatalf("unexpected dedupe key %v", j.DedupeKey)
	}
	if j.Payload["text"] != "hello" {
		t.Fatalf("payload not carried: %v", j.Payload)
	}
}

func TestSpawn_IdempotentForSameTick(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeJobs{}
	picker := &fakePicker{due: []Due{dueSchedule("s1", now, map[string]any{"to_phone": "+5511"})}}
	sp := &Spawner{Schedules: picker, Jobs: store, Logger: quietLogger()}

	first := sp.Spawn(context.Background(), now)
	second := sp.Spawn(context.Background(), now.Add(time.Second))

	if first.JobsCreated != 1 {
		t.Fatalf("first spawn should create one job, got %+v", first)
	}
	if second.JobsCreated != 0 || second.SchedulesPicked != 1 {
		t.Fatalf("second spawn of the same tick should be a no-op, got %+v", second)
	}
	if len(store.rows) != 1 {
		t.Fatalf("want exactly one job, got %d", len(store.rows))
	}
}

func TestSpawn_SkipsScheduleWithoutDestination(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeJobs{}
	sp := &Spawner{
		Schedules: &fakePicker{due: []Due{
			dueSchedule("s1", now, map[string]any{"text": "no phone"}),
			dueSchedule("s2", now, map[string]any{"to": "+5522"}),
		}},
		Jobs:   store,
		Logger: quietLogger(),
	}
	res := sp.Spawn(context.Background(), now)
	if res.SchedulesPicked != 2 || res.JobsCreated != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if store.rows[0].ToPhone != "+5522" {
		t.Fatalf("fallback to payload.to not used: %+v", store.rows[0])
	}
}

func TestSpawn_InsertErrorDoesNotAbortOthers(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeJobs{failFor: map[string]error{"+5511": errors.New("db down")}}
	sp := &Spawner{
		Schedules: &fakePicker{due: []Due{
			dueSchedule("s1", now, map[string]any{"to_phone": "+5511"}),
			dueSchedule("s2", now, map[string]any{"to_phone": "+5522"}),
		}},
		Jobs:   store,
		Logger: quietLogger(),
	}
	res := sp.Spawn(context.Background(), now)
	if res.SchedulesPicked != 2 || res.JobsCreated != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSpawn_PickErrorReturnsZero(t *testing.T) {
	sp := &Spawner{
		Schedules: &fakePicker{err: errors.New("rpc failed")},
		Jobs:      &fakeJobs{},
		Logger:    quietLogger(),
	}
	res := sp.Spawn(context.Background(), time.Now())
	if res != (SpawnResult{}) {
		t.Fatalf("want zero result, got %+v", res)
	}
}

func TestSpawn_NoDueSchedules(t *testing.T) {
	sp := &Spawner{Schedules: &fakePicker{}, Jobs: &fakeJobs{}, Logger: quietLogger()}
	if res := sp.Spawn(context.Background(), time.Now()); res != (SpawnResult{}) {
		t.Fatalf("want zero result, got %+v", res)
	}
}
