package schedules

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// MinIntervalSeconds is the smallest interval the admin surface accepts.
const MinIntervalSeconds = 60

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron validates a standard 5-field cron expression.
func ParseCron(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron: %w", err)
	}
	return sched, nil
}

// NextAfter returns the first tick of s strictly after now, starting from the
// tick that was due. Missed ticks are skipped so a late pick spawns one job, not a burst.
func NextAfter(s Schedule, due, now time.Time) (time.Time, error) {
	loc := time.UTC
	if s.Timezone != "" {
		l, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timezone: %w", err)
		}
		loc = l
	}

	switch {
	case s.CronExpr != nil && *s.CronExpr != "":
		sched, err := ParseCron(*s.CronExpr)
		if err != nil {
			return time.Time{}, err
		}
		ref := now
		if due.After(ref) {
			ref = due
		}
		return sched.Next(ref.In(loc)).UTC(), nil

	case s.IntervalSeconds > 0:
		step := time.Duration(s.IntervalSeconds) * time.Second
		if !now.Before(due) {
			n := now.Sub(due)/step + 1
			return due.Add(n * step).UTC(), nil
		}
		return due.Add(step).UTC(), nil

	default:
		return time.Time{}, fmt.Errorf("schedule %s has no cadence", s.ID)
	}
}
