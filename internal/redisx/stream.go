package redisx

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"notapilot/internal/dispatch"
)

const (
	DefaultRunsStream = "whatsapp:dispatch_runs"
	runsMaxLen        = 1000
)

type XAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RunStream appends every finished dispatch run to a capped Redis stream.
type RunStream struct {
	RDB    XAdder
	Stream string
}

func (s *RunStream) Record(ctx context.Context, run dispatch.DispatchRun) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	stream := s.Stream
	if stream == "" {
		stream = DefaultRunsStream
	}
	return s.RDB.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: runsMaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]any{
			"source": run.Source,
			"data":   string(b),
		},
	}).Err()
}
