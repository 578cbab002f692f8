package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingRunner struct {
	calls  atomic.Int32
	source atomic.Value
}

func (c *countingRunner) Run(_ context.Context, source string) (Summary, error) {
	c.calls.Add(1)
	c.source.Store(source)
	return Summary{}, errors.New("ignored")
}

func TestPoller_RunsUntilCancelled(t *testing.T) {
	runner := &countingRunner{}
	p := &Poller{Runner: runner, Interval: 5 * time.Millisecond, Logger: quiet()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for runner.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("poller did not tick")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("poller did not stop")
	}
	if runner.source.Load() != SourcePoller {
		t.Fatalf("want source %q, got %v", SourcePoller, runner.source.Load())
	}
}
