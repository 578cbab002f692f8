package dispatch

import (
	"context"
	"log"
	"time"
)

const SourcePoller = "poller"

type Invoker interface {
	Run(ctx context.Context, source string) (Summary, error)
}

// Poller triggers a run on a fixed tick for deployments without an external scheduler.
type Poller struct {
	Runner   Invoker
	Interval time.Duration
	Logger   *log.Logger
}

func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Runner.Run(ctx, SourcePoller); err != nil {
				p.logger().Printf("[poller] dispatch error: %v", err)
			}
		}
	}
}

func (p *Poller) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}
