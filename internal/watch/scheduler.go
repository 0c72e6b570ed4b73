package watch

import (
	"context"
	"log"
	"time"
)

// Runner triggers poll cycles at a fixed interval, indefinitely.
//
// Cycles never overlap: a single loop runs one cycle to completion before
// waiting for the next tick, so a cycle that outlives the interval delays
// the next trigger. Cancellation takes effect between cycles.
type Runner struct {
	cycle    *Cycle
	interval time.Duration
	logger   *log.Logger
}

// NewRunner creates a Runner firing the cycle every interval.
func NewRunner(cycle *Cycle, interval time.Duration, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		cycle:    cycle,
		interval: interval,
		logger:   logger,
	}
}

// Run executes cycles until ctx is cancelled. The first cycle starts
// immediately. Returns ctx.Err() on cancellation.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Printf("Runner started, poll interval: %v", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.cycle.Run(ctx); err != nil {
			// Run only errors on cancellation; cycle-internal failures
			// are isolated per keyword and per listing.
			r.logger.Println("Runner stopping...")
			return err
		}

		select {
		case <-ctx.Done():
			r.logger.Println("Runner stopping...")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
