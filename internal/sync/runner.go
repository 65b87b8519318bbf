package sync

import (
	"context"
	"time"

	"github.com/arne/tubetag/internal/util"
)

// DefaultInterval is the default spacing between scan cycles
const DefaultInterval = 15 * time.Minute

// CycleFunc runs one full scan cycle
type CycleFunc func(ctx context.Context) (*CycleReport, error)

// Runner drives the polling loop: one cycle immediately, then one per
// interval, until the context is cancelled. A kick channel (fed by the
// filesystem watcher) can trigger a cycle ahead of schedule.
type Runner struct {
	cycle    CycleFunc
	interval time.Duration
	kicks    <-chan struct{}
}

// NewRunner creates a Runner around a cycle function. A nil kicks channel
// disables early triggers.
func NewRunner(cycle CycleFunc, interval time.Duration, kicks <-chan struct{}) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{
		cycle:    cycle,
		interval: interval,
		kicks:    kicks,
	}
}

// Run blocks until the context is cancelled. Cycle failures are logged
// and the loop continues; only cancellation stops it.
func (r *Runner) Run(ctx context.Context) error {
	util.InfoLog("Starting scan loop (interval: %v)", r.interval)

	r.runCycle(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			util.InfoLog("Scan loop stopping: %v", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			r.runCycle(ctx)
		case <-r.kicks:
			util.InfoLog("New files detected, scanning early")
			r.runCycle(ctx)
			// Realign the schedule so a kick doesn't double-scan
			ticker.Reset(r.interval)
		}
	}
}

func (r *Runner) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := r.cycle(ctx); err != nil && ctx.Err() == nil {
		util.ErrorLog("Scan cycle failed: %v", err)
	}
}
