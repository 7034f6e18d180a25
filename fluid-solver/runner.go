package fluid

import (
	"context"
	"sync/atomic"
	"time"
)

// Runner drives a Solver from a single goroutine: every interval it runs
// StepsPerFrame steps (unless paused) and hands a snapshot to the caller.
type Runner struct {
	solver        *Solver
	StepsPerFrame int
	Interval      time.Duration

	running int32
}

func NewRunner(s *Solver, stepsPerFrame int, interval time.Duration) *Runner {
	if stepsPerFrame < 1 {
		stepsPerFrame = 1
	}
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &Runner{
		solver:        s,
		StepsPerFrame: stepsPerFrame,
		Interval:      interval,
	}
}

func (r *Runner) Running() bool {
	return atomic.LoadInt32(&r.running) == 1
}

func (r *Runner) SetRunning(on bool) {
	var v int32
	if on {
		v = 1
	}
	atomic.StoreInt32(&r.running, v)
}

// Toggle flips the run state and returns the new one.
func (r *Runner) Toggle() bool {
	for {
		old := atomic.LoadInt32(&r.running)
		if atomic.CompareAndSwapInt32(&r.running, old, 1-old) {
			return old == 0
		}
	}
}

// Run blocks until ctx is done. Frames are delivered while paused as well,
// so barrier edits stay visible.
func (r *Runner) Run(ctx context.Context, onFrame func(Frame)) error {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.Running() {
				for i := 0; i < r.StepsPerFrame; i++ {
					r.solver.Step()
				}
			}
			if onFrame != nil {
				onFrame(r.solver.Snapshot())
			}
		}
	}
}
