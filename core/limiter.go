package core

import "context"

// RunLimiter bounds the number of pipeline runs executing simultaneously.
// Each admitted run holds one slot until it finishes.
type RunLimiter struct {
	slots chan struct{}
}

// NewRunLimiter creates a limiter admitting up to max concurrent runs.
// If max == 0, admission is unlimited.
func NewRunLimiter(max int) *RunLimiter {
	var slots chan struct{}
	if max > 0 {
		slots = make(chan struct{}, max)
	}
	return &RunLimiter{slots: slots}
}

// Acquire blocks until a run slot is free or ctx is done.
func (rl *RunLimiter) Acquire(ctx context.Context) error {
	if rl.slots == nil {
		return nil
	}
	select {
	case rl.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired by a finished run.
func (rl *RunLimiter) Release() {
	if rl.slots == nil {
		return
	}
	<-rl.slots
}

// InFlight returns the number of currently admitted runs.
func (rl *RunLimiter) InFlight() int {
	if rl.slots == nil {
		return 0
	}
	return len(rl.slots)
}
