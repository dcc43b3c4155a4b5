package breakpoints

import (
	"context"
	"time"

	"clrdebug/internal/model"
	"clrdebug/internal/telemetry"
)

// WaitForBreakpoint returns the next hit matching filterID (or any hit, if
// filterID is nil), blocking up to timeout. Non-matching hits are left in
// the queue for other waiters — FIFO, non-destructive peek until matched
// (spec §4.4). Returns (nil, nil) on timeout, and a typed Timeout error
// only when ctx is cancelled first.
func (r *Registry) WaitForBreakpoint(ctx context.Context, timeout time.Duration, filterID *string) (*model.Hit, *model.Error) {
	deadline := time.Now().Add(timeout)
	for {
		r.mu.Lock()
		if idx, ok := r.findMatchLocked(filterID); ok {
			hit := r.queue[idx]
			r.queue = append(r.queue[:idx], r.queue[idx+1:]...)
			r.mu.Unlock()
			return &hit, nil
		}
		ch := r.notifyCh
		r.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			telemetry.Get().WaitTimeouts.Inc()
			return nil, nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
			telemetry.Get().WaitTimeouts.Inc()
			return nil, nil
		case <-ctx.Done():
			timer.Stop()
			return nil, model.Wrap(model.ErrTimeout, ctx.Err(), "wait_for_breakpoint cancelled")
		}
	}
}

// findMatchLocked returns the index of the earliest queued hit matching
// filterID. Must be called with r.mu held.
func (r *Registry) findMatchLocked(filterID *string) (int, bool) {
	for i, h := range r.queue {
		if filterID == nil || h.BreakpointID == *filterID {
			return i, true
		}
	}
	return 0, false
}
