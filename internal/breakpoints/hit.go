package breakpoints

import (
	"context"
	"time"

	"clrdebug/internal/condition"
	"clrdebug/internal/logging"
	"clrdebug/internal/model"

	"go.uber.org/zap"
)

// EvaluateHit runs the spec §4.4 hit-callback algorithm and reports
// whether the target should remain paused. Satisfies
// eventpump.BreakpointSink.
func (r *Registry) EvaluateHit(ctx context.Context, nativeID string, threadID int, loc model.SourceLocation) bool {
	r.mu.Lock()
	id, ok := r.nativeToID[nativeID]
	if !ok {
		// Anonymous breakpoint: runtime-inserted debug break with no
		// registered binding. Still counted, still pauses.
		r.enqueueLocked(model.Hit{
			BreakpointID: "",
			ThreadID:     threadID,
			Timestamp:    time.Now(),
			Location:     loc,
			HitCount:     1,
		})
		r.mu.Unlock()
		return true
	}
	e := r.byID[id]
	r.mu.Unlock()
	if e == nil {
		return true
	}

	if !e.bp.Enabled {
		return false
	}

	r.mu.Lock()
	e.bp.HitCount++
	hitCount := e.bp.HitCount
	cond := e.bp.Condition
	bpID := e.bp.ID
	r.mu.Unlock()

	hit := model.Hit{
		BreakpointID: bpID,
		ThreadID:     threadID,
		Timestamp:    time.Now(),
		Location:     loc,
		HitCount:     hitCount,
	}

	if cond != "" {
		pass, evalErr := r.evaluateCondition(ctx, cond, hitCount, threadID)
		if evalErr != nil {
			hit.Message = evalErr.Error()
			r.mu.Lock()
			r.enqueueLocked(hit)
			r.mu.Unlock()
			return true
		}
		if !pass {
			return false
		}
	}

	r.mu.Lock()
	r.enqueueLocked(hit)
	r.mu.Unlock()
	return true
}

func (r *Registry) evaluateCondition(ctx context.Context, cond string, hitCount uint64, threadID int) (bool, *model.Error) {
	if r.frames == nil {
		return false, model.NewError(model.ErrInvalidCondition, "no frame provider wired: cannot evaluate condition")
	}
	frame, store, err := r.frames.CurrentFrame(ctx, threadID)
	if err != nil {
		return false, model.Wrap(model.ErrInvalidCondition, err, "failed to resolve current frame")
	}
	return condition.Evaluate(cond, hitCount, frame, store)
}

// enqueueLocked appends hit to the bounded FIFO, dropping the oldest entry
// once at capacity, and wakes every wait_for_breakpoint awaiter. Must be
// called with r.mu held.
func (r *Registry) enqueueLocked(hit model.Hit) {
	if len(r.queue) >= hitQueueCapacity {
		r.queue = r.queue[1:]
	}
	r.queue = append(r.queue, hit)
	close(r.notifyCh)
	r.notifyCh = make(chan struct{})
}

// MatchExceptionBreakpoint reports whether any registered exception
// breakpoint matches exceptionType at the given chance. Satisfies
// eventpump.BreakpointSink. The exception list is snapshotted under r.mu
// and released before isSubtype's native metadata-table walk runs, per
// spec §5: "no lock is held across a native platform call longer than
// O(1) native operations."
func (r *Registry) MatchExceptionBreakpoint(exceptionType string, firstChance bool) bool {
	r.mu.Lock()
	snapshot := append([]*model.ExceptionBreakpoint(nil), r.exceptions...)
	r.mu.Unlock()

	var matched *model.ExceptionBreakpoint
	for _, eb := range snapshot {
		if !eb.Enabled {
			continue
		}
		if firstChance && !eb.FirstChance {
			continue
		}
		if !firstChance && !eb.SecondChance {
			continue
		}
		if eb.ExceptionType == exceptionType {
			matched = eb
			break
		}
		if eb.IncludeSubtypes && r.isSubtype(exceptionType, eb.ExceptionType) {
			matched = eb
			break
		}
	}
	if matched == nil {
		return false
	}
	r.mu.Lock()
	matched.HitCount++
	r.mu.Unlock()
	return true
}

// isSubtype walks the base-type chain reported by the metadata catalog
// (spec §4.4 "runtime metadata walk"). Does not touch registry state, so
// it is safe to call without r.mu held.
func (r *Registry) isSubtype(thrown, ancestor string) bool {
	if r.rt == nil {
		return false
	}
	baseOf, err := r.baseTypeIndex()
	if err != nil {
		logging.L().Warn("breakpoints: base-type walk failed", zap.Error(err))
		return false
	}
	seen := map[string]bool{}
	cur := thrown
	for {
		base, ok := baseOf[cur]
		if !ok || base == "" || seen[base] {
			return false
		}
		if base == ancestor {
			return true
		}
		seen[base] = true
		cur = base
	}
}

func (r *Registry) baseTypeIndex() (map[string]string, error) {
	ctx := context.Background()
	mods, err := r.rt.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]string)
	for _, m := range mods {
		types, err := r.rt.ListTypes(ctx, m.Path)
		if err != nil {
			continue
		}
		for _, t := range types {
			index[t.FullName] = t.BaseType
		}
	}
	return index, nil
}
