package inspect

import (
	"context"
	"time"

	"clrdebug/internal/model"
	"clrdebug/internal/pathresolve"
	"clrdebug/internal/valuegraph"
)

const (
	minEvalTimeoutMs = 100
	maxEvalTimeoutMs = 60000
)

// Evaluate resolves expression against frame using the same restricted
// dotted-path sublanguage as C3 (§6.1 `evaluate`; §9's EvaluationResult is
// `Ok{value,type,has_children} | Err{code,message,position?}`, which this
// returns as (*model.EvalResult, nil) or (nil, *model.Error). frame is
// nil when the caller could not resolve thread_id/frame_index to a live
// frame, reported as EvalUnavailable rather than EvalException since no
// expression was even attempted.
func Evaluate(ctx context.Context, frame *valuegraph.Frame, store valuegraph.Store, expression string, timeoutMs int) (*model.EvalResult, *model.Error) {
	if timeoutMs < minEvalTimeoutMs || timeoutMs > maxEvalTimeoutMs {
		return nil, model.NewError(model.ErrInvalidParameter, "timeout_ms must be in [100,60000]")
	}
	if frame == nil {
		return nil, model.NewError(model.ErrEvalUnavailable, "no active frame to evaluate against")
	}

	type result struct {
		v   valuegraph.Value
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := pathresolve.Resolve(expression, *frame, store)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, evalError(r.err)
		}
		return valueToEvalResult(r.v, store), nil
	case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
		return nil, model.NewError(model.ErrEvalTimeout, "evaluation exceeded timeout_ms")
	case <-ctx.Done():
		return nil, model.Wrap(model.ErrEvalTimeout, ctx.Err(), "evaluation canceled")
	}
}

func evalError(err error) *model.Error {
	pe, ok := err.(*pathresolve.PathError)
	if !ok {
		return model.NewError(model.ErrEvalException, err.Error())
	}
	if pe.Kind == pathresolve.ErrSyntaxError {
		e := model.NewError(model.ErrEvalSyntaxError, pe.Error())
		return e.AtPosition(pe.Position)
	}
	return model.NewError(model.ErrEvalException, pe.Error())
}

func valueToEvalResult(v valuegraph.Value, store valuegraph.Store) *model.EvalResult {
	hasChildren := false
	if v.Kind == valuegraph.KindObject && !v.IsNull() {
		if members, err := store.Fields(v.Address, true); err == nil {
			hasChildren = len(members) > 0
		}
	}
	if v.Kind == valuegraph.KindArray && !v.IsNull() {
		if info, isArr, err := store.IsArray(v.Address); err == nil && isArr {
			hasChildren = info.Length > 0
		}
	}
	return &model.EvalResult{
		Value:       truncate(v.String()),
		TypeName:    v.TypeName,
		HasChildren: hasChildren,
	}
}
