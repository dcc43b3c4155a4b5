// Package condition implements C2: parsing and evaluating breakpoint
// condition expressions against the restricted grammar in spec §4.5.
// Conditions are not a general expression language — no assignment, no
// method calls, no arithmetic beyond the comparisons the grammar allows.
package condition

import (
	"clrdebug/internal/model"
	"clrdebug/internal/valuegraph"
)

// Validate parses source and returns nil if it is well-formed, or a
// *model.Error with code ErrInvalidCondition carrying the offending
// character position otherwise. Called at breakpoint set-time, before any
// frame exists to evaluate against.
func Validate(source string) *model.Error {
	if _, err := parse(source); err != nil {
		pos := err.(*parseError).pos
		return model.NewError(model.ErrInvalidCondition, err.Error()).AtPosition(pos)
	}
	return nil
}

// Evaluate parses and evaluates source against the given frame, with
// hit_count bound to the breakpoint's post-increment hit counter (spec
// §4.4: the condition observes the count including the current hit).
// A malformed expression or a resolution failure both surface as
// *model.Error with code ErrInvalidCondition; callers that already called
// Validate at set-time should only see the latter case in practice.
func Evaluate(source string, hitCount uint64, frame valuegraph.Frame, store valuegraph.Store) (bool, *model.Error) {
	expr, err := parse(source)
	if err != nil {
		pe := err.(*parseError)
		return false, model.NewError(model.ErrInvalidCondition, err.Error()).AtPosition(pe.pos)
	}
	result, evalErr := evalExpr(expr, hitCount, frame, store)
	if evalErr != nil {
		return false, model.NewError(model.ErrInvalidCondition, evalErr.Error())
	}
	return result, nil
}
