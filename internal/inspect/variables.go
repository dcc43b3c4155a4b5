// Package inspect implements C4: rendering locals/arguments/this to short
// strings, walking object graphs with cycle detection and depth bounds,
// computing type layouts, walking outbound references, and bounded raw
// memory reads (spec §4.7).
package inspect

import (
	"strconv"

	"clrdebug/internal/model"
	"clrdebug/internal/pathresolve"
	"clrdebug/internal/valuegraph"
)

const maxRenderedValue = 256

// VariableScopeFilter selects which of a frame's variable kinds Variables
// returns.
type VariableScopeFilter string

const (
	ScopeAll       VariableScopeFilter = "all"
	ScopeLocals    VariableScopeFilter = "locals"
	ScopeArguments VariableScopeFilter = "arguments"
	ScopeThis      VariableScopeFilter = "this"
)

// Variables enumerates frame's locals/arguments/this filtered by scope. If
// expand is non-empty it is resolved via pathresolve relative to frame and
// the resulting value's direct children (if any) are appended, one level
// deep, with their Path set so a caller can expand further.
func Variables(frame valuegraph.Frame, store valuegraph.Store, scope VariableScopeFilter, expand string) ([]model.Variable, *model.Error) {
	var out []model.Variable
	if scope == ScopeAll || scope == ScopeThis {
		if frame.This != nil {
			out = append(out, renderVariable("this", *frame.This, model.ScopeThis, store, "this"))
		}
	}
	if scope == ScopeAll || scope == ScopeLocals {
		for _, name := range sortedKeys(frame.Locals) {
			out = append(out, renderVariable(name, frame.Locals[name], model.ScopeLocal, store, name))
		}
	}
	if scope == ScopeAll || scope == ScopeArguments {
		for _, name := range sortedKeys(frame.Arguments) {
			out = append(out, renderVariable(name, frame.Arguments[name], model.ScopeArgument, store, name))
		}
	}
	if expand == "" {
		return out, nil
	}
	v, err := pathresolve.Resolve(expand, frame, store)
	if err != nil {
		return out, model.NewError(model.ErrInvalidReference, err.Error())
	}
	children, cerr := renderChildren(v, store, expand)
	if cerr != nil {
		return out, cerr
	}
	return append(out, children...), nil
}

func renderChildren(v valuegraph.Value, store valuegraph.Store, parentPath string) ([]model.Variable, *model.Error) {
	if v.IsNull() || v.Kind == valuegraph.KindPrimitive {
		return nil, nil
	}
	var out []model.Variable
	if v.Kind == valuegraph.KindArray {
		info, isArr, err := store.IsArray(v.Address)
		if err != nil || !isArr {
			return nil, nil
		}
		for i := 0; i < info.Length; i++ {
			elem, err := store.Element(v.Address, i)
			if err != nil {
				continue
			}
			path := parentPath + "[" + strconv.Itoa(i) + "]"
			out = append(out, renderVariable(strconv.Itoa(i), elem, model.ScopeElement, store, path))
		}
		return out, nil
	}
	members, err := store.Fields(v.Address, false)
	if err != nil {
		return nil, model.NewError(model.ErrVariablesFailed, err.Error())
	}
	for _, m := range members {
		path := parentPath + "." + m.Name
		out = append(out, renderVariable(m.Name, m.Value, model.ScopeField, store, path))
	}
	return out, nil
}

func renderVariable(name string, v valuegraph.Value, scope model.VariableScope, store valuegraph.Store, path string) model.Variable {
	hasChildren := false
	var count *int
	if v.Kind == valuegraph.KindObject && !v.IsNull() {
		if members, err := store.Fields(v.Address, true); err == nil {
			hasChildren = len(members) > 0
			n := len(members)
			count = &n
		}
	}
	if v.Kind == valuegraph.KindArray && !v.IsNull() {
		if info, isArr, err := store.IsArray(v.Address); err == nil && isArr {
			hasChildren = info.Length > 0
			n := info.Length
			count = &n
		}
	}
	return model.Variable{
		Name:          name,
		Type:          v.TypeName,
		Value:         truncate(v.String()),
		Scope:         scope,
		HasChildren:   hasChildren,
		ChildrenCount: count,
		Path:          path,
	}
}

func truncate(s string) string {
	if len(s) <= maxRenderedValue {
		return s
	}
	return s[:maxRenderedValue-1] + "…"
}

func sortedKeys(m map[string]valuegraph.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Stable, deterministic order for rendering; frames are small so a
	// simple insertion sort reads clearer than pulling in sort for this.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
