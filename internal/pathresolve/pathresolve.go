// Package pathresolve implements C3: resolving a dotted identifier path
// such as "a.b.c" or "this._x.Y[0]" against a stack frame's locals,
// arguments and this, walking fields/property-backing-fields including
// inherited members (spec §4.6). It is a restricted sublanguage, not a
// general expression compiler — operators are out of scope here and live
// one layer up in internal/condition.
package pathresolve

import (
	"fmt"
	"strconv"
	"strings"

	"clrdebug/internal/valuegraph"
)

// ErrorKind is the closed set of path-resolution failure modes (§4.6).
type ErrorKind string

const (
	ErrUnknownIdentifier ErrorKind = "UnknownIdentifier"
	ErrMemberNotFound    ErrorKind = "MemberNotFound"
	ErrNullIntermediate  ErrorKind = "NullIntermediate"
	ErrSyntaxError       ErrorKind = "SyntaxError"
	ErrInvalidIndex      ErrorKind = "InvalidIndex"
)

// PathError is the typed error C3 returns; C2 and C4 inspect Kind to decide
// how to report it further up the stack.
type PathError struct {
	Kind       ErrorKind
	Segment    string
	Position   int
	TypeName   string
	PathPrefix string
}

func (e *PathError) Error() string {
	switch e.Kind {
	case ErrUnknownIdentifier:
		return fmt.Sprintf("unknown identifier %q at position %d", e.Segment, e.Position)
	case ErrMemberNotFound:
		return fmt.Sprintf("member %q not found on type %s", e.Segment, e.TypeName)
	case ErrNullIntermediate:
		return fmt.Sprintf("null reference at %q", e.PathPrefix)
	case ErrInvalidIndex:
		return fmt.Sprintf("invalid index in %q", e.Segment)
	default:
		return "path syntax error"
	}
}

// segment is one dotted-path component plus any trailing [n] indices.
type segment struct {
	name     string
	indices  []int
	position int
}

// parse splits a dotted path into segments, rejecting anything that is not
// a plain identifier chain (operators, parens, comparison tokens all fail
// here and are reported as ErrSyntaxError so C2 can tell "this is not even
// a path" apart from "this path doesn't resolve").
func parse(path string) ([]segment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &PathError{Kind: ErrSyntaxError}
	}
	var segs []segment
	parts := strings.Split(path, ".")
	pos := 0
	for _, part := range parts {
		start := pos
		pos += len(part) + 1 // account for the '.' we split on
		if part == "" {
			return nil, &PathError{Kind: ErrSyntaxError, Position: start}
		}
		name := part
		var indices []int
		for {
			open := strings.IndexByte(name, '[')
			if open < 0 {
				break
			}
			close := strings.IndexByte(name, ']')
			if close < open {
				return nil, &PathError{Kind: ErrSyntaxError, Position: start + open}
			}
			idxStr := name[open+1 : close]
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, &PathError{Kind: ErrSyntaxError, Position: start + open + 1}
			}
			indices = append(indices, idx)
			name = name[:open] + name[close+1:]
		}
		if !isIdentifier(name) {
			return nil, &PathError{Kind: ErrSyntaxError, Position: start}
		}
		segs = append(segs, segment{name: name, indices: indices, position: start})
	}
	return segs, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isLetter {
			return false
		}
		if i > 0 && !isLetter && !isDigit {
			return false
		}
	}
	return true
}

// Resolve walks path against frame, using store to dereference object
// fields and array elements, and returns the final value or a *PathError.
func Resolve(path string, frame valuegraph.Frame, store valuegraph.Store) (valuegraph.Value, error) {
	segs, err := parse(path)
	if err != nil {
		return valuegraph.Value{}, err
	}

	first := segs[0]
	cur, err := resolveFirst(first, frame, store)
	if err != nil {
		return valuegraph.Value{}, err
	}
	cur, err = applyIndices(cur, first, store)
	if err != nil {
		return valuegraph.Value{}, err
	}

	prefix := first.name
	for _, seg := range segs[1:] {
		if cur.IsNull() {
			return valuegraph.Value{}, &PathError{Kind: ErrNullIntermediate, PathPrefix: prefix}
		}
		if cur.Kind != valuegraph.KindObject && cur.Kind != valuegraph.KindArray {
			return valuegraph.Value{}, &PathError{Kind: ErrMemberNotFound, Segment: seg.name, TypeName: cur.TypeName}
		}
		result, ferr := store.Field(cur.Address, seg.name)
		if ferr != nil {
			return valuegraph.Value{}, ferr
		}
		if !result.Found {
			typeName, _ := store.TypeOf(cur.Address)
			return valuegraph.Value{}, &PathError{Kind: ErrMemberNotFound, Segment: seg.name, TypeName: typeName}
		}
		cur = result.Member.Value
		cur, err = applyIndices(cur, seg, store)
		if err != nil {
			return valuegraph.Value{}, err
		}
		prefix = prefix + "." + seg.name
	}
	return cur, nil
}

// resolveFirst resolves the leading segment in spec §4.6's priority order:
// local, then argument, then an implicit field of this (tried last since
// locals/arguments shadow fields of the same name).
func resolveFirst(first segment, frame valuegraph.Frame, store valuegraph.Store) (valuegraph.Value, error) {
	if first.name == "this" {
		if frame.This == nil {
			return valuegraph.Value{}, &PathError{Kind: ErrUnknownIdentifier, Segment: first.name, Position: first.position}
		}
		return *frame.This, nil
	}
	if v, ok := frame.Locals[first.name]; ok {
		return v, nil
	}
	if v, ok := frame.Arguments[first.name]; ok {
		return v, nil
	}
	if frame.This != nil && !frame.This.IsNull() {
		if result, ferr := store.Field(frame.This.Address, first.name); ferr == nil && result.Found {
			return result.Member.Value, nil
		}
	}
	return valuegraph.Value{}, &PathError{Kind: ErrUnknownIdentifier, Segment: first.name, Position: first.position}
}

func applyIndices(v valuegraph.Value, seg segment, store valuegraph.Store) (valuegraph.Value, error) {
	cur := v
	for _, idx := range seg.indices {
		if cur.IsNull() {
			return valuegraph.Value{}, &PathError{Kind: ErrNullIntermediate, PathPrefix: seg.name}
		}
		if cur.Kind != valuegraph.KindArray {
			if info, isArr, err := store.IsArray(cur.Address); err != nil || !isArr {
				_ = info
				return valuegraph.Value{}, &PathError{Kind: ErrInvalidIndex, Segment: seg.name}
			}
		}
		elem, err := store.Element(cur.Address, idx)
		if err != nil {
			return valuegraph.Value{}, &PathError{Kind: ErrInvalidIndex, Segment: fmt.Sprintf("%s[%d]", seg.name, idx)}
		}
		cur = elem
	}
	return cur, nil
}
