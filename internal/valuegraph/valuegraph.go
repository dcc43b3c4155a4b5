// Package valuegraph abstracts the one piece of the native debug API that
// has no Go-shaped equivalent: walking a live CLR object graph (fields,
// properties, array elements, inherited members). Everything above this
// package — condition evaluation, path resolution, inspection — is written
// against these two small interfaces so it never needs to know how a
// concrete embedder's platform.Runtime actually reaches into the target's
// heap.
package valuegraph

import "fmt"

// Kind classifies a Value.
type Kind string

const (
	KindPrimitive Kind = "Primitive"
	KindObject    Kind = "Object"
	KindArray     Kind = "Array"
	KindNull      Kind = "Null"
)

// Value is a frame-relative or object-relative value handle. Primitive
// carries the rendered value for primitives (ints, strings, bools); Address
// identifies a live object/array for further field/element resolution.
type Value struct {
	Kind      Kind
	TypeName  string
	Primitive string
	Address   uint64
}

// IsNull reports whether this value is the null reference.
func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindPrimitive:
		return v.Primitive
	default:
		return fmt.Sprintf("%s(0x%x)", v.TypeName, v.Address)
	}
}

// Frame is one stack frame's locals/arguments/this, as the inspection
// engine and path resolver need it. Scope membership is disjoint: a name
// present in Locals is not also in Arguments.
type Frame struct {
	ThreadID   int
	Index      int
	Locals     map[string]Value
	Arguments  map[string]Value
	This       *Value // nil for a static method frame
}

// Member describes one field or property-backing-field found while walking
// a type's declared-then-inherited member chain (§4.6).
type Member struct {
	Name          string
	DeclaringType string
	Value         Value
	Offset        int
	Size          int
	IsReference   bool
}

// FieldLookupResult disambiguates "not found" from "found but errored".
type FieldLookupResult struct {
	Member Member
	Found  bool
}

// ArrayInfo describes an array object for index resolution and reference
// walking.
type ArrayInfo struct {
	ElementTypeName string
	Length          int
}

// Store is the live object-graph reader. All methods operate on object
// addresses produced by Value.Address for Kind == KindObject/KindArray.
type Store interface {
	// TypeOf returns the concrete runtime type name of the object at addr.
	TypeOf(addr uint64) (string, error)

	// Field looks up a field (or a property's compiler-generated backing
	// field) by exact name on the object's declared type, then walks base
	// types in order (§4.6). Returns Found=false, not an error, when no
	// declared/inherited member matches.
	Field(addr uint64, name string) (FieldLookupResult, error)

	// Fields enumerates every field of the object's own type, and — when
	// includeInherited — of every base type too, in declaration order at
	// their native offsets.
	Fields(addr uint64, includeInherited bool) ([]Member, error)

	// IsArray reports whether addr refers to an array object.
	IsArray(addr uint64) (ArrayInfo, bool, error)
	// Element resolves one array element by index (§4.6 [n] segments).
	Element(addr uint64, index int) (Value, error)

	// Size returns the object's size in bytes, header included for
	// reference types.
	Size(addr uint64) (int, error)

	// Layout returns the full memory layout for a named type (used for
	// layout_get, independent of any live instance).
	Layout(typeName string, includeInherited bool) (TypeLayoutInfo, error)
}

// TypeLayoutInfo mirrors model.TypeLayout but stays in this package's value
// vocabulary (IsReference bool rather than a rendered string) so Store
// implementations don't need to import internal/model.
type TypeLayoutInfo struct {
	TypeName    string
	TotalSize   int
	HeaderSize  int
	IsValueType bool
	BaseType    string
	Fields      []LayoutFieldInfo
}

// LayoutFieldInfo is one field entry of a TypeLayoutInfo.
type LayoutFieldInfo struct {
	Name          string
	TypeName      string
	Offset        int
	Size          int
	Alignment     int
	IsReference   bool
	DeclaringType string
}
