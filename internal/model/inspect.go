package model

// VariableScope classifies where a Variable came from (§3).
type VariableScope string

const (
	ScopeLocal    VariableScope = "Local"
	ScopeArgument VariableScope = "Argument"
	ScopeThis     VariableScope = "This"
	ScopeField    VariableScope = "Field"
	ScopeElement  VariableScope = "Element"
)

// Variable is a rendered value observed in a stack frame or as a child of
// an object inspection (§3, §4.7).
type Variable struct {
	Name          string        `json:"name"`
	Type          string        `json:"type"`
	Value         string        `json:"value"`
	Scope         VariableScope `json:"scope"`
	HasChildren   bool          `json:"has_children"`
	ChildrenCount *int          `json:"children_count,omitempty"`
	Path          string        `json:"path,omitempty"`
}

// ObjectField is one entry in an ObjectInspection's field list. Fields is
// populated with the next breadth-first level when the walk's depth budget
// and field-count cap both still allow it (§4.7); otherwise it is nil and
// HasChildren/ChildCount describe what a deeper inspect_object call would
// expand.
type ObjectField struct {
	Name        string        `json:"name"`
	TypeName    string        `json:"type_name"`
	Value       string        `json:"value"`
	Offset      int           `json:"offset"`
	Size        int           `json:"size"`
	HasChildren bool          `json:"has_children"`
	ChildCount  *int          `json:"child_count,omitempty"`
	Fields      []ObjectField `json:"fields,omitempty"`
}

// ObjectInspection is the bounded-depth field walk of one object (§3, §4.7).
type ObjectInspection struct {
	Address         string        `json:"address"`
	TypeName        string        `json:"type_name"`
	Size            int           `json:"size"`
	Fields          []ObjectField `json:"fields"`
	IsNull          bool          `json:"is_null"`
	HasCircularRef  bool          `json:"has_circular_ref"`
	Truncated       bool          `json:"truncated"`
}

// PaddingReason classifies a gap in a TypeLayout.
type PaddingReason string

const (
	PaddingAlignment PaddingReason = "Alignment"
	PaddingTail      PaddingReason = "Tail"
)

// Padding is a byte range in a TypeLayout that holds no field.
type Padding struct {
	Offset int           `json:"offset"`
	Size   int           `json:"size"`
	Reason PaddingReason `json:"reason"`
}

// LayoutField describes one field's placement within a TypeLayout.
type LayoutField struct {
	Name          string `json:"name"`
	TypeName      string `json:"type_name"`
	Offset        int    `json:"offset"`
	Size          int    `json:"size"`
	Alignment     int    `json:"alignment"`
	IsReference   bool   `json:"is_reference"`
	DeclaringType string `json:"declaring_type"`
}

// TypeLayout is the memory layout of a type (§3, §4.7).
type TypeLayout struct {
	TypeName   string        `json:"type_name"`
	TotalSize  int           `json:"total_size"`
	HeaderSize int           `json:"header_size"`
	DataSize   int           `json:"data_size"`
	Fields     []LayoutField `json:"fields"`
	Padding    []Padding     `json:"padding,omitempty"`
	BaseType   string        `json:"base_type,omitempty"`
	IsValueType bool         `json:"is_value_type"`
}

// ReferenceKind classifies one outbound edge in a ReferencesResult.
type ReferenceKind string

const (
	ReferenceField       ReferenceKind = "Field"
	ReferenceArrayElement ReferenceKind = "ArrayElement"
	ReferenceStatic      ReferenceKind = "Static"
)

// Reference is one outbound edge from the target object.
type Reference struct {
	SourceAddress string        `json:"source_address"`
	SourceType    string        `json:"source_type"`
	TargetAddress string        `json:"target_address"`
	TargetType    string        `json:"target_type"`
	Path          string        `json:"path"`
	Kind          ReferenceKind `json:"reference_kind"`
}

// ReferencesResult is the outbound reference walk of one object (§3, §4.7).
// Inbound direction is formalized as not implemented (§9 Open Questions).
type ReferencesResult struct {
	TargetAddress string      `json:"target_address"`
	TargetType    string      `json:"target_type"`
	Outbound      []Reference `json:"outbound"`
	OutboundCount int         `json:"outbound_count"`
	Truncated     bool        `json:"truncated"`
}

// MemoryRead is the result of a bounded raw memory read (§4.7).
type MemoryRead struct {
	Address string `json:"address"`
	Bytes   []byte `json:"bytes"`
	ASCII   string `json:"ascii"`
	Error   string `json:"error,omitempty"`
}

// ThreadInfo is one managed thread of the attached target (§6.1 `threads`).
type ThreadInfo struct {
	ThreadID int `json:"thread_id"`
}

// StackFrame is one frame of a thread's call stack, source-resolved where
// C1 has symbols for the owning module (§6.1 `stacktrace`).
type StackFrame struct {
	Index       int            `json:"index"`
	ThreadID    int            `json:"thread_id"`
	MethodToken uint32         `json:"method_token"`
	ILOffset    uint32         `json:"il_offset"`
	ModuleName  string         `json:"module_name"`
	IsManaged   bool           `json:"is_managed"`
	Location    *SourceLocation `json:"location,omitempty"`
}

// StackTraceResult is one `stacktrace` call's page of frames, most-recent
// first, plus whether more frames exist beyond max_frames (§6.1).
type StackTraceResult struct {
	ThreadID  int          `json:"thread_id"`
	Frames    []StackFrame `json:"frames"`
	Truncated bool         `json:"truncated"`
}

// EvalResult is the outcome of an `evaluate` call: either a resolved value
// with its type and children flag, or the typed Err variant spec §9
// describes (`EvaluationResult` is `Ok{value,type,has_children} |
// Err{code,message,position?}`) carried as a nil *EvalResult alongside the
// boundary *Error the caller already returns.
type EvalResult struct {
	Value       string `json:"value"`
	TypeName    string `json:"type_name"`
	HasChildren bool   `json:"has_children"`
}
