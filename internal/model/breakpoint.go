package model

import "time"

// BreakpointState is the tagged lifecycle state of a Breakpoint (§3).
type BreakpointState string

const (
	BreakpointPending  BreakpointState = "Pending"
	BreakpointBound    BreakpointState = "Bound"
	BreakpointInvalid  BreakpointState = "Invalid"
	BreakpointDisabled BreakpointState = "Disabled"
)

// Binding is the runtime resolution of a breakpoint to one loaded module.
// A single breakpoint may hold bindings in more than one loaded module when
// several modules share the same source file (e.g. linked assemblies).
type Binding struct {
	ModulePath string `json:"module_path"`
	MethodToken uint32 `json:"method_token"`
	ILOffset    uint32 `json:"il_offset"`
}

// Breakpoint is a registered source breakpoint (§3). Id is stable and
// session-scoped (§9 Open Questions: breakpoint id stability).
type Breakpoint struct {
	ID        string          `json:"id"`
	File      string          `json:"file"`
	Line      int             `json:"line"`
	Column    *int            `json:"column,omitempty"`
	Condition string          `json:"condition,omitempty"`
	Enabled   bool            `json:"enabled"`
	Verified  bool            `json:"verified"`
	HitCount  uint64          `json:"hit_count"`
	State     BreakpointState `json:"state"`
	Message   string          `json:"message,omitempty"`
	Bindings  []Binding       `json:"bindings,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Clone returns a value copy, including a copy of the Bindings slice, safe
// to hand outside the registry lock.
func (b *Breakpoint) Clone() *Breakpoint {
	if b == nil {
		return nil
	}
	cp := *b
	if b.Column != nil {
		c := *b.Column
		cp.Column = &c
	}
	cp.Bindings = append([]Binding(nil), b.Bindings...)
	return &cp
}

// ExceptionBreakpoint pauses on thrown exceptions matching a type (§3).
type ExceptionBreakpoint struct {
	ID               string `json:"id"`
	ExceptionType    string `json:"exception_type"`
	IncludeSubtypes  bool   `json:"include_subtypes"`
	FirstChance      bool   `json:"first_chance"`
	SecondChance     bool   `json:"second_chance"`
	Enabled          bool   `json:"enabled"`
	HitCount         uint64 `json:"hit_count"`
}

// ExceptionInfo describes a thrown exception attached to a Hit.
type ExceptionInfo struct {
	TypeName   string `json:"type_name"`
	Message    string `json:"message"`
	FirstChance bool  `json:"first_chance"`
}

// Hit is produced by the breakpoint manager on a matching hit callback and
// enqueued for any wait_for_breakpoint awaiters (§4.4).
type Hit struct {
	BreakpointID  string         `json:"breakpoint_id"`
	ThreadID      int            `json:"thread_id"`
	Timestamp     time.Time      `json:"timestamp"`
	Location      SourceLocation `json:"location"`
	HitCount      uint64         `json:"hit_count"`
	ExceptionInfo *ExceptionInfo `json:"exception_info,omitempty"`
	Message       string         `json:"message,omitempty"`
}
