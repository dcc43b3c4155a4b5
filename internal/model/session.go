package model

import "time"

// SessionState is the tagged state of the single attached session (§3, §4.1).
type SessionState string

const (
	StateDisconnected SessionState = "Disconnected"
	StateRunning      SessionState = "Running"
	StatePaused       SessionState = "Paused"
)

// PauseReason is the tagged reason the target is currently paused.
type PauseReason string

const (
	PauseBreakpoint PauseReason = "Breakpoint"
	PauseStep       PauseReason = "Step"
	PauseException  PauseReason = "Exception"
	PausePause      PauseReason = "Pause"
	PauseEntry      PauseReason = "Entry"
)

// LaunchMode selects how the session was created.
type LaunchMode string

const (
	LaunchModeAttach LaunchMode = "Attach"
	LaunchModeLaunch LaunchMode = "Launch"
)

// StepMode selects the granularity of a step request.
type StepMode string

const (
	StepIn   StepMode = "In"
	StepOver StepMode = "Over"
	StepOut  StepMode = "Out"
)

// SourceLocation is an immutable value describing a point (or range) in
// source text, optionally enriched with the owning function/module.
type SourceLocation struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	Column      *int   `json:"column,omitempty"`
	EndLine     *int   `json:"end_line,omitempty"`
	EndColumn   *int   `json:"end_column,omitempty"`
	FunctionName string `json:"function_name,omitempty"`
	ModuleName   string `json:"module_name,omitempty"`
}

// Session is the process-wide singleton describing the one attached debug
// target. pause_reason/location/active_thread_id are populated iff
// State == StatePaused (§3 invariant, tested in §8 invariant 2).
type Session struct {
	ProcessID      int             `json:"process_id"`
	ProcessName    string          `json:"process_name"`
	ExecutablePath string          `json:"executable_path"`
	RuntimeVersion string          `json:"runtime_version"`
	Mode           LaunchMode      `json:"mode"`
	AttachedAt     time.Time       `json:"attached_at"`
	State          SessionState    `json:"state"`
	PauseReason    *PauseReason    `json:"pause_reason,omitempty"`
	Location       *SourceLocation `json:"location,omitempty"`
	ActiveThreadID *int            `json:"active_thread_id,omitempty"`
	LaunchArgv     []string        `json:"launch_argv,omitempty"`
	LaunchCwd      string          `json:"launch_cwd,omitempty"`

	// pendingStepMode records the mode passed to the last step() call until
	// the following step pause clears it (§4.1 Step). The event pump does
	// not read it; StepComplete is reported as PauseStep whatever the mode.
	pendingStepMode *StepMode
}

// Clone returns a value copy safe to hand to a caller outside the session
// monitor (§5 Locking: read accesses are allowed from any thread, but must
// not alias the mutable record).
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.PauseReason != nil {
		pr := *s.PauseReason
		cp.PauseReason = &pr
	}
	if s.Location != nil {
		loc := *s.Location
		cp.Location = &loc
	}
	if s.ActiveThreadID != nil {
		tid := *s.ActiveThreadID
		cp.ActiveThreadID = &tid
	}
	cp.LaunchArgv = append([]string(nil), s.LaunchArgv...)
	cp.pendingStepMode = nil
	return &cp
}

// PendingStepMode returns the step mode recorded by the last step() call,
// if one is outstanding.
func (s *Session) PendingStepMode() *StepMode {
	return s.pendingStepMode
}

// SetPendingStepMode records the step mode for the in-flight step request.
func (s *Session) SetPendingStepMode(mode *StepMode) {
	s.pendingStepMode = mode
}

// StateChanged is published on every session state transition (§4.1).
type StateChanged struct {
	Old         SessionState
	New         SessionState
	PauseReason *PauseReason
	Location    *SourceLocation
	ThreadID    *int
}
