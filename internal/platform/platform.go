// Package platform declares the native managed-debug API the core consumes
// (spec §6.3) as a Go interface. It is a boundary: the core never re-describes
// the platform's internals, only the documented capability set it needs.
// Production embedders implement Runtime against the real native debug-shim
// binary; clrdebug ships only the Fake implementation used by its own tests.
package platform

import "context"

// EventCategory is the closed set of native callback categories the event
// pump (§4.2) dispatches on.
type EventCategory string

const (
	EventProcessCreated       EventCategory = "ProcessCreated"
	EventAppDomainCreated     EventCategory = "AppDomainCreated"
	EventAppDomainExited      EventCategory = "AppDomainExited"
	EventAssemblyLoaded       EventCategory = "AssemblyLoaded"
	EventAssemblyUnloaded     EventCategory = "AssemblyUnloaded"
	EventModuleLoaded         EventCategory = "ModuleLoaded"
	EventModuleUnloaded       EventCategory = "ModuleUnloaded"
	EventThreadCreated        EventCategory = "ThreadCreated"
	EventThreadExited         EventCategory = "ThreadExited"
	EventNameChange           EventCategory = "NameChange"
	EventLogMessage           EventCategory = "LogMessage"
	EventLogSwitch            EventCategory = "LogSwitch"
	EventSymbolUpdate         EventCategory = "SymbolUpdate"
	EventEvalComplete         EventCategory = "EvalComplete"
	EventEvalException        EventCategory = "EvalException"
	EventBreakpointSetError   EventCategory = "BreakpointSetError"
	EventDebuggerError        EventCategory = "DebuggerError"
	EventEditAndContinueRemap EventCategory = "EditAndContinueRemap"
	EventBreakpoint           EventCategory = "Breakpoint"
	EventStepComplete         EventCategory = "StepComplete"
	EventBreak                EventCategory = "Break"
	EventExceptionFirstChance EventCategory = "ExceptionFirstChance"
	EventExceptionUnhandled   EventCategory = "ExceptionUnhandled"
	EventProcessExited        EventCategory = "ProcessExited"
)

// RawLocation is the partial location information the native platform
// attaches to a callback, before C1 enriches it with source file/line.
type RawLocation struct {
	ModulePath   string
	MethodToken  uint32
	ILOffset     uint32
	FunctionName string
}

// NativeEvent is one callback delivered by the platform on the dedicated
// callback thread (§5). Exactly one NativeEvent is in flight at a time per
// attached session.
type NativeEvent struct {
	Category  EventCategory
	ThreadID  int
	Location  RawLocation
	ModulePath string // AssemblyLoaded/Unloaded, ModuleLoaded/Unloaded
	BreakpointNativeID string // Breakpoint: opaque native breakpoint handle
	ExceptionType string // Exception*
	ExceptionMessage string
	ExitCode  int // ProcessExited
}

// NativeController is the per-session handle the event pump uses to decide
// continuation (§4.2). Continue must be called exactly once per delivered
// NativeEvent or the target hangs.
type NativeController interface {
	Continue(ctx context.Context) error
}

// FrameInfo describes one frame of a thread's call stack as reported by the
// platform (method token + instruction offset only; C1 resolves source).
type FrameInfo struct {
	ThreadID    int
	Index       int
	MethodToken uint32
	ILOffset    uint32
	ModulePath  string
	IsManaged   bool
}

// Runtime is the native capability set: attach/detach/terminate, enumerate modules/threads/frames, read memory,
// arm steps and breakpoints, and walk metadata tables.
type Runtime interface {
	// AttachToProcess attaches to an existing process and returns a
	// NativeController plus a channel of NativeEvents for that session.
	// Launch mode has no separate native primitive: internal/launcher spawns
	// the target under a pty and the session attaches to it via this same
	// method, per spec §6.3's primitive list (attach, not launch).
	AttachToProcess(ctx context.Context, pid int) (NativeController, <-chan NativeEvent, error)
	// Detach releases the native callback registration without killing the
	// target process.
	Detach(ctx context.Context) error
	// Terminate kills the attached target process.
	Terminate(ctx context.Context) error

	// Threads enumerates the target's managed threads.
	Threads(ctx context.Context) ([]int, error)
	// StackTrace enumerates frames of one thread, most-recent first.
	StackTrace(ctx context.Context, threadID int, start, max int) ([]FrameInfo, error)

	// CreateStep arms a native step object on threadID for the given mode.
	CreateStep(ctx context.Context, threadID int, mode string) error
	// RequestBreak asynchronously requests the target stop at its next
	// safe point, delivered as an EventBreak callback.
	RequestBreak(ctx context.Context) error
	// SetCodeBreakpoint arms a native breakpoint at (module, token, offset)
	// and returns an opaque native breakpoint id used to match later hits.
	SetCodeBreakpoint(ctx context.Context, modulePath string, methodToken, ilOffset uint32) (nativeID string, err error)
	// RemoveCodeBreakpoint disarms a previously-armed native breakpoint.
	RemoveCodeBreakpoint(ctx context.Context, nativeID string) error

	// ReadMemory reads up to len(buf) bytes at address into buf, returning
	// the number of bytes actually read.
	ReadMemory(ctx context.Context, address uint64, buf []byte) (int, error)

	// Metadata walks a module's metadata tables. Returned values are POD
	// snapshots safe to use after the call returns.
	ListModules(ctx context.Context) ([]ModuleMetadata, error)
	ListTypes(ctx context.Context, modulePath string) ([]TypeMetadata, error)
	ListMembers(ctx context.Context, modulePath, typeFullName string) ([]MemberMetadata, error)
}

// ModuleMetadata, TypeMetadata and MemberMetadata are the raw metadata
// records the platform exposes; internal/metadata translates these into
// model.ModuleInfo/TypeInfo/MemberInfo after applying filters.
type ModuleMetadata struct {
	Name, Path, Version string
}

type TypeMetadata struct {
	FullName, Namespace, Name, BaseType string
	Kind, Visibility                    string
}

type MemberMetadata struct {
	Name, DeclaringType, TypeName, Visibility, Kind string
	IsStatic, HasGetter, HasSetter                  bool
}
