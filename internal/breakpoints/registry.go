// Package breakpoints implements C7: the breakpoint registry, native
// binding lifecycle, hit evaluation, and the wait_for_breakpoint queue
// (spec §4.4). It structurally satisfies eventpump.BreakpointSink without
// importing that package, the same way internal/session is expected to
// satisfy eventpump.SessionSink.
package breakpoints

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clrdebug/internal/condition"
	"clrdebug/internal/logging"
	"clrdebug/internal/model"
	"clrdebug/internal/platform"
	"clrdebug/internal/symbols"
	"clrdebug/internal/valuegraph"

	"go.uber.org/zap"
)

const hitQueueCapacity = 1024

// FrameProvider resolves the live frame/store pair a condition evaluates
// against. The caller of New supplies the implementation; none is built
// by internal/session. Registry only depends on this narrow interface.
type FrameProvider interface {
	CurrentFrame(ctx context.Context, threadID int) (valuegraph.Frame, valuegraph.Store, error)
}

// symbolResolver is the slice of *symbols.Resolver the registry needs.
// Declared as an interface so tests can substitute a resolver that never
// touches a real mtime-backed cache.
type symbolResolver interface {
	FindILOffset(assemblyPath, sourceFile string, line int, column *int) (*symbols.Binding, bool, error)
}

type binding struct {
	modulePath  string
	methodToken uint32
	ilOffset    uint32
	nativeID    string
}

type entry struct {
	bp       *model.Breakpoint
	bindings []binding
}

type fileLineKey struct {
	file   string
	line   int
	column int // 0 means "no column specified"
}

// Registry is the breakpoint manager's public surface. A single mutex
// protects every field; lock ordering is session -> breakpoints ->
// symbols, never reversed (spec §5).
type Registry struct {
	mu sync.Mutex

	rt       platform.Runtime
	resolver symbolResolver
	frames   FrameProvider

	byID       map[string]*entry
	byFileLine map[fileLineKey][]*entry
	nativeToID map[string]string
	loaded     map[string]bool

	exceptions []*model.ExceptionBreakpoint

	queue    []model.Hit
	notifyCh chan struct{}
}

// New builds a Registry. rt is used to request/release native bindings;
// resolver is C1, used to translate (file, line, column) into
// (method_token, il_offset) per loaded module; frames supplies the live
// frame a condition evaluates against (may be nil if conditions are never
// used, e.g. in tests that only exercise unconditional breakpoints).
func New(rt platform.Runtime, resolver symbolResolver, frames FrameProvider) *Registry {
	return &Registry{
		rt:         rt,
		resolver:   resolver,
		frames:     frames,
		byID:       make(map[string]*entry),
		byFileLine: make(map[fileLineKey][]*entry),
		nativeToID: make(map[string]string),
		loaded:     make(map[string]bool),
		notifyCh:   make(chan struct{}),
	}
}

func normalizeFile(path string) string {
	p := filepath.ToSlash(path)
	if runtime.GOOS == "windows" {
		p = strings.ToLower(p)
	}
	return p
}

// Set registers a source breakpoint, implementing spec §4.4's 4-step
// algorithm. duplicate reports whether an existing breakpoint at the same
// (file, line, column) was returned instead of a new one; its condition is
// replaced with cond regardless (latest condition supersedes prior).
func (r *Registry) Set(ctx context.Context, file string, line int, column *int, cond string) (*model.Breakpoint, bool, *model.Error) {
	if line < 1 {
		return nil, false, model.NewError(model.ErrInvalidLine, "line must be >= 1")
	}
	if column != nil && *column < 1 {
		return nil, false, model.NewError(model.ErrInvalidColumn, "column must be >= 1 when present")
	}
	if cond != "" {
		if verr := condition.Validate(cond); verr != nil {
			return nil, false, verr
		}
	}

	key := fileLineKey{file: normalizeFile(file), line: line}
	if column != nil {
		key.column = *column
	}

	r.mu.Lock()
	if existing := r.byFileLine[key]; len(existing) > 0 {
		e := existing[0]
		e.bp.Condition = cond
		cp := e.bp.Clone()
		r.mu.Unlock()
		return cp, true, nil
	}

	bp := &model.Breakpoint{
		ID:        uuid.NewString(),
		File:      file,
		Line:      line,
		Column:    column,
		Condition: cond,
		Enabled:   true,
		State:     model.BreakpointPending,
		CreatedAt: time.Now(),
	}
	e := &entry{bp: bp}
	r.bindLocked(ctx, e)
	r.byID[bp.ID] = e
	r.byFileLine[key] = append(r.byFileLine[key], e)
	cp := e.bp.Clone()
	r.mu.Unlock()
	return cp, false, nil
}

// bindLocked attempts to bind e against every currently-loaded module
// whose symbols cover e.bp.File, requesting a native binding for each
// success. Must be called with r.mu held.
func (r *Registry) bindLocked(ctx context.Context, e *entry) {
	if r.resolver == nil {
		return
	}
	for modulePath := range r.loaded {
		b, ok, err := r.resolver.FindILOffset(modulePath, e.bp.File, e.bp.Line, e.bp.Column)
		if err != nil {
			logging.L().Warn("breakpoints: symbol lookup failed", zap.String("module", modulePath), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		nativeID := ""
		if r.rt != nil {
			id, bindErr := r.rt.SetCodeBreakpoint(ctx, modulePath, b.MethodToken, b.ILOffset)
			if bindErr != nil {
				logging.L().Warn("breakpoints: native bind failed", zap.String("module", modulePath), zap.Error(bindErr))
				continue
			}
			nativeID = id
		}
		bnd := binding{modulePath: modulePath, methodToken: b.MethodToken, ilOffset: b.ILOffset, nativeID: nativeID}
		e.bindings = append(e.bindings, bnd)
		e.bp.Bindings = append(e.bp.Bindings, model.Binding{ModulePath: modulePath, MethodToken: b.MethodToken, ILOffset: b.ILOffset})
		if nativeID != "" {
			r.nativeToID[nativeID] = e.bp.ID
		}
	}
	if len(e.bindings) > 0 {
		e.bp.State = model.BreakpointBound
		e.bp.Verified = true
	}
}

// OnModuleLoaded attempts to bind every Pending breakpoint against the
// newly loaded module. Satisfies eventpump.BreakpointSink.
func (r *Registry) OnModuleLoaded(modulePath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded[modulePath] = true
	for _, e := range r.byID {
		if e.bp.State != model.BreakpointPending {
			continue
		}
		r.bindOneModuleLocked(context.Background(), e, modulePath)
	}
}

func (r *Registry) bindOneModuleLocked(ctx context.Context, e *entry, modulePath string) {
	if r.resolver == nil {
		return
	}
	b, ok, err := r.resolver.FindILOffset(modulePath, e.bp.File, e.bp.Line, e.bp.Column)
	if err != nil || !ok {
		return
	}
	nativeID := ""
	if r.rt != nil {
		id, bindErr := r.rt.SetCodeBreakpoint(ctx, modulePath, b.MethodToken, b.ILOffset)
		if bindErr != nil {
			return
		}
		nativeID = id
	}
	bnd := binding{modulePath: modulePath, methodToken: b.MethodToken, ilOffset: b.ILOffset, nativeID: nativeID}
	e.bindings = append(e.bindings, bnd)
	e.bp.Bindings = append(e.bp.Bindings, model.Binding{ModulePath: modulePath, MethodToken: b.MethodToken, ILOffset: b.ILOffset})
	if nativeID != "" {
		r.nativeToID[nativeID] = e.bp.ID
	}
	e.bp.State = model.BreakpointBound
	e.bp.Verified = true
}

// OnModuleUnloaded drops every binding belonging to modulePath, reverting
// a breakpoint to Pending if none remain. Satisfies eventpump.BreakpointSink.
func (r *Registry) OnModuleUnloaded(modulePath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.loaded, modulePath)
	for _, e := range r.byID {
		kept := e.bindings[:0:0]
		for _, b := range e.bindings {
			if b.modulePath == modulePath {
				delete(r.nativeToID, b.nativeID)
				continue
			}
			kept = append(kept, b)
		}
		if len(kept) == len(e.bindings) {
			continue
		}
		e.bindings = kept
		var publicBindings []model.Binding
		for _, b := range kept {
			publicBindings = append(publicBindings, model.Binding{ModulePath: b.modulePath, MethodToken: b.methodToken, ILOffset: b.ilOffset})
		}
		e.bp.Bindings = publicBindings
		if len(kept) == 0 {
			e.bp.State = model.BreakpointPending
			e.bp.Verified = false
		}
	}
}

// List returns a snapshot of every registered breakpoint.
func (r *Registry) List() []*model.Breakpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Breakpoint, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e.bp.Clone())
	}
	return out
}

// Remove unregisters a breakpoint and releases its native bindings.
func (r *Registry) Remove(ctx context.Context, id string) *model.Error {
	r.mu.Lock()
	e, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return model.NewErrorf(model.ErrBreakpointNotFound, "no breakpoint with id %q", id)
	}
	delete(r.byID, id)
	key := fileLineKey{file: normalizeFile(e.bp.File), line: e.bp.Line}
	if e.bp.Column != nil {
		key.column = *e.bp.Column
	}
	r.byFileLine[key] = removeEntry(r.byFileLine[key], e)
	bindings := append([]binding(nil), e.bindings...)
	for _, b := range bindings {
		delete(r.nativeToID, b.nativeID)
	}
	r.mu.Unlock()

	if r.rt != nil {
		for _, b := range bindings {
			if b.nativeID == "" {
				continue
			}
			if err := r.rt.RemoveCodeBreakpoint(ctx, b.nativeID); err != nil {
				logging.L().Warn("breakpoints: native unbind failed", zap.Error(err))
			}
		}
	}
	return nil
}

func removeEntry(entries []*entry, target *entry) []*entry {
	out := entries[:0:0]
	for _, e := range entries {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}

// Enable toggles a breakpoint's enabled flag without touching its bindings.
func (r *Registry) Enable(id string, enabled bool) *model.Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return model.NewErrorf(model.ErrBreakpointNotFound, "no breakpoint with id %q", id)
	}
	e.bp.Enabled = enabled
	return nil
}

// SetExceptionBreakpoint registers or replaces an exception breakpoint for
// exceptionType.
func (r *Registry) SetExceptionBreakpoint(exceptionType string, includeSubtypes, firstChance, secondChance bool) *model.ExceptionBreakpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, eb := range r.exceptions {
		if eb.ExceptionType == exceptionType {
			eb.IncludeSubtypes = includeSubtypes
			eb.FirstChance = firstChance
			eb.SecondChance = secondChance
			eb.Enabled = true
			return eb
		}
	}
	eb := &model.ExceptionBreakpoint{
		ID:              uuid.NewString(),
		ExceptionType:   exceptionType,
		IncludeSubtypes: includeSubtypes,
		FirstChance:     firstChance,
		SecondChance:    secondChance,
		Enabled:         true,
	}
	r.exceptions = append(r.exceptions, eb)
	return eb
}
