package breakpoints

import (
	"context"
	"testing"
	"time"

	"clrdebug/internal/model"
	"clrdebug/internal/platform"
	"clrdebug/internal/symbols"
	"clrdebug/internal/valuegraph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver implements symbolResolver directly, without going through
// *symbols.Resolver's mtime-keyed cache (breakpoints tests don't have a
// real file on disk to stat).
type fakeResolver struct {
	bindings map[string]*symbols.Binding // keyed by modulePath+"|"+sourceFile
}

func newFakeResolver() *fakeResolver { return &fakeResolver{bindings: map[string]*symbols.Binding{}} }

func (f *fakeResolver) set(modulePath, sourceFile string, line int, b *symbols.Binding) {
	f.bindings[modulePath+"|"+sourceFile] = b
}

func (f *fakeResolver) FindILOffset(assemblyPath, sourceFile string, line int, column *int) (*symbols.Binding, bool, error) {
	b, ok := f.bindings[assemblyPath+"|"+sourceFile]
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

type fakeFrames struct {
	frame valuegraph.Frame
	store valuegraph.Store
}

func (f *fakeFrames) CurrentFrame(ctx context.Context, threadID int) (valuegraph.Frame, valuegraph.Store, error) {
	return f.frame, f.store, nil
}

func TestSetBindsAgainstLoadedModule(t *testing.T) {
	rt := platform.NewFake()
	resolver := newFakeResolver()
	resolver.set("/app/A.dll", "Program.cs", 10, &symbols.Binding{MethodToken: 6, ILOffset: 3, StartLine: 10, EndLine: 10})
	reg := New(rt, resolver, nil)
	reg.OnModuleLoaded("/app/A.dll")

	bp, dup, err := reg.Set(context.Background(), "Program.cs", 10, nil, "")
	require.Nil(t, err)
	assert.False(t, dup)
	assert.Equal(t, model.BreakpointBound, bp.State)
	assert.True(t, bp.Verified)
	require.Len(t, bp.Bindings, 1)
	assert.Equal(t, "/app/A.dll", bp.Bindings[0].ModulePath)
}

func TestSetStaysPendingWithNoLoadedModules(t *testing.T) {
	rt := platform.NewFake()
	reg := New(rt, newFakeResolver(), nil)
	bp, _, err := reg.Set(context.Background(), "Program.cs", 10, nil, "")
	require.Nil(t, err)
	assert.Equal(t, model.BreakpointPending, bp.State)
	assert.False(t, bp.Verified)
}

func TestModuleLoadRebindsPendingBreakpoint(t *testing.T) {
	rt := platform.NewFake()
	resolver := newFakeResolver()
	reg := New(rt, resolver, nil)

	bp, _, err := reg.Set(context.Background(), "Program.cs", 10, nil, "")
	require.Nil(t, err)
	assert.Equal(t, model.BreakpointPending, bp.State)

	resolver.set("/app/A.dll", "Program.cs", 10, &symbols.Binding{MethodToken: 6, ILOffset: 3, StartLine: 10, EndLine: 10})
	reg.OnModuleLoaded("/app/A.dll")

	list := reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, model.BreakpointBound, list[0].State)
}

func TestModuleUnloadRevertsToPendingWhenLastBindingDrops(t *testing.T) {
	rt := platform.NewFake()
	resolver := newFakeResolver()
	resolver.set("/app/A.dll", "Program.cs", 10, &symbols.Binding{MethodToken: 6, ILOffset: 3, StartLine: 10, EndLine: 10})
	reg := New(rt, resolver, nil)
	reg.OnModuleLoaded("/app/A.dll")

	bp, _, err := reg.Set(context.Background(), "Program.cs", 10, nil, "")
	require.Nil(t, err)
	require.Equal(t, model.BreakpointBound, bp.State)

	reg.OnModuleUnloaded("/app/A.dll")
	list := reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, model.BreakpointPending, list[0].State)
	assert.Empty(t, list[0].Bindings)
}

func TestSetAtSameLocationReturnsDuplicateAndSupersedesCondition(t *testing.T) {
	rt := platform.NewFake()
	reg := New(rt, newFakeResolver(), nil)
	first, dup, err := reg.Set(context.Background(), "Program.cs", 10, nil, "")
	require.Nil(t, err)
	assert.False(t, dup)

	second, dup, err := reg.Set(context.Background(), "Program.cs", 10, nil, "hit_count > 1")
	require.Nil(t, err)
	assert.True(t, dup)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "hit_count > 1", second.Condition)
}

func TestSetRejectsInvalidLine(t *testing.T) {
	rt := platform.NewFake()
	reg := New(rt, newFakeResolver(), nil)
	_, _, err := reg.Set(context.Background(), "Program.cs", 0, nil, "")
	require.NotNil(t, err)
	assert.Equal(t, model.ErrInvalidLine, err.Code)
}

func TestSetRejectsMalformedCondition(t *testing.T) {
	rt := platform.NewFake()
	reg := New(rt, newFakeResolver(), nil)
	_, _, err := reg.Set(context.Background(), "Program.cs", 10, nil, "hit_count >")
	require.NotNil(t, err)
	assert.Equal(t, model.ErrInvalidCondition, err.Code)
}

func TestEvaluateHitUnconditionalPauses(t *testing.T) {
	rt := platform.NewFake()
	resolver := newFakeResolver()
	resolver.set("/app/A.dll", "Program.cs", 10, &symbols.Binding{MethodToken: 6, ILOffset: 3, StartLine: 10, EndLine: 10})
	reg := New(rt, resolver, nil)
	reg.OnModuleLoaded("/app/A.dll")
	bp, _, err := reg.Set(context.Background(), "Program.cs", 10, nil, "")
	require.Nil(t, err)
	require.Len(t, bp.Bindings, 1)

	reg.mu.Lock()
	var nid string
	for id, bpID := range reg.nativeToID {
		if bpID == bp.ID {
			nid = id
		}
	}
	reg.mu.Unlock()
	require.NotEmpty(t, nid)

	pause := reg.EvaluateHit(context.Background(), nid, 1, model.SourceLocation{File: "Program.cs", Line: 10})
	assert.True(t, pause)
	updated := reg.List()[0]
	assert.Equal(t, uint64(1), updated.HitCount)
}

func TestEvaluateHitDisabledAutoContinues(t *testing.T) {
	rt := platform.NewFake()
	resolver := newFakeResolver()
	resolver.set("/app/A.dll", "Program.cs", 10, &symbols.Binding{MethodToken: 6, ILOffset: 3, StartLine: 10, EndLine: 10})
	reg := New(rt, resolver, nil)
	reg.OnModuleLoaded("/app/A.dll")
	bp, _, err := reg.Set(context.Background(), "Program.cs", 10, nil, "")
	require.Nil(t, err)
	require.Nil(t, reg.Enable(bp.ID, false))

	reg.mu.Lock()
	var nid string
	for id, bpID := range reg.nativeToID {
		if bpID == bp.ID {
			nid = id
		}
	}
	reg.mu.Unlock()

	pause := reg.EvaluateHit(context.Background(), nid, 1, model.SourceLocation{})
	assert.False(t, pause)
	assert.Equal(t, uint64(0), reg.List()[0].HitCount)
}

func TestEvaluateHitAnonymousBreakpointStillPauses(t *testing.T) {
	rt := platform.NewFake()
	reg := New(rt, newFakeResolver(), nil)
	pause := reg.EvaluateHit(context.Background(), "unregistered-native-id", 1, model.SourceLocation{})
	assert.True(t, pause)
}

func TestEvaluateHitConditionFalseAutoContinues(t *testing.T) {
	rt := platform.NewFake()
	resolver := newFakeResolver()
	resolver.set("/app/A.dll", "Program.cs", 10, &symbols.Binding{MethodToken: 6, ILOffset: 3, StartLine: 10, EndLine: 10})
	frames := &fakeFrames{frame: valuegraph.Frame{Locals: map[string]valuegraph.Value{
		"count": {Kind: valuegraph.KindPrimitive, TypeName: "Int32", Primitive: "1"},
	}}}
	reg := New(rt, resolver, frames)
	reg.OnModuleLoaded("/app/A.dll")
	bp, _, err := reg.Set(context.Background(), "Program.cs", 10, nil, "count == 5")
	require.Nil(t, err)

	reg.mu.Lock()
	var nid string
	for id, bpID := range reg.nativeToID {
		if bpID == bp.ID {
			nid = id
		}
	}
	reg.mu.Unlock()

	pause := reg.EvaluateHit(context.Background(), nid, 1, model.SourceLocation{})
	assert.False(t, pause)
}

func TestEvaluateHitConditionErrorPausesWithMessage(t *testing.T) {
	rt := platform.NewFake()
	resolver := newFakeResolver()
	resolver.set("/app/A.dll", "Program.cs", 10, &symbols.Binding{MethodToken: 6, ILOffset: 3, StartLine: 10, EndLine: 10})
	frames := &fakeFrames{frame: valuegraph.Frame{}} // no "count" local: path fails
	reg := New(rt, resolver, frames)
	reg.OnModuleLoaded("/app/A.dll")
	bp, _, err := reg.Set(context.Background(), "Program.cs", 10, nil, "count == 5")
	require.Nil(t, err)

	reg.mu.Lock()
	var nid string
	for id, bpID := range reg.nativeToID {
		if bpID == bp.ID {
			nid = id
		}
	}
	reg.mu.Unlock()

	pause := reg.EvaluateHit(context.Background(), nid, 1, model.SourceLocation{})
	assert.True(t, pause)

	hit, herr := reg.WaitForBreakpoint(context.Background(), 10*time.Millisecond, nil)
	require.Nil(t, herr)
	require.NotNil(t, hit)
	assert.NotEmpty(t, hit.Message)
}

func TestMatchExceptionBreakpointDirectTypeMatch(t *testing.T) {
	rt := platform.NewFake()
	reg := New(rt, newFakeResolver(), nil)
	reg.SetExceptionBreakpoint("System.IO.IOException", false, true, false)
	assert.True(t, reg.MatchExceptionBreakpoint("System.IO.IOException", true))
	assert.False(t, reg.MatchExceptionBreakpoint("System.Exception", true))
}

func TestMatchExceptionBreakpointSubtypeWalk(t *testing.T) {
	rt := platform.NewFake()
	rt.SetModules([]platform.ModuleMetadata{{Name: "mscorlib", Path: "/runtime/mscorlib.dll"}})
	rt.SetTypes("/runtime/mscorlib.dll", []platform.TypeMetadata{
		{FullName: "System.IO.FileNotFoundException", BaseType: "System.IO.IOException"},
		{FullName: "System.IO.IOException", BaseType: "System.Exception"},
		{FullName: "System.Exception", BaseType: ""},
	})
	reg := New(rt, newFakeResolver(), nil)
	reg.SetExceptionBreakpoint("System.Exception", true, true, false)
	assert.True(t, reg.MatchExceptionBreakpoint("System.IO.FileNotFoundException", true))
}

func TestMatchExceptionBreakpointGatesOnChance(t *testing.T) {
	rt := platform.NewFake()
	reg := New(rt, newFakeResolver(), nil)
	reg.SetExceptionBreakpoint("System.Exception", false, false, true)
	assert.False(t, reg.MatchExceptionBreakpoint("System.Exception", true))
	assert.True(t, reg.MatchExceptionBreakpoint("System.Exception", false))
}

func TestWaitForBreakpointFiltersByID(t *testing.T) {
	rt := platform.NewFake()
	reg := New(rt, newFakeResolver(), nil)
	reg.mu.Lock()
	reg.enqueueLocked(model.Hit{BreakpointID: "bp-a", HitCount: 1})
	reg.enqueueLocked(model.Hit{BreakpointID: "bp-b", HitCount: 1})
	reg.mu.Unlock()

	filter := "bp-b"
	hit, err := reg.WaitForBreakpoint(context.Background(), 50*time.Millisecond, &filter)
	require.Nil(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "bp-b", hit.BreakpointID)

	// bp-a is still queued, left behind by the filtered waiter.
	hit2, err := reg.WaitForBreakpoint(context.Background(), 50*time.Millisecond, nil)
	require.Nil(t, err)
	require.NotNil(t, hit2)
	assert.Equal(t, "bp-a", hit2.BreakpointID)
}

func TestWaitForBreakpointTimesOut(t *testing.T) {
	rt := platform.NewFake()
	reg := New(rt, newFakeResolver(), nil)
	hit, err := reg.WaitForBreakpoint(context.Background(), 10*time.Millisecond, nil)
	require.Nil(t, err)
	assert.Nil(t, hit)
}

func TestRemoveReleasesNativeBinding(t *testing.T) {
	rt := platform.NewFake()
	resolver := newFakeResolver()
	resolver.set("/app/A.dll", "Program.cs", 10, &symbols.Binding{MethodToken: 6, ILOffset: 3, StartLine: 10, EndLine: 10})
	reg := New(rt, resolver, nil)
	reg.OnModuleLoaded("/app/A.dll")
	bp, _, err := reg.Set(context.Background(), "Program.cs", 10, nil, "")
	require.Nil(t, err)

	require.Nil(t, reg.Remove(context.Background(), bp.ID))
	assert.Empty(t, reg.List())

	rerr := reg.Remove(context.Background(), bp.ID)
	require.NotNil(t, rerr)
	assert.Equal(t, model.ErrBreakpointNotFound, rerr.Code)
}
