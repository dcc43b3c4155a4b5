package eventpump

import (
	"context"
	"sync"
	"testing"
	"time"

	"clrdebug/internal/model"
	"clrdebug/internal/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSession struct {
	mu       sync.Mutex
	paused   []model.PauseReason
	disconnected bool
	exitCode int
}

func (r *recordingSession) TransitionPaused(reason model.PauseReason, loc *model.SourceLocation, threadID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = append(r.paused, reason)
}

func (r *recordingSession) TransitionDisconnected(exitCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = true
	r.exitCode = exitCode
}

func (r *recordingSession) snapshot() []model.PauseReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.PauseReason(nil), r.paused...)
}

type scriptedBreakpoints struct {
	mu             sync.Mutex
	loadedModules  []string
	hitShouldPause bool
	exceptionMatch bool
}

func (s *scriptedBreakpoints) OnModuleLoaded(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadedModules = append(s.loadedModules, path)
}
func (s *scriptedBreakpoints) OnModuleUnloaded(path string) {}
func (s *scriptedBreakpoints) EvaluateHit(ctx context.Context, nativeID string, threadID int, loc model.SourceLocation) bool {
	return s.hitShouldPause
}
func (s *scriptedBreakpoints) MatchExceptionBreakpoint(exceptionType string, firstChance bool) bool {
	return s.exceptionMatch
}

type countingController struct {
	mu    sync.Mutex
	count int
}

func (c *countingController) Continue(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return nil
}

func (c *countingController) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func runPumpOn(t *testing.T, events []platform.NativeEvent, bps *scriptedBreakpoints) (*recordingSession, *countingController) {
	t.Helper()
	ch := make(chan platform.NativeEvent, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	ctrl := &countingController{}
	session := &recordingSession{}
	p := New(ctrl, ch, nil, session, bps)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p.Run(ctx)
	return session, ctrl
}

func TestModuleLoadedNotifiesAndAutoContinues(t *testing.T) {
	bps := &scriptedBreakpoints{}
	session, ctrl := runPumpOn(t, []platform.NativeEvent{
		{Category: platform.EventModuleLoaded, ModulePath: "/app/A.dll"},
	}, bps)
	assert.Empty(t, session.snapshot())
	assert.Equal(t, 1, ctrl.calls())
	assert.Equal(t, []string{"/app/A.dll"}, bps.loadedModules)
}

func TestBreakpointHitTrueRemainsPaused(t *testing.T) {
	bps := &scriptedBreakpoints{hitShouldPause: true}
	session, ctrl := runPumpOn(t, []platform.NativeEvent{
		{Category: platform.EventBreakpoint, ThreadID: 1, BreakpointNativeID: "bp-1"},
	}, bps)
	require.Len(t, session.snapshot(), 1)
	assert.Equal(t, model.PauseBreakpoint, session.snapshot()[0])
	assert.Equal(t, 0, ctrl.calls())
}

func TestBreakpointHitFalseAutoContinues(t *testing.T) {
	bps := &scriptedBreakpoints{hitShouldPause: false}
	session, ctrl := runPumpOn(t, []platform.NativeEvent{
		{Category: platform.EventBreakpoint, ThreadID: 1, BreakpointNativeID: "bp-1"},
	}, bps)
	assert.Empty(t, session.snapshot())
	assert.Equal(t, 1, ctrl.calls())
}

func TestExceptionFirstChanceUnmatchedAutoContinues(t *testing.T) {
	bps := &scriptedBreakpoints{exceptionMatch: false}
	session, ctrl := runPumpOn(t, []platform.NativeEvent{
		{Category: platform.EventExceptionFirstChance, ExceptionType: "System.Exception"},
	}, bps)
	assert.Empty(t, session.snapshot())
	assert.Equal(t, 1, ctrl.calls())
}

func TestExceptionFirstChanceMatchedPauses(t *testing.T) {
	bps := &scriptedBreakpoints{exceptionMatch: true}
	session, _ := runPumpOn(t, []platform.NativeEvent{
		{Category: platform.EventExceptionFirstChance, ExceptionType: "System.IO.IOException"},
	}, bps)
	require.Len(t, session.snapshot(), 1)
	assert.Equal(t, model.PauseException, session.snapshot()[0])
}

func TestProcessExitedClearsSessionAndContinues(t *testing.T) {
	bps := &scriptedBreakpoints{}
	session, ctrl := runPumpOn(t, []platform.NativeEvent{
		{Category: platform.EventProcessExited, ExitCode: 0},
	}, bps)
	assert.True(t, session.disconnected)
	assert.Equal(t, 1, ctrl.calls())
}

func TestUnknownCategoryAutoContinues(t *testing.T) {
	bps := &scriptedBreakpoints{}
	session, ctrl := runPumpOn(t, []platform.NativeEvent{
		{Category: platform.EventCategory("SomethingNew")},
	}, bps)
	assert.Empty(t, session.snapshot())
	assert.Equal(t, 1, ctrl.calls())
}
