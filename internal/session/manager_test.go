package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"clrdebug/internal/model"
	"clrdebug/internal/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBreakpoints struct{}

func (stubBreakpoints) OnModuleLoaded(string)   {}
func (stubBreakpoints) OnModuleUnloaded(string) {}
func (stubBreakpoints) EvaluateHit(ctx context.Context, nativeID string, threadID int, loc model.SourceLocation) bool {
	return true
}
func (stubBreakpoints) MatchExceptionBreakpoint(exceptionType string, firstChance bool) bool {
	return false
}

func newTestManager(rt platform.Runtime) *Manager {
	return New(rt, nil, stubBreakpoints{})
}

func TestAttachTransitionsToRunning(t *testing.T) {
	rt := platform.NewFake()
	m := newTestManager(rt)
	sess, err := m.Attach(context.Background(), AttachRequest{PID: 123, TimeoutMs: 5000})
	require.Nil(t, err)
	assert.Equal(t, model.StateRunning, sess.State)
	assert.Equal(t, 123, sess.ProcessID)
}

func TestAttachFailsWhenAlreadyAttached(t *testing.T) {
	rt := platform.NewFake()
	m := newTestManager(rt)
	_, err := m.Attach(context.Background(), AttachRequest{PID: 123, TimeoutMs: 5000})
	require.Nil(t, err)

	_, err = m.Attach(context.Background(), AttachRequest{PID: 456, TimeoutMs: 5000})
	require.NotNil(t, err)
	assert.Equal(t, model.ErrAlreadyAttached, err.Code)
}

func TestAttachRejectsTimeoutOutOfBounds(t *testing.T) {
	rt := platform.NewFake()
	m := newTestManager(rt)
	_, err := m.Attach(context.Background(), AttachRequest{PID: 123, TimeoutMs: 10})
	require.NotNil(t, err)
	assert.Equal(t, model.ErrInvalidParameter, err.Code)
}

func TestContinueRequiresPaused(t *testing.T) {
	rt := platform.NewFake()
	m := newTestManager(rt)
	_, err := m.Attach(context.Background(), AttachRequest{PID: 123, TimeoutMs: 5000})
	require.Nil(t, err)

	cerr := m.Continue(context.Background())
	require.NotNil(t, cerr)
	assert.Equal(t, model.ErrNotPaused, cerr.Code)
}

func TestContinueRequiresSession(t *testing.T) {
	rt := platform.NewFake()
	m := newTestManager(rt)
	err := m.Continue(context.Background())
	require.NotNil(t, err)
	assert.Equal(t, model.ErrNoSession, err.Code)
}

func TestPauseThenBreakEventTransitionsToPaused(t *testing.T) {
	rt := platform.NewFake()
	m := newTestManager(rt)
	_, err := m.Attach(context.Background(), AttachRequest{PID: 123, TimeoutMs: 5000})
	require.Nil(t, err)

	require.Nil(t, m.Pause(context.Background()))
	rt.Emit(platform.NativeEvent{Category: platform.EventBreak, ThreadID: 1})

	sess, werr := m.WaitForState(context.Background(), model.StatePaused, time.Second)
	require.Nil(t, werr)
	assert.Equal(t, model.StatePaused, sess.State)
	require.NotNil(t, sess.PauseReason)
	assert.Equal(t, model.PausePause, *sess.PauseReason)
}

func TestPauseRequiresSession(t *testing.T) {
	rt := platform.NewFake()
	m := newTestManager(rt)
	err := m.Pause(context.Background())
	require.NotNil(t, err)
	assert.Equal(t, model.ErrNoSession, err.Code)
}

func TestStepFailsWithoutManagedFrame(t *testing.T) {
	rt := platform.NewFake()
	m := newTestManager(rt)
	_, err := m.Attach(context.Background(), AttachRequest{PID: 123, TimeoutMs: 5000})
	require.Nil(t, err)
	require.Nil(t, m.Pause(context.Background()))
	rt.Emit(platform.NativeEvent{Category: platform.EventBreak, ThreadID: 1})
	_, werr := m.WaitForState(context.Background(), model.StatePaused, time.Second)
	require.Nil(t, werr)

	serr := m.Step(context.Background(), model.StepIn)
	require.NotNil(t, serr)
	assert.Equal(t, model.ErrStepFailed, serr.Code)
}

func TestStepSucceedsAndStepCompleteRepauses(t *testing.T) {
	rt := platform.NewFake()
	rt.SetFrames(1, []platform.FrameInfo{{ThreadID: 1, IsManaged: true, MethodToken: 6}})
	m := newTestManager(rt)
	_, err := m.Attach(context.Background(), AttachRequest{PID: 123, TimeoutMs: 5000})
	require.Nil(t, err)
	require.Nil(t, m.Pause(context.Background()))
	rt.Emit(platform.NativeEvent{Category: platform.EventBreak, ThreadID: 1})
	_, werr := m.WaitForState(context.Background(), model.StatePaused, time.Second)
	require.Nil(t, werr)

	require.Nil(t, m.Step(context.Background(), model.StepOver))
	running, werr2 := m.WaitForState(context.Background(), model.StateRunning, time.Second)
	require.Nil(t, werr2)
	assert.Equal(t, model.StateRunning, running.State)

	rt.Emit(platform.NativeEvent{Category: platform.EventStepComplete, ThreadID: 1})
	paused, werr3 := m.WaitForState(context.Background(), model.StatePaused, time.Second)
	require.Nil(t, werr3)
	require.NotNil(t, paused.PauseReason)
	assert.Equal(t, model.PauseStep, *paused.PauseReason)
}

func TestDetachIsIdempotent(t *testing.T) {
	rt := platform.NewFake()
	m := newTestManager(rt)
	require.Nil(t, m.Detach(context.Background()))

	_, err := m.Attach(context.Background(), AttachRequest{PID: 123, TimeoutMs: 5000})
	require.Nil(t, err)
	require.Nil(t, m.Detach(context.Background()))
	assert.Equal(t, model.StateDisconnected, m.GetState().State)
	require.Nil(t, m.Detach(context.Background()))
}

type failingTerminateRuntime struct {
	*platform.Fake
}

func (f *failingTerminateRuntime) Terminate(ctx context.Context) error {
	return errors.New("native terminate refused")
}

func TestTerminateForcesDisconnectedOnNativeFailure(t *testing.T) {
	rt := &failingTerminateRuntime{Fake: platform.NewFake()}
	m := newTestManager(rt)
	_, err := m.Attach(context.Background(), AttachRequest{PID: 123, TimeoutMs: 5000})
	require.Nil(t, err)

	terr := m.Terminate(context.Background())
	require.Nil(t, terr)
	assert.Equal(t, model.StateDisconnected, m.GetState().State)
}

func TestProcessExitedTransitionsDisconnected(t *testing.T) {
	rt := platform.NewFake()
	m := newTestManager(rt)
	_, err := m.Attach(context.Background(), AttachRequest{PID: 123, TimeoutMs: 5000})
	require.Nil(t, err)

	rt.Emit(platform.NativeEvent{Category: platform.EventProcessExited, ExitCode: 0})
	sess, werr := m.WaitForState(context.Background(), model.StateDisconnected, time.Second)
	require.Nil(t, werr)
	assert.Equal(t, model.StateDisconnected, sess.State)
}

func TestWaitForStateTimesOut(t *testing.T) {
	rt := platform.NewFake()
	m := newTestManager(rt)
	_, err := m.Attach(context.Background(), AttachRequest{PID: 123, TimeoutMs: 5000})
	require.Nil(t, err)

	_, werr := m.WaitForState(context.Background(), model.StatePaused, 30*time.Millisecond)
	require.NotNil(t, werr)
	assert.Equal(t, model.ErrTimeout, werr.Code)
}
