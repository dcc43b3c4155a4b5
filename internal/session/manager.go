// Package session implements C8: the single-session state machine, its
// attach/launch/detach/terminate/continue/step/pause surface, and the
// SessionSink half of the eventpump contract. A Manager owns the one
// monitor spec §5 describes protecting (state, pause_reason, location,
// active_thread_id, pending_step_mode); lock ordering is session ->
// breakpoints -> symbols, never reversed.
package session

import (
	"context"
	"sync"
	"time"

	"clrdebug/internal/eventpump"
	"clrdebug/internal/launcher"
	"clrdebug/internal/logging"
	"clrdebug/internal/model"
	"clrdebug/internal/platform"
	"clrdebug/internal/symbols"
	"clrdebug/internal/telemetry"

	"go.uber.org/zap"
)

// Manager is the process-wide single-session owner.
type Manager struct {
	mu       sync.Mutex
	session  *model.Session
	rt       platform.Runtime
	resolver *symbols.Resolver
	bps      eventpump.BreakpointSink

	ctrl       platform.NativeController
	pump       *eventpump.Pump
	pumpCancel context.CancelFunc
	proc       *launcher.Process

	notifyCh  chan struct{}
	listeners []chan model.StateChanged
}

// New builds a Manager. bps is the breakpoint registry, wired in as
// eventpump.BreakpointSink so this package never imports internal/breakpoints
// directly.
func New(rt platform.Runtime, resolver *symbols.Resolver, bps eventpump.BreakpointSink) *Manager {
	return &Manager{
		rt:       rt,
		resolver: resolver,
		bps:      bps,
		notifyCh: make(chan struct{}),
	}
}

// Subscribe registers a listener for StateChanged events. The returned
// channel is buffered; the manager never blocks delivering to it (a slow
// or absent reader simply misses events, per spec §4.2's "subscribers may
// not call back into the manager from within a callback" constraint --
// they must not be on the hot path either).
func (m *Manager) Subscribe() <-chan model.StateChanged {
	ch := make(chan model.StateChanged, 32)
	m.mu.Lock()
	m.listeners = append(m.listeners, ch)
	m.mu.Unlock()
	return ch
}

func (m *Manager) publish(ev model.StateChanged) {
	m.mu.Lock()
	listeners := append([]chan model.StateChanged(nil), m.listeners...)
	ch := m.notifyCh
	m.notifyCh = make(chan struct{})
	m.mu.Unlock()
	close(ch)
	for _, l := range listeners {
		select {
		case l <- ev:
		default:
		}
	}
}

// GetState returns a snapshot of the current session, or a synthetic
// Disconnected descriptor when no session exists.
func (m *Manager) GetState() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return &model.Session{State: model.StateDisconnected}
	}
	return m.session.Clone()
}

// Attach attaches to an existing process (§4.1). Fails AlreadyAttached if
// a session already exists.
func (m *Manager) Attach(ctx context.Context, req AttachRequest) (*model.Session, *model.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, translateValidation(err)
	}

	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		return nil, model.NewError(model.ErrAlreadyAttached, "a session is already attached")
	}
	m.mu.Unlock()

	attachCtx, cancel := context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
	defer cancel()

	ctrl, events, err := m.rt.AttachToProcess(attachCtx, req.PID)
	if err != nil {
		return nil, model.Wrap(model.ErrAttachFailed, err, "attach failed")
	}

	sess := &model.Session{
		ProcessID:  req.PID,
		Mode:       model.LaunchModeAttach,
		AttachedAt: time.Now(),
		State:      model.StateRunning,
	}
	m.startSession(sess, ctrl, events, nil)
	telemetry.Get().SessionState.WithLabelValues(string(model.StateRunning)).Set(1)
	return m.GetState(), nil
}

// Launch spawns a new process under a pseudo-terminal and attaches to it
// (§4.1, and the launcher expansion: apex's multiplexer.go idiom).
func (m *Manager) Launch(ctx context.Context, req LaunchRequest) (*model.Session, *model.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, translateValidation(err)
	}

	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		return nil, model.NewError(model.ErrAlreadyAttached, "a session is already attached")
	}
	m.mu.Unlock()

	launchCtx, cancel := context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
	defer cancel()

	proc, err := launcher.Spawn(launchCtx, req.Program, req.Argv, req.Cwd, req.Env, nil)
	if err != nil {
		return nil, model.Wrap(model.ErrLaunchFailed, err, "failed to spawn target process")
	}

	ctrl, events, err := m.rt.AttachToProcess(launchCtx, proc.PID())
	if err != nil {
		_ = proc.Kill()
		return nil, model.Wrap(model.ErrLaunchFailed, err, "failed to attach to launched process")
	}

	sess := &model.Session{
		ProcessID:      proc.PID(),
		ExecutablePath: req.Program,
		Mode:           model.LaunchModeLaunch,
		AttachedAt:     time.Now(),
		State:          model.StateRunning,
		LaunchArgv:     req.Argv,
		LaunchCwd:      req.Cwd,
	}
	if req.StopAtEntry {
		sess.State = model.StatePaused
		reason := model.PauseEntry
		sess.PauseReason = &reason
	}
	m.startSession(sess, ctrl, events, proc)
	telemetry.Get().SessionState.WithLabelValues(string(sess.State)).Set(1)

	go func() {
		code := <-proc.ExitCode()
		m.TransitionDisconnected(code)
	}()

	return m.GetState(), nil
}

// startSession installs sess as the active session and starts its event
// pump. Must be called with no lock held.
func (m *Manager) startSession(sess *model.Session, ctrl platform.NativeController, events <-chan platform.NativeEvent, proc *launcher.Process) {
	pumpCtx, cancel := context.WithCancel(context.Background())
	pump := eventpump.New(ctrl, events, m.resolver, m, m.bps)

	m.mu.Lock()
	m.session = sess
	m.ctrl = ctrl
	m.pump = pump
	m.pumpCancel = cancel
	m.proc = proc
	m.mu.Unlock()

	go pump.Run(pumpCtx)
	m.publish(model.StateChanged{Old: model.StateDisconnected, New: sess.State})
}

// Detach releases the native callback registration without killing the
// target. Idempotent: succeeds with no-op semantics when disconnected.
func (m *Manager) Detach(ctx context.Context) *model.Error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return nil
	}
	rt := m.rt
	m.mu.Unlock()

	if err := rt.Detach(ctx); err != nil {
		logging.L().Warn("session: native detach failed, forcing disconnected", zap.Error(err))
	}
	m.TransitionDisconnected(0)
	return nil
}

// Terminate kills the attached target process. Forced to Disconnected
// regardless of native outcome (logged on failure).
func (m *Manager) Terminate(ctx context.Context) *model.Error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return model.NewError(model.ErrNoSession, "no session attached")
	}
	rt := m.rt
	proc := m.proc
	m.mu.Unlock()

	if err := rt.Terminate(ctx); err != nil {
		logging.L().Warn("session: native terminate failed, forcing disconnected", zap.Error(err))
	}
	if proc != nil {
		_ = proc.Kill()
	}
	m.TransitionDisconnected(0)
	return nil
}

// Continue resumes a paused target.
func (m *Manager) Continue(ctx context.Context) *model.Error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return model.NewError(model.ErrNoSession, "no session attached")
	}
	if m.session.State != model.StatePaused {
		m.mu.Unlock()
		return model.NewError(model.ErrNotPaused, "session is not paused")
	}
	ctrl := m.ctrl
	old := m.session.State
	m.session.State = model.StateRunning
	m.session.PauseReason = nil
	m.session.Location = nil
	m.session.ActiveThreadID = nil
	m.mu.Unlock()

	m.publish(model.StateChanged{Old: old, New: model.StateRunning})
	if err := ctrl.Continue(ctx); err != nil {
		return model.Wrap(model.ErrNotPaused, err, "failed to resume target")
	}
	return nil
}

// Step arms a step of the given mode on the active thread's active frame.
// Fails StepFailed if the active thread has no managed frame.
func (m *Manager) Step(ctx context.Context, mode model.StepMode) *model.Error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return model.NewError(model.ErrNoSession, "no session attached")
	}
	if m.session.State != model.StatePaused {
		m.mu.Unlock()
		return model.NewError(model.ErrNotPaused, "session is not paused")
	}
	if m.session.ActiveThreadID == nil {
		m.mu.Unlock()
		return model.NewError(model.ErrStepFailed, "no active thread")
	}
	threadID := *m.session.ActiveThreadID
	m.mu.Unlock()

	frames, err := m.rt.StackTrace(ctx, threadID, 0, 1)
	if err != nil {
		return model.Wrap(model.ErrStepFailed, err, "failed to read active frame")
	}
	if len(frames) == 0 || !frames[0].IsManaged {
		return model.NewError(model.ErrStepFailed, "active thread has no managed frame")
	}

	if err := m.rt.CreateStep(ctx, threadID, string(mode)); err != nil {
		return model.Wrap(model.ErrStepFailed, err, "failed to arm native step")
	}

	m.mu.Lock()
	modeCopy := mode
	m.session.SetPendingStepMode(&modeCopy)
	old := m.session.State
	m.session.State = model.StateRunning
	m.session.PauseReason = nil
	m.session.Location = nil
	m.session.ActiveThreadID = nil
	m.mu.Unlock()
	m.publish(model.StateChanged{Old: old, New: model.StateRunning})
	return nil
}

// Pause requests the target stop at its next safe point.
func (m *Manager) Pause(ctx context.Context) *model.Error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return model.NewError(model.ErrNoSession, "no session attached")
	}
	if m.session.State != model.StateRunning {
		m.mu.Unlock()
		return model.NewError(model.ErrNotPaused, "session is not running")
	}
	rt := m.rt
	m.mu.Unlock()

	if err := rt.RequestBreak(ctx); err != nil {
		return model.Wrap(model.ErrNotPaused, err, "failed to request break")
	}
	return nil
}

// TransitionPaused mutates session state to Paused and publishes the
// transition. Satisfies eventpump.SessionSink.
func (m *Manager) TransitionPaused(reason model.PauseReason, loc *model.SourceLocation, threadID int) {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return
	}
	old := m.session.State
	m.session.State = model.StatePaused
	reasonCopy := reason
	m.session.PauseReason = &reasonCopy
	m.session.Location = loc
	tid := threadID
	m.session.ActiveThreadID = &tid
	if reason == model.PauseStep {
		m.session.SetPendingStepMode(nil)
	}
	m.mu.Unlock()
	m.publish(model.StateChanged{Old: old, New: model.StatePaused, PauseReason: &reasonCopy, Location: loc, ThreadID: &tid})
	telemetry.Get().PumpEventsTotal.WithLabelValues(string(reason)).Inc()
	telemetry.Get().SessionState.WithLabelValues(string(model.StatePaused)).Set(1)
}

// TransitionDisconnected clears the session and publishes the transition.
// Idempotent: a no-op when already disconnected. Satisfies
// eventpump.SessionSink.
func (m *Manager) TransitionDisconnected(exitCode int) {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return
	}
	old := m.session.State
	cancel := m.pumpCancel
	m.session = nil
	m.ctrl = nil
	m.pump = nil
	m.pumpCancel = nil
	m.proc = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	logging.L().Info("session: disconnected", zap.Int("exit_code", exitCode))
	telemetry.Get().SessionState.Reset()
	m.publish(model.StateChanged{Old: old, New: model.StateDisconnected})
}

// WaitForState blocks until the session reaches target or timeout
// elapses, returning the matching snapshot, or a Timeout error on
// expiry/cancellation.
func (m *Manager) WaitForState(ctx context.Context, target model.SessionState, timeout time.Duration) (*model.Session, *model.Error) {
	deadline := time.Now().Add(timeout)
	for {
		snap := m.GetState()
		if snap.State == target {
			return snap, nil
		}

		m.mu.Lock()
		ch := m.notifyCh
		m.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			telemetry.Get().WaitTimeouts.Inc()
			return nil, model.NewErrorf(model.ErrTimeout, "timed out waiting for state %q", target)
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
			telemetry.Get().WaitTimeouts.Inc()
			return nil, model.NewErrorf(model.ErrTimeout, "timed out waiting for state %q", target)
		case <-ctx.Done():
			timer.Stop()
			return nil, model.Wrap(model.ErrTimeout, ctx.Err(), "wait_for_state cancelled")
		}
	}
}
