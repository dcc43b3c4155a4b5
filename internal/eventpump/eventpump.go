// Package eventpump implements C6: the single consumer of a session's
// native callback stream. It decides, per event category, whether the
// target auto-continues or remains paused (spec §4.2's continuation
// table), and it is the one place that derives a partial SourceLocation
// from a platform.RawLocation before handing it to the session monitor.
package eventpump

import (
	"context"

	"golang.org/x/time/rate"

	"clrdebug/internal/logging"
	"clrdebug/internal/model"
	"clrdebug/internal/platform"
	"clrdebug/internal/symbols"

	"go.uber.org/zap"
)

// SessionSink receives the state-mutating side effects of a native event.
// Implemented by internal/session.Manager; kept as an interface here so
// this package never imports session (session imports this one, to start
// the pump on attach/launch).
type SessionSink interface {
	TransitionPaused(reason model.PauseReason, loc *model.SourceLocation, threadID int)
	TransitionDisconnected(exitCode int)
}

// BreakpointSink receives the breakpoint-relevant native events.
// Implemented by internal/breakpoints.Registry.
type BreakpointSink interface {
	OnModuleLoaded(modulePath string)
	OnModuleUnloaded(modulePath string)
	// EvaluateHit runs condition evaluation for the breakpoint matching
	// nativeID and reports whether the target should remain paused.
	EvaluateHit(ctx context.Context, nativeID string, threadID int, loc model.SourceLocation) bool
	// MatchExceptionBreakpoint reports whether a registered exception
	// breakpoint matches exceptionType at the given chance.
	MatchExceptionBreakpoint(exceptionType string, firstChance bool) bool
}

// Pump owns one session's native callback consumption loop.
type Pump struct {
	ctrl     platform.NativeController
	events   <-chan platform.NativeEvent
	resolver *symbols.Resolver // nil is valid: resolution simply always misses
	session  SessionSink
	bps      BreakpointSink
	limiter  *rate.Limiter
}

// New builds a Pump. resolver may be nil if no symbol resolver is wired
// (source locations then stay at module/method/offset granularity).
func New(ctrl platform.NativeController, events <-chan platform.NativeEvent, resolver *symbols.Resolver, session SessionSink, bps BreakpointSink) *Pump {
	return &Pump{
		ctrl:     ctrl,
		events:   events,
		resolver: resolver,
		session:  session,
		bps:      bps,
		// Informational categories (module/thread/appdomain churn, log
		// messages) can be extremely chatty on a busy target; throttle how
		// much of it we log without affecting continuation decisions.
		limiter: rate.NewLimiter(rate.Limit(20), 40),
	}
}

// Run consumes events until the channel closes (ProcessExited always
// precedes channel close in a well-behaved platform implementation, but
// Run tolerates a bare close too) or ctx is cancelled. It must run on its
// own goroutine — exactly one native callback is in flight at a time, and
// Run blocks for the duration of each one.
func (p *Pump) Run(ctx context.Context) {
	for {
		select {
		case ev, ok := <-p.events:
			if !ok {
				return
			}
			p.handle(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pump) handle(ctx context.Context, ev platform.NativeEvent) {
	loc := p.resolveLocation(ev)

	switch ev.Category {
	case platform.EventModuleLoaded:
		p.bps.OnModuleLoaded(ev.ModulePath)
		p.logInformational(ev)
		p.cont(ctx)

	case platform.EventModuleUnloaded:
		p.bps.OnModuleUnloaded(ev.ModulePath)
		p.logInformational(ev)
		p.cont(ctx)

	case platform.EventBreakpoint:
		remainPaused := p.bps.EvaluateHit(ctx, ev.BreakpointNativeID, ev.ThreadID, loc)
		if remainPaused {
			p.session.TransitionPaused(model.PauseBreakpoint, &loc, ev.ThreadID)
			return
		}
		p.cont(ctx)

	case platform.EventStepComplete:
		p.session.TransitionPaused(model.PauseStep, &loc, ev.ThreadID)

	case platform.EventBreak:
		p.session.TransitionPaused(model.PausePause, &loc, ev.ThreadID)

	case platform.EventExceptionFirstChance:
		if p.bps.MatchExceptionBreakpoint(ev.ExceptionType, true) {
			p.session.TransitionPaused(model.PauseException, &loc, ev.ThreadID)
			return
		}
		p.cont(ctx)

	case platform.EventExceptionUnhandled:
		p.session.TransitionPaused(model.PauseException, &loc, ev.ThreadID)

	case platform.EventProcessExited:
		p.session.TransitionDisconnected(ev.ExitCode)
		p.cont(ctx)

	default:
		// Informational categories (ProcessCreated, AppDomain*, Assembly*,
		// Thread*, NameChange, LogMessage, LogSwitch, SymbolUpdate,
		// EvalComplete/Exception, BreakpointSetError, DebuggerError,
		// EditAndContinueRemap) and anything unrecognised: auto-continue.
		p.logInformational(ev)
		p.cont(ctx)
	}
}

func (p *Pump) cont(ctx context.Context) {
	if err := p.ctrl.Continue(ctx); err != nil {
		logging.L().Warn("eventpump: native continue failed", zap.Error(err))
	}
}

func (p *Pump) logInformational(ev platform.NativeEvent) {
	if !p.limiter.Allow() {
		return
	}
	logging.L().Debug("eventpump: informational native event",
		zap.String("category", string(ev.Category)),
		zap.Int("thread_id", ev.ThreadID),
		zap.String("module_path", ev.ModulePath))
}

// resolveLocation derives the partial SourceLocation spec §4.2 step 1
// describes: function name and module path always present, file/line filled
// in by C1 when a resolver is wired and the lookup succeeds ("Unknown"/0
// otherwise). The method token and IL offset are used for that lookup but
// are not carried in the returned SourceLocation.
func (p *Pump) resolveLocation(ev platform.NativeEvent) model.SourceLocation {
	loc := model.SourceLocation{
		File:         "Unknown",
		Line:         0,
		FunctionName: ev.Location.FunctionName,
		ModuleName:   ev.Location.ModulePath,
	}
	if p.resolver == nil {
		return loc
	}
	resolved, ok, err := p.resolver.ReverseLookup(ev.Location.ModulePath, ev.Location.MethodToken, ev.Location.ILOffset)
	if err != nil || !ok {
		return loc
	}
	resolved.FunctionName = ev.Location.FunctionName
	resolved.ModuleName = ev.Location.ModulePath
	return *resolved
}
