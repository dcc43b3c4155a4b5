package inspect

import (
	"context"

	"clrdebug/internal/model"
	"clrdebug/internal/platform"
	"clrdebug/internal/symbols"
)

const maxStackFrames = 1000

// StackTrace enumerates up to maxFrames frames of threadID's call stack
// starting at startFrame, most-recent first (§6.1 `stacktrace`). resolver
// may be nil, the same way eventpump's is optional; frames from modules
// with no loaded symbols keep Location nil.
func StackTrace(ctx context.Context, rt platform.Runtime, resolver *symbols.Resolver, threadID, startFrame, maxFrames int) (*model.StackTraceResult, *model.Error) {
	if startFrame < 0 {
		return nil, model.NewError(model.ErrInvalidParameter, "start_frame must be >= 0")
	}
	if maxFrames < 1 || maxFrames > maxStackFrames {
		return nil, model.NewError(model.ErrInvalidParameter, "max_frames must be in [1,1000]")
	}

	raw, err := rt.StackTrace(ctx, threadID, startFrame, maxFrames+1)
	if err != nil {
		return nil, model.Wrap(model.ErrStackTraceFailed, err, "failed to walk stack")
	}
	if len(raw) == 0 && startFrame == 0 {
		return nil, model.NewError(model.ErrInvalidThread, "thread has no frames or does not exist")
	}

	truncated := false
	if len(raw) > maxFrames {
		raw = raw[:maxFrames]
		truncated = true
	}

	frames := make([]model.StackFrame, len(raw))
	for i, f := range raw {
		sf := model.StackFrame{
			Index:       f.Index,
			ThreadID:    f.ThreadID,
			MethodToken: f.MethodToken,
			ILOffset:    f.ILOffset,
			ModuleName:  f.ModulePath,
			IsManaged:   f.IsManaged,
		}
		if resolver != nil && f.IsManaged {
			if loc, ok, rerr := resolver.ReverseLookup(f.ModulePath, f.MethodToken, f.ILOffset); rerr == nil && ok {
				sf.Location = loc
			}
		}
		frames[i] = sf
	}

	return &model.StackTraceResult{
		ThreadID:  threadID,
		Frames:    frames,
		Truncated: truncated,
	}, nil
}
