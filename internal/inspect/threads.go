package inspect

import (
	"context"

	"clrdebug/internal/model"
	"clrdebug/internal/platform"
)

// Threads enumerates the attached target's managed threads (§6.1 `threads`).
func Threads(ctx context.Context, rt platform.Runtime) ([]model.ThreadInfo, *model.Error) {
	ids, err := rt.Threads(ctx)
	if err != nil {
		return nil, model.Wrap(model.ErrStackTraceFailed, err, "failed to enumerate threads")
	}
	out := make([]model.ThreadInfo, len(ids))
	for i, id := range ids {
		out[i] = model.ThreadInfo{ThreadID: id}
	}
	return out, nil
}
