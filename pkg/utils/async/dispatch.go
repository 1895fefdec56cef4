package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/utils/apperr"
)

// Dispatch runs a named task in the background. The task gets a context that
// keeps the caller's logger but not its cancellation, so it can finish after
// the caller returns. The returned channel is closed when the task ends.
func Dispatch(ctx context.Context, task string, handler func(ctx context.Context) error) <-chan struct{} {
	bgCtx := detach(ctx, task)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				ctxlog.From(bgCtx).Error("panic in background task",
					"recover", r,
					"stack", string(debug.Stack()),
				)
			}
		}()

		start := time.Now()
		if err := handler(bgCtx); err != nil {
			apperr.Handle(bgCtx, goerr.Wrap(err, "background task failed", goerr.V("task", task)))
			return
		}
		ctxlog.From(bgCtx).Debug("background task done", "elapsed", time.Since(start))
	}()

	return done
}

func detach(ctx context.Context, task string) context.Context {
	logger := ctxlog.From(ctx).With("task", task)
	return ctxlog.With(context.Background(), logger)
}
