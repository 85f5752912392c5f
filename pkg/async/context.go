package async

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/rideplanner/pkg/logger"
)

// TaskContext holds context values that should be propagated to async tasks
type TaskContext struct {
	CorrelationID string
	StartTime     time.Time
	TaskName      string
}

// CaptureContext captures the current context values for async propagation
func CaptureContext(ctx context.Context, taskName string) TaskContext {
	return TaskContext{
		CorrelationID: logger.CorrelationIDFromContext(ctx),
		StartTime:     time.Now(),
		TaskName:      taskName,
	}
}

// NewContext creates a detached context carrying the captured values.
// It is not cancelled when the originating request finishes.
func (tc TaskContext) NewContext() context.Context {
	ctx := context.Background()
	if tc.CorrelationID != "" {
		ctx = logger.ContextWithCorrelationID(ctx, tc.CorrelationID)
	}
	return ctx
}

// NewContextWithTimeout creates a detached context with timeout and captured values
func (tc TaskContext) NewContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(tc.NewContext(), timeout)
}

// Go runs fn in a goroutine that outlives the request, with correlation ID
// propagation and panic recovery.
//
// Usage:
//
//	async.Go(ctx, "publish-ride-event", func(ctx context.Context) {
//	    bus.Publish(ctx, subject, event)
//	})
func Go(ctx context.Context, taskName string, fn func(ctx context.Context)) {
	tc := CaptureContext(ctx, taskName)

	go func() {
		defer recoverWithLogging(tc)

		newCtx := tc.NewContext()
		fn(newCtx)

		logger.DebugContext(newCtx, "async task completed",
			zap.String("task", tc.TaskName),
			zap.Duration("duration", time.Since(tc.StartTime)),
		)
	}()
}

// recoverWithLogging recovers from panics and logs them with context
func recoverWithLogging(tc TaskContext) {
	if r := recover(); r != nil {
		logger.ErrorContext(tc.NewContext(), "async task panicked",
			zap.String("task", tc.TaskName),
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())),
		)
	}
}

// RunAll runs fns concurrently with the caller's context and waits for all of them.
// Unlike Go, the functions share ctx so they stop when the caller is cancelled.
// A panicking function is logged and does not affect the others.
//
// Usage:
//
//	async.RunAll(ctx, "fetch-route-candidates",
//	    func(ctx context.Context) { toll = fetch(ctx, false) },
//	    func(ctx context.Context) { free = fetch(ctx, true) },
//	)
func RunAll(ctx context.Context, taskName string, fns ...func(ctx context.Context)) {
	tc := CaptureContext(ctx, taskName)

	var wg sync.WaitGroup
	wg.Add(len(fns))
	for i, fn := range fns {
		go func(idx int, f func(ctx context.Context)) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "async task panicked",
						zap.String("task", tc.TaskName),
						zap.Int("index", idx),
						zap.Any("panic", r),
					)
				}
			}()
			f(ctx)
		}(i, fn)
	}
	wg.Wait()

	logger.DebugContext(ctx, "all async tasks completed",
		zap.String("task", tc.TaskName),
		zap.Int("count", len(fns)),
		zap.Duration("duration", time.Since(tc.StartTime)),
	)
}
