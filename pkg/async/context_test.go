package async_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/richxcame/rideplanner/pkg/async"
	"github.com/richxcame/rideplanner/pkg/logger"
)

func TestCaptureContext(t *testing.T) {
	correlationID := "test-correlation-123"
	ctx := logger.ContextWithCorrelationID(context.Background(), correlationID)

	tc := async.CaptureContext(ctx, "test-task")

	assert.Equal(t, correlationID, tc.CorrelationID)
	assert.Equal(t, "test-task", tc.TaskName)
	assert.False(t, tc.StartTime.IsZero())
}

func TestTaskContext_NewContextIsDetached(t *testing.T) {
	ctx, cancel := context.WithCancel(logger.ContextWithCorrelationID(context.Background(), "detached"))
	tc := async.CaptureContext(ctx, "test-task")
	cancel()

	newCtx := tc.NewContext()

	assert.Equal(t, "detached", logger.CorrelationIDFromContext(newCtx))
	assert.NoError(t, newCtx.Err())
}

func TestTaskContext_NewContextWithTimeout(t *testing.T) {
	tc := async.CaptureContext(context.Background(), "test-task")
	newCtx, cancel := tc.NewContextWithTimeout(50 * time.Millisecond)
	defer cancel()

	select {
	case <-newCtx.Done():
	case <-time.After(time.Second):
		t.Error("Context should have timed out")
	}
}

func TestGo_PropagatesContext(t *testing.T) {
	ctx := logger.ContextWithCorrelationID(context.Background(), "test-go-correlation")

	var capturedID string
	var wg sync.WaitGroup
	wg.Add(1)

	async.Go(ctx, "test-task", func(ctx context.Context) {
		defer wg.Done()
		capturedID = logger.CorrelationIDFromContext(ctx)
	})

	wg.Wait()
	assert.Equal(t, "test-go-correlation", capturedID)
}

func TestGo_RecoversPanic(t *testing.T) {
	done := make(chan struct{})

	async.Go(context.Background(), "panic-task", func(ctx context.Context) {
		defer close(done)
		panic("test panic")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
}

func TestRunAll_AllComplete(t *testing.T) {
	var results []int
	var mu sync.Mutex

	add := func(n int) func(ctx context.Context) {
		return func(ctx context.Context) {
			mu.Lock()
			results = append(results, n)
			mu.Unlock()
		}
	}

	async.RunAll(context.Background(), "batch-task", add(1), add(2), add(3))

	assert.ElementsMatch(t, []int{1, 2, 3}, results)
}

func TestRunAll_SharesCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(logger.ContextWithCorrelationID(context.Background(), "batch"))
	cancel()

	var errs []error
	var ids []string
	var mu sync.Mutex
	capture := func(ctx context.Context) {
		mu.Lock()
		errs = append(errs, ctx.Err())
		ids = append(ids, logger.CorrelationIDFromContext(ctx))
		mu.Unlock()
	}

	async.RunAll(ctx, "batch-task", capture, capture)

	assert.Len(t, errs, 2)
	for i := range errs {
		assert.ErrorIs(t, errs[i], context.Canceled)
		assert.Equal(t, "batch", ids[i])
	}
}

func TestRunAll_SurvivesPanic(t *testing.T) {
	ran := false
	async.RunAll(context.Background(), "batch-task",
		func(ctx context.Context) { panic("boom") },
		func(ctx context.Context) { ran = true },
	)
	assert.True(t, ran)
}
