package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerTripsAndReturnsOpenError(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "test-breaker",
		Timeout:          50 * time.Millisecond,
		Interval:         50 * time.Millisecond,
		FailureThreshold: 2,
		SuccessThreshold: 1,
	}, nil)

	ctx := context.Background()
	failingOp := func(context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	}

	for i := 0; i < 2; i++ {
		_, err := breaker.Execute(ctx, failingOp)
		require.Error(t, err, "iteration %d", i)
	}

	assert.False(t, breaker.Allow(), "breaker should be open after consecutive failures")
	assert.Equal(t, "open", breaker.State())

	_, err := breaker.Execute(ctx, func(context.Context) (interface{}, error) {
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerPassesThroughOnSuccess(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "success-breaker",
		Timeout:          time.Second,
		Interval:         time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 1,
	}, nil)

	result, err := breaker.Execute(context.Background(), func(context.Context) (interface{}, error) {
		return "response", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "response", result)
	assert.Equal(t, "closed", breaker.State())
}

func TestCircuitBreakerUsesFallbackWhenOpen(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "fallback-breaker",
		Timeout:          time.Minute,
		FailureThreshold: 1,
	}, func(ctx context.Context, err error) (interface{}, error) {
		return "cached", nil
	})

	ctx := context.Background()
	_, err := breaker.Execute(ctx, func(context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	result, err := breaker.Execute(ctx, func(context.Context) (interface{}, error) {
		t.Fatal("operation must not run while the breaker is open")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached", result)
}

func TestGracefulDegradationReturnsOpenError(t *testing.T) {
	_, err := GracefulDegradation("maps")(context.Background(), errors.New("open"))
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestNilBreakerRunsOperation(t *testing.T) {
	var breaker *CircuitBreaker
	result, err := breaker.Execute(context.Background(), func(context.Context) (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.True(t, breaker.Allow())
}

func TestBuildSettings(t *testing.T) {
	settings := BuildSettings("maps-openrouteservice", 60, 30, 5, 2)
	assert.Equal(t, "maps-openrouteservice", settings.Name)
	assert.Equal(t, time.Minute, settings.Interval)
	assert.Equal(t, 30*time.Second, settings.Timeout)
	assert.Equal(t, uint32(5), settings.FailureThreshold)
	assert.Equal(t, uint32(2), settings.SuccessThreshold)

	unnamed := BuildSettings("", 0, 0, -1, 0)
	assert.NotEmpty(t, unnamed.Name)
	assert.Zero(t, unnamed.FailureThreshold)
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	assert.True(t, IsRetryableHTTPStatus(503))
	assert.True(t, IsRetryableHTTPStatus(429))
	assert.False(t, IsRetryableHTTPStatus(404))
	assert.False(t, IsRetryableHTTPStatus(400))
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	_, err := RetryWithName(context.Background(), RetryConfig{
		MaxAttempts:      3,
		InitialBackoff:   time.Millisecond,
		MaxBackoff:       time.Millisecond,
		RetryableChecker: func(err error) bool { return !errors.Is(err, permanent) },
	}, func(context.Context) (interface{}, error) {
		attempts++
		return nil, permanent
	}, "test")

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	result, err := RetryWithName(context.Background(), RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 2,
	}, func(context.Context) (interface{}, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}, "test")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, attempts)
}
