package resilience

import (
	"context"

	"github.com/richxcame/rideplanner/pkg/logger"
	"go.uber.org/zap"
)

// FallbackFunc is executed when the breaker is open or overloaded.
type FallbackFunc func(ctx context.Context, err error) (interface{}, error)

// NoopFallback returns the breaker open error without additional handling.
func NoopFallback(ctx context.Context, err error) (interface{}, error) {
	return nil, ErrCircuitOpen
}

// GracefulDegradation logs the rejected call and reports ErrCircuitOpen so the
// caller can move on to its next provider.
func GracefulDegradation(service string) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.WithContext(ctx).Warn("upstream unavailable, degrading",
			zap.String("service", service),
			zap.Error(err),
		)
		return nil, ErrCircuitOpen
	}
}
