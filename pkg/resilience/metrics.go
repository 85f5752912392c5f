package resilience

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// MetricsNamespace prefixes every metric the planner exports.
const MetricsNamespace = "rideplanner"

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: "breaker",
		Name:      "state",
		Help:      "Breaker state per maps provider (0=closed, 0.5=half-open, 1=open)",
	}, []string{"breaker"})

	breakerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "breaker",
		Name:      "calls_total",
		Help:      "Provider calls made through a breaker, by result",
	}, []string{"breaker", "result"})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "breaker",
		Name:      "transitions_total",
		Help:      "Breaker state transitions",
	}, []string{"breaker", "from", "to"})

	retryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "retry",
		Name:      "attempts_total",
		Help:      "Individual attempts of retried operations (maps HTTP calls, cache commands)",
	}, []string{"operation", "result"})

	retryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: "retry",
		Name:      "operation_duration_seconds",
		Help:      "Wall time of a retried operation including backoff",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"operation", "result"})

	retryAttemptsPerOperation = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: "retry",
		Name:      "attempts_per_operation",
		Help:      "Attempts used before success or giving up",
		Buckets:   []float64{1, 2, 3, 4, 5},
	}, []string{"operation", "result"})

	retryBackoff = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: "retry",
		Name:      "backoff_seconds",
		Help:      "Backoff delays between attempts",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"operation"})

	breakerSeq uint64
)

func nextBreakerName(base string) string {
	if base != "" {
		return base
	}
	return "breaker-" + strconv.FormatUint(atomic.AddUint64(&breakerSeq, 1), 10)
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 0.5
	case gobreaker.StateOpen:
		return 1
	default:
		return -1
	}
}

func recordBreakerState(name string, state gobreaker.State) {
	breakerState.WithLabelValues(name).Set(breakerStateValue(state))
}

func recordBreakerStateChange(name string, from, to gobreaker.State) {
	breakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	recordBreakerState(name, to)
}

func recordBreakerRequest(name string) {
	breakerCalls.WithLabelValues(name, "attempted").Inc()
}

func recordBreakerFailure(name string) {
	breakerCalls.WithLabelValues(name, "failure").Inc()
}

// an open breaker served the fallback instead of calling the provider
func recordBreakerFallback(name string) {
	breakerCalls.WithLabelValues(name, "fallback").Inc()
}

func recordRetryAttempt(operation string, success bool) {
	retryAttempts.WithLabelValues(operation, resultLabel(success)).Inc()
}

func recordRetryOperation(operation string, seconds float64, attempts int, success bool) {
	result := resultLabel(success)
	retryDuration.WithLabelValues(operation, result).Observe(seconds)
	retryAttemptsPerOperation.WithLabelValues(operation, result).Observe(float64(attempts))
}

func recordRetryBackoff(operation string, seconds float64) {
	retryBackoff.WithLabelValues(operation).Observe(seconds)
}
