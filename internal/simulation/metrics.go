package simulation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/richxcame/rideplanner/pkg/resilience"
)

var (
	offersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: resilience.MetricsNamespace,
		Name:      "ride_offers_total",
		Help:      "Total number of simulated ride offers by outcome",
	}, []string{"outcome"})

	phaseTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: resilience.MetricsNamespace,
		Name:      "ride_offer_phase_transitions_total",
		Help:      "Total number of ride offer phase transitions",
	}, []string{"phase"})

	pickupDistanceKm = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: resilience.MetricsNamespace,
		Name:      "ride_offer_pickup_distance_km",
		Help:      "Road distance between the accepting driver and the pickup point",
		Buckets:   []float64{0.25, 0.5, 1, 1.5, 2, 3, 5, 8},
	})
)

func recordOutcome(outcome string) {
	offersTotal.WithLabelValues(outcome).Inc()
}

func recordPhase(p Phase) {
	phaseTransitionsTotal.WithLabelValues(string(p)).Inc()
}
