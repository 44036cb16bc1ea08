package paymentsvc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	intentCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "payments",
			Name:      "intent_created_total",
			Help:      "Payment intents created",
		},
		[]string{"currency"},
	)

	intentOutcomeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "payments",
			Name:      "intent_outcome_total",
			Help:      "Confirm and cancel outcomes by resulting status",
		},
		[]string{"status"},
	)

	confirmLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "meridian",
			Subsystem: "payments",
			Name:      "confirm_latency_seconds",
			Help:      "End-to-end confirm latency including upstream calls",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)
