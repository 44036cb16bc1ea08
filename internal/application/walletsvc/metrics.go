package walletsvc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Business metrics for the ledger core. Process-wide, lock-free increments.
var (
	creditTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "wallet",
			Name:      "credit_total",
			Help:      "Total number of ledger credits",
		},
		[]string{"currency"},
	)

	debitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "wallet",
			Name:      "debit_total",
			Help:      "Total number of ledger debits",
		},
		[]string{"currency"},
	)

	idempotencyReplayTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "wallet",
			Name:      "idempotency_replay_total",
			Help:      "Mutations answered from an existing ledger entry",
		},
		[]string{"currency", "type"},
	)

	insufficientFundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "wallet",
			Name:      "insufficient_funds_total",
			Help:      "Debits rejected for insufficient funds",
		},
		[]string{"currency"},
	)

	transferCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "wallet",
			Name:      "transfer_created_total",
			Help:      "Transfers created",
		},
		[]string{"currency"},
	)

	transferCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "wallet",
			Name:      "transfer_completed_total",
			Help:      "Transfers completed",
		},
		[]string{"currency"},
	)

	transferFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "wallet",
			Name:      "transfer_failed_total",
			Help:      "Transfers recorded as failed",
		},
		[]string{"currency", "reason"},
	)

	transferIdempotentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "wallet",
			Name:      "transfer_idempotent_total",
			Help:      "Transfer requests answered from an existing transfer",
		},
		[]string{"currency"},
	)

	transferLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "meridian",
			Subsystem: "wallet",
			Name:      "transfer_latency_seconds",
			Help:      "Transfer processing latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)
)
