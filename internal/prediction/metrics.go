package prediction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "updown_operations_total",
		Help: "Total market operations by action and outcome",
	}, []string{"action", "outcome"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "updown_operation_duration_seconds",
		Help:    "Time to execute a market operation",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"action"})

	BetsPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "updown_bets_placed_total",
		Help: "Total bets placed by position",
	}, []string{"position"})

	ClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "updown_claims_total",
		Help: "Total claims by kind (payout, refund, nothing)",
	}, []string{"kind"})

	RoundsExecutedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "updown_rounds_executed_total",
		Help: "Total rounds settled",
	})

	FeesCollectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "updown_fees_collected_total",
		Help: "Protocol fees taken from settled rounds, in base units",
	})

	CurrentEpoch = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "updown_current_epoch",
		Help: "Current round epoch",
	})

	MarketPaused = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "updown_market_paused",
		Help: "1 when betting is paused",
	})
)
