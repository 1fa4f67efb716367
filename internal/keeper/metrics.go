package keeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// KeeperChecksTotal counts checks by outcome (not_due, executed, failed, tripped).
	KeeperChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "updown_keeper_checks_total",
		Help: "Total keeper checks by outcome",
	}, []string{"outcome"})

	// KeeperTripped is 1 while the keeper is idling after repeated failures.
	KeeperTripped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "updown_keeper_tripped",
		Help: "Whether the keeper stopped after repeated failures (1=tripped)",
	})

	// KeeperTripsTotal counts how often the keeper tripped.
	KeeperTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "updown_keeper_trips_total",
		Help: "Total number of times the keeper tripped",
	})

	// KeeperCheckDuration tracks the time taken by one check.
	KeeperCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "updown_keeper_check_duration_seconds",
		Help:    "Time taken by one keeper check",
		Buckets: prometheus.DefBuckets,
	})
)
