package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// MarketBalance tracks the market wallet balance per asset (whole units).
	MarketBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "updown_wallet_market_balance",
		Help: "Market wallet balance of the bet asset (whole units)",
	}, []string{"asset"})

	// UpdateErrorsTotal counts failed balance polls.
	UpdateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "updown_wallet_update_errors_total",
		Help: "Total number of failed wallet balance polls",
	})

	// UpdateDuration tracks balance poll latency.
	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "updown_wallet_update_duration_seconds",
		Help:    "Duration of wallet balance polls",
		Buckets: prometheus.DefBuckets,
	})

	// LastUpdateTimestamp records the last successful poll.
	LastUpdateTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "updown_wallet_last_update_timestamp",
		Help: "Unix timestamp of the last successful wallet poll",
	})

	// TransfersSubmittedTotal counts submitted on-chain transfers.
	TransfersSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "updown_wallet_transfers_submitted_total",
		Help: "Total number of on-chain transfers submitted",
	}, []string{"status"})
)
