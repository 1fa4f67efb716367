package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PriceUpdatesTotal tracks accepted price updates.
	PriceUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updown_oracle_price_updates_total",
			Help: "Total number of accepted oracle price updates",
		},
		[]string{"asset"},
	)

	// FeedRejectedTotal tracks rejected price updates by reason.
	FeedRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updown_oracle_feed_rejected_total",
			Help: "Total number of rejected oracle price updates",
		},
		[]string{"reason"},
	)

	// LatestPriceGauge exposes the latest price per asset.
	LatestPriceGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "updown_oracle_latest_price",
			Help: "Latest oracle price per asset",
		},
		[]string{"asset"},
	)

	// HTTPRequestDuration tracks remote oracle request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "updown_oracle_http_request_duration_seconds",
			Help:    "Duration of remote oracle requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)
