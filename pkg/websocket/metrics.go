package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks active price stream connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "updown_price_stream_active_connections",
		Help: "Number of active price stream connections",
	})

	// ReconnectAttemptsTotal tracks reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "updown_price_stream_reconnect_attempts_total",
		Help: "Total number of price stream reconnection attempts",
	})

	// ReconnectFailuresTotal tracks reconnection failures.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "updown_price_stream_reconnect_failures_total",
		Help: "Total number of price stream reconnection failures",
	})

	// MessagesReceivedTotal tracks ticks received per asset.
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updown_price_stream_ticks_received_total",
			Help: "Total number of price ticks received",
		},
		[]string{"asset"},
	)

	// SubscriptionCount tracks subscribed assets.
	SubscriptionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "updown_price_stream_subscription_count",
		Help: "Number of subscribed assets",
	})

	// MessagesDroppedTotal tracks ticks dropped due to a full channel.
	MessagesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updown_price_stream_ticks_dropped_total",
			Help: "Total number of price ticks dropped",
		},
		[]string{"reason"},
	)

	// ConnectionDuration tracks connection lifetime.
	ConnectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "updown_price_stream_connection_duration_seconds",
		Help:    "Duration of price stream connections before disconnect",
		Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400, 28800, 43200, 86400},
	})
)
