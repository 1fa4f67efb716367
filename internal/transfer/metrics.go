package transfer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransfersTotal tracks transfers by backend and outcome.
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updown_transfers_total",
			Help: "Total number of asset transfers",
		},
		[]string{"backend", "status"},
	)
)
