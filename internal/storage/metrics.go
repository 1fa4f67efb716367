package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommitsTotal tracks commits by outcome.
	CommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updown_storage_commits_total",
			Help: "Total number of storage commits",
		},
		[]string{"status"},
	)

	// CommitDuration tracks how long backend commits take.
	CommitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "updown_storage_commit_duration_seconds",
			Help:    "Duration of storage commits",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
	)

	// CommitWrites tracks the number of keys written per commit.
	CommitWrites = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "updown_storage_commit_writes",
			Help:    "Number of keys written per commit",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 13},
		},
	)
)
