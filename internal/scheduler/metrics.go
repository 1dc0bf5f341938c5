package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetwatch_sweep_runs_total",
			Help: "Total notification sweeps by status.",
		},
		[]string{"status"},
	)
	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assetwatch_sweep_duration_seconds",
			Help:    "Duration of notification sweeps.",
			Buckets: prometheus.DefBuckets,
		},
	)
	sweepNotificationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assetwatch_sweep_notifications_total",
			Help: "Total resources notified by sweeps.",
		},
	)
)
