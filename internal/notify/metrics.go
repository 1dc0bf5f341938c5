package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	channelSendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetwatch_notification_send_total",
			Help: "Total notification channel attempts by channel and status.",
		},
		[]string{"channel", "status"},
	)
	channelSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetwatch_notification_send_duration_seconds",
			Help:    "Duration of notification channel attempts.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"channel"},
	)
)
