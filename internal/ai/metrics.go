package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var attemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "assetwatch_ai_attempts_total",
		Help: "AI generation attempts by provider and outcome code.",
	},
	[]string{"provider", "outcome"},
)
