package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	TokensAcquiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skinsarb_ratelimit_tokens_acquired_total",
		Help: "Total number of rate-limit tokens acquired per source",
	}, []string{"source"})

	WaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skinsarb_ratelimit_wait_seconds",
		Help:    "Time spent blocked waiting for a rate-limit token",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
	}, []string{"source"})
)
