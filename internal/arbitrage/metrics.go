package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	ComputeDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "skinsarb_arbitrage_compute_duration_seconds",
		Help:    "Duration of one full engine comparison pass",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15},
	})

	OpportunitiesFound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skinsarb_arbitrage_opportunities",
		Help: "Opportunities in the most recent batch",
	})
)
