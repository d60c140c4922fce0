package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skinsarb_scraper_runs_total",
		Help: "Adapter runs started per source",
	}, []string{"source"})

	RunFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skinsarb_scraper_run_failures_total",
		Help: "Adapter runs that ended in error per source",
	}, []string{"source"})

	RunDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skinsarb_scraper_run_duration_seconds",
		Help:    "Duration of completed adapter runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"source"})

	ItemsScraped = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "skinsarb_scraper_items",
		Help: "Items in the most recent snapshot per source",
	}, []string{"source"})
)
