package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	OpensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skinsarb_breaker_opens_total",
		Help: "Times a source's breaker opened after consecutive failed runs",
	}, []string{"source"})

	SkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skinsarb_breaker_skipped_runs_total",
		Help: "Scheduled runs skipped because the source's breaker was open",
	}, []string{"source"})

	OpenGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "skinsarb_breaker_open",
		Help: "Whether a source's breaker is currently open",
	}, []string{"source"})
)
