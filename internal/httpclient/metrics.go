package httpclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skinsarb_http_requests_total",
		Help: "Total upstream requests per source",
	}, []string{"source"})

	RateLimitHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skinsarb_http_rate_limit_hits_total",
		Help: "HTTP 429 responses per source",
	}, []string{"source"})

	ProxyRotationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skinsarb_http_proxy_rotations_total",
		Help: "Proxy rotations triggered by failed proxy-mediated requests",
	}, []string{"source"})

	ResponseSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skinsarb_http_response_seconds",
		Help:    "Upstream response time per source",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"source"})
)
