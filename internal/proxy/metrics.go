package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	GetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skinsarb_proxy_gets_total",
		Help: "Total number of proxies handed out",
	})

	RegionRotationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skinsarb_proxy_region_rotations_total",
		Help: "Total number of pool region rotations after consecutive errors",
	})

	ProviderErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skinsarb_proxy_provider_errors_total",
		Help: "Failed bulk fetches against the upstream proxy provider",
	})

	PoolProxies = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "skinsarb_proxy_pool_proxies",
		Help: "Proxies currently loaded per pool",
	}, []string{"pool"})

	PoolScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "skinsarb_proxy_pool_score",
		Help: "Current performance score per pool",
	}, []string{"pool"})
)
