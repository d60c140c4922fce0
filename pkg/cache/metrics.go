package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	HitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skinsarb_cache_hits_total",
		Help: "Total number of cache hits",
	})

	MissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skinsarb_cache_misses_total",
		Help: "Total number of cache misses",
	})

	SetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skinsarb_cache_sets_total",
		Help: "Total number of cache sets",
	})

	DeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skinsarb_cache_deletes_total",
		Help: "Total number of cache deletes",
	})

	EvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skinsarb_cache_evictions_total",
		Help: "Total number of entries evicted to satisfy budgets",
	})

	ExpirationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skinsarb_cache_expirations_total",
		Help: "Total number of entries removed after TTL expiry",
	})

	CompressionSavedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skinsarb_cache_compression_saved_bytes_total",
		Help: "Bytes saved by compressing large cache entries",
	})

	DiskErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skinsarb_cache_disk_errors_total",
		Help: "Disk-tier I/O failures (cache degrades to memory-only)",
	})

	HitRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skinsarb_cache_hit_rate",
		Help: "Cache hit rate (hits / (hits + misses))",
	})
)
