// Package cache provides the response cache shared by all marketplace
// adapters: a two-tier (memory + disk) TTL store with selectable eviction,
// plus a ristretto-backed implementation for small memoization workloads.
package cache

import "time"

// Cache is the interface adapters cache upstream responses behind.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns (value, true) if found, (nil, false) if not found.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with a TTL.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()

	// Close closes the cache and releases resources.
	Close()
}

// EvictionPolicy selects which entry is sacrificed when the memory tier is
// over budget.
type EvictionPolicy string

const (
	// LRU evicts the least recently used entry.
	LRU EvictionPolicy = "lru"
	// LFU evicts the entry with the lowest access count.
	LFU EvictionPolicy = "lfu"
	// TTL evicts the oldest entry by creation time.
	TTL EvictionPolicy = "ttl"
	// Adaptive evicts the entry minimizing access_count/age, and also
	// drives the periodic per-entry TTL adjustment.
	Adaptive EvictionPolicy = "adaptive"
)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Entries          int     `json:"entries"`
	SizeBytes        int64   `json:"size_bytes"`
	Hits             int64   `json:"hits"`
	Misses           int64   `json:"misses"`
	Evictions        int64   `json:"evictions"`
	Expirations      int64   `json:"expirations"`
	CompressionSaved int64   `json:"compression_saved_bytes"`
	HitRate          float64 `json:"hit_rate"`
	DiskErrors       int64   `json:"disk_errors"`
}
