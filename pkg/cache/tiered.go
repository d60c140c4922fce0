package cache

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// entry is one cached value plus the bookkeeping the eviction policies and
// adaptive TTL need. size is authoritative for the byte budget.
type entry struct {
	key          string
	value        interface{}
	size         int64
	createdAt    time.Time
	lastAccessed time.Time
	accessCount  int64
	ttl          time.Duration
	compressed   bool
	wasBytes     bool // compressed payload decodes back to []byte, not JSON
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.createdAt.Add(e.ttl))
}

func (e *entry) age(now time.Time) time.Duration {
	return now.Sub(e.createdAt)
}

// accessesPerHour is the observed access rate driving adaptive TTL.
func (e *entry) accessesPerHour(now time.Time) float64 {
	age := e.age(now).Hours()
	if age <= 0 {
		return 0
	}
	return float64(e.accessCount) / age
}

// TieredConfig configures a TieredCache.
type TieredConfig struct {
	MaxEntries        int
	MaxBytes          int64
	DefaultTTL        time.Duration
	CompressThreshold int
	Policy            EvictionPolicy
	SweepInterval     time.Duration

	// DiskDir enables the disk tier when non-empty; one file per key under
	// this directory.
	DiskDir string

	Logger *zap.Logger
}

// TieredCache is the two-tier TTL cache: a bounded in-memory map in front of
// an optional one-file-per-key disk tier. All public methods hold the cache
// mutex for the duration of their logical operation, which preserves the
// get-after-set ordering guarantee.
type TieredCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	size    int64

	maxEntries        int
	maxBytes          int64
	defaultTTL        time.Duration
	compressThreshold int
	policy            EvictionPolicy
	sweepInterval     time.Duration

	disk   *diskTier
	logger *zap.Logger

	hits, misses, evictions, expirations, compressionSaved int64

	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// NewTieredCache creates the cache and starts its background sweep.
func NewTieredCache(cfg *TieredConfig) (*TieredCache, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 100 * 1024 * 1024
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.CompressThreshold <= 0 {
		cfg.CompressThreshold = 10 * 1024
	}
	if cfg.Policy == "" {
		cfg.Policy = Adaptive
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c := &TieredCache{
		entries:           make(map[string]*entry),
		maxEntries:        cfg.MaxEntries,
		maxBytes:          cfg.MaxBytes,
		defaultTTL:        cfg.DefaultTTL,
		compressThreshold: cfg.CompressThreshold,
		policy:            cfg.Policy,
		sweepInterval:     cfg.SweepInterval,
		logger:            cfg.Logger,
	}

	if cfg.DiskDir != "" {
		disk, err := newDiskTier(cfg.DiskDir, cfg.Logger)
		if err != nil {
			// Disk problems degrade to memory-only.
			cfg.Logger.Warn("cache-disk-tier-unavailable", zap.Error(err))
		} else {
			c.disk = disk
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.sweepCancel = cancel
	c.sweepDone = make(chan struct{})
	go c.sweepLoop(ctx)

	return c, nil
}

// Get retrieves a value, consulting memory then disk.
func (c *TieredCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	e, ok := c.entries[key]
	if ok {
		if e.expired(now) {
			c.removeLocked(key)
			c.expirations++
			ExpirationsTotal.Inc()
			ok = false
		} else {
			e.lastAccessed = now
			e.accessCount++
			c.hits++
			HitsTotal.Inc()
			c.updateHitRate()
			return c.materialize(e), true
		}
	}

	if !ok && c.disk != nil {
		value, ttl, createdAt, found := c.disk.read(key)
		if found && now.Before(createdAt.Add(ttl)) {
			// Promote into memory.
			c.setLocked(key, value, ttl, createdAt)
			c.hits++
			HitsTotal.Inc()
			c.updateHitRate()
			return value, true
		}
	}

	c.misses++
	MissesTotal.Inc()
	c.updateHitRate()
	return nil, false
}

// Set stores a value. Values whose serialized form exceeds the compression
// threshold are stored compressed when that actually shrinks them.
func (c *TieredCache) Set(key string, value interface{}, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.setLocked(key, value, ttl, time.Now())

	if c.disk != nil {
		c.disk.write(key, value, ttl)
	}

	SetsTotal.Inc()
	return true
}

// setLocked inserts the entry, compressing and evicting as needed.
// Caller holds the mutex.
func (c *TieredCache) setLocked(key string, value interface{}, ttl time.Duration, createdAt time.Time) {
	serialized, wasBytes := serialize(value)
	size := int64(len(serialized))

	stored := value
	compressed := false
	if len(serialized) > c.compressThreshold {
		packed := compress(serialized)
		if len(packed) < len(serialized) {
			saved := int64(len(serialized) - len(packed))
			c.compressionSaved += saved
			CompressionSavedBytes.Add(float64(saved))
			stored = packed
			compressed = true
			size = int64(len(packed))
		}
	}

	if old, ok := c.entries[key]; ok {
		c.size -= old.size
		delete(c.entries, key)
	}

	c.ensureSpaceLocked(size)

	c.entries[key] = &entry{
		key:          key,
		value:        stored,
		size:         size,
		createdAt:    createdAt,
		lastAccessed: createdAt,
		ttl:          ttl,
		compressed:   compressed,
		wasBytes:     wasBytes,
	}
	c.size += size
}

// Delete removes a key from both tiers.
func (c *TieredCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)
	if c.disk != nil {
		c.disk.remove(key)
	}
	DeletesTotal.Inc()
}

// Clear empties both tiers.
func (c *TieredCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.size = 0
	if c.disk != nil {
		c.disk.clear()
	}
	c.logger.Info("cache-cleared")
}

// Close stops the background sweep.
func (c *TieredCache) Close() {
	c.sweepCancel()
	<-c.sweepDone
	c.logger.Info("cache-closed")
}

// GetStats returns a snapshot of the cache counters.
func (c *TieredCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}

	var diskErrs int64
	if c.disk != nil {
		diskErrs = c.disk.errors.Load()
	}

	return Stats{
		Entries:          len(c.entries),
		SizeBytes:        c.size,
		Hits:             c.hits,
		Misses:           c.misses,
		Evictions:        c.evictions,
		Expirations:      c.expirations,
		CompressionSaved: c.compressionSaved,
		HitRate:          rate,
		DiskErrors:       diskErrs,
	}
}

// updateHitRate refreshes the hit-rate gauge. Caller holds the mutex.
func (c *TieredCache) updateHitRate() {
	total := c.hits + c.misses
	if total > 0 {
		HitRate.Set(float64(c.hits) / float64(total))
	}
}

// ensureSpaceLocked evicts until both the entry count and byte budget admit
// an insert of the given size. Caller holds the mutex.
func (c *TieredCache) ensureSpaceLocked(incoming int64) {
	for len(c.entries) >= c.maxEntries {
		if !c.evictOneLocked() {
			return
		}
	}
	for c.size+incoming > c.maxBytes {
		if !c.evictOneLocked() {
			return
		}
	}
}

// evictOneLocked removes the victim chosen by the configured policy.
func (c *TieredCache) evictOneLocked() bool {
	if len(c.entries) == 0 {
		return false
	}

	now := time.Now()
	var victim *entry
	var victimScore float64

	for _, e := range c.entries {
		var score float64
		switch c.policy {
		case LRU:
			score = float64(e.lastAccessed.UnixNano())
		case LFU:
			score = float64(e.accessCount)
		case TTL:
			score = float64(e.createdAt.UnixNano())
		default: // Adaptive
			age := e.age(now).Seconds()
			if age <= 0 {
				age = 1
			}
			score = float64(e.accessCount) / age
		}
		if victim == nil || score < victimScore {
			victim = e
			victimScore = score
		}
	}

	c.removeLocked(victim.key)
	c.evictions++
	EvictionsTotal.Inc()
	return true
}

func (c *TieredCache) removeLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	c.size -= e.size
	delete(c.entries, key)
}

// sweepLoop expires stale entries and applies adaptive TTL periodically.
func (c *TieredCache) sweepLoop(ctx context.Context) {
	defer close(c.sweepDone)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *TieredCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			c.removeLocked(key)
			c.expirations++
			ExpirationsTotal.Inc()
			removed++
			continue
		}
		if c.policy == Adaptive {
			e.ttl = adaptiveTTL(e, now)
		}
	}

	if removed > 0 {
		c.logger.Debug("cache-sweep", zap.Int("expired", removed), zap.Int("entries", len(c.entries)))
	}
}

// adaptiveTTL recomputes an entry's TTL from its observed access rate:
// very frequent entries live longer, rarely used ones expire sooner.
func adaptiveTTL(e *entry, now time.Time) time.Duration {
	if e.age(now) < time.Minute {
		return e.ttl
	}

	perHour := e.accessesPerHour(now)
	switch {
	case perHour > 10:
		return e.ttl * 2
	case perHour > 5:
		return e.ttl * 3 / 2
	case perHour < 1:
		return e.ttl / 2
	default:
		return e.ttl
	}
}

// materialize returns the caller-visible value for an entry, decompressing
// when needed.
func (c *TieredCache) materialize(e *entry) interface{} {
	if !e.compressed {
		return e.value
	}

	packed, ok := e.value.([]byte)
	if !ok {
		return e.value
	}

	raw, err := decompress(packed)
	if err != nil {
		c.logger.Warn("cache-decompress-failed", zap.String("key", e.key), zap.Error(err))
		return nil
	}

	if e.wasBytes {
		return raw
	}

	var out interface{}
	err = json.Unmarshal(raw, &out)
	if err != nil {
		c.logger.Warn("cache-unmarshal-failed", zap.String("key", e.key), zap.Error(err))
		return nil
	}
	return out
}

// serialize produces the byte form used for size accounting and
// compression. Byte slices pass through untouched.
func serialize(value interface{}) (raw []byte, wasBytes bool) {
	if b, ok := value.([]byte); ok {
		return b, true
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	return raw, false
}

func compress(raw []byte) []byte {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	_, err := w.Write(raw)
	if err != nil {
		return raw
	}
	err = w.Close()
	if err != nil {
		return raw
	}
	return buf.Bytes()
}

func decompress(packed []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(packed))
	return io.ReadAll(r)
}
