package cache

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, cfg *TieredConfig) *TieredCache {
	t.Helper()
	if cfg == nil {
		cfg = &TieredConfig{}
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = time.Hour // keep the sweep out of timing tests
	}
	c, err := NewTieredCache(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestGetAfterSet(t *testing.T) {
	c := newTestCache(t, nil)

	c.Set("k", "v", time.Minute)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestExpiry(t *testing.T) {
	c := newTestCache(t, nil)

	c.Set("k", "v", 30*time.Millisecond)

	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestDeleteAndClear(t *testing.T) {
	c := newTestCache(t, nil)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Zero(t, c.GetStats().Entries)
}

func TestEntryCountBound(t *testing.T) {
	c := newTestCache(t, &TieredConfig{MaxEntries: 5})

	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		c.Set(k, k, time.Minute)
		stats := c.GetStats()
		assert.LessOrEqual(t, stats.Entries, 5)
	}
}

func TestByteBudgetBound(t *testing.T) {
	c := newTestCache(t, &TieredConfig{MaxEntries: 1000, MaxBytes: 2048})

	payload := strings.Repeat("x", 512)
	for i := 0; i < 20; i++ {
		c.Set(string(rune('a'+i)), payload, time.Minute)
		assert.LessOrEqual(t, c.GetStats().SizeBytes, int64(2048))
	}
}

func TestLRUEviction(t *testing.T) {
	c := newTestCache(t, &TieredConfig{MaxEntries: 2, Policy: LRU})

	c.Set("old", 1, time.Minute)
	time.Sleep(5 * time.Millisecond)
	c.Set("new", 2, time.Minute)
	time.Sleep(5 * time.Millisecond)

	// Touch "old" so "new" becomes least recently used.
	_, ok := c.Get("old")
	require.True(t, ok)
	time.Sleep(5 * time.Millisecond)

	c.Set("third", 3, time.Minute)

	_, ok = c.Get("old")
	assert.True(t, ok, "recently used entry survived")
	_, ok = c.Get("new")
	assert.False(t, ok, "least recently used entry evicted")
}

func TestLFUEviction(t *testing.T) {
	c := newTestCache(t, &TieredConfig{MaxEntries: 2, Policy: LFU})

	c.Set("hot", 1, time.Minute)
	c.Set("cold", 2, time.Minute)
	for i := 0; i < 5; i++ {
		_, _ = c.Get("hot")
	}

	c.Set("third", 3, time.Minute)

	_, ok := c.Get("hot")
	assert.True(t, ok)
	_, ok = c.Get("cold")
	assert.False(t, ok)
}

func TestCompressionRoundTrip(t *testing.T) {
	c := newTestCache(t, &TieredConfig{CompressThreshold: 1024})

	// Highly compressible payload well over the threshold.
	payload := []byte(strings.Repeat("abcdefgh", 4096))
	c.Set("big", payload, time.Minute)

	got, ok := c.Get("big")
	require.True(t, ok)
	assert.Equal(t, payload, got)

	stats := c.GetStats()
	assert.Positive(t, stats.CompressionSaved)
	assert.Less(t, stats.SizeBytes, int64(len(payload)))
}

func TestDiskTierPromotion(t *testing.T) {
	dir := t.TempDir()

	first := newTestCache(t, &TieredConfig{DiskDir: dir})
	first.Set("persisted", "value", time.Minute)
	first.Close()

	// A fresh cache over the same directory misses memory, hits disk.
	second, err := NewTieredCache(&TieredConfig{DiskDir: dir, SweepInterval: time.Hour})
	require.NoError(t, err)
	defer second.Close()

	got, ok := second.Get("persisted")
	require.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestDiskTierRespectsTTL(t *testing.T) {
	dir := t.TempDir()

	first := newTestCache(t, &TieredConfig{DiskDir: dir})
	first.Set("short", "value", 20*time.Millisecond)
	first.Close()

	time.Sleep(50 * time.Millisecond)

	second, err := NewTieredCache(&TieredConfig{DiskDir: dir, SweepInterval: time.Hour})
	require.NoError(t, err)
	defer second.Close()

	_, ok := second.Get("short")
	assert.False(t, ok)
}

func TestDiskTierNamespacesByKeyPrefix(t *testing.T) {
	dir := t.TempDir()

	c := newTestCache(t, &TieredConfig{DiskDir: dir})
	c.Set("waxpeer:abcd1234", "value", time.Minute)

	matches, err := filepath.Glob(filepath.Join(dir, "waxpeer", "*.cache"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestAdaptiveTTLAdjustment(t *testing.T) {
	base := time.Minute
	created := time.Now().Add(-2 * time.Hour)

	hot := &entry{createdAt: created, ttl: base, accessCount: 100}
	assert.Equal(t, 2*base, adaptiveTTL(hot, time.Now()))

	warm := &entry{createdAt: created, ttl: base, accessCount: 14}
	assert.Equal(t, base*3/2, adaptiveTTL(warm, time.Now()))

	cold := &entry{createdAt: created, ttl: base, accessCount: 1}
	assert.Equal(t, base/2, adaptiveTTL(cold, time.Now()))

	fresh := &entry{createdAt: time.Now(), ttl: base, accessCount: 100}
	assert.Equal(t, base, adaptiveTTL(fresh, time.Now()))
}

func TestStatsHitRate(t *testing.T) {
	c := newTestCache(t, nil)

	c.Set("k", "v", time.Minute)
	_, _ = c.Get("k")
	_, _ = c.Get("missing")

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}
