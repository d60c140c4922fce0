package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// diskEntry is the on-disk cache file format: cache/data/<ns>/<hash>.cache.
type diskEntry struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	CreatedAt float64     `json:"created_at"` // unix seconds
	TTL       float64     `json:"ttl"`        // seconds
}

// diskTier stores one JSON file per key. Failures never propagate to the
// caller; the cache degrades to memory-only and counts the error.
type diskTier struct {
	dir    string
	logger *zap.Logger
	errors atomic.Int64
}

func newDiskTier(dir string, logger *zap.Logger) (*diskTier, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, err
	}
	return &diskTier{dir: dir, logger: logger}, nil
}

// path places each entry under a per-namespace subdirectory; keys are
// namespaced as "<source>:<hash>".
func (d *diskTier) path(key string) string {
	sum := sha1.Sum([]byte(key))
	name := hex.EncodeToString(sum[:]) + ".cache"
	if i := strings.IndexByte(key, ':'); i > 0 {
		return filepath.Join(d.dir, key[:i], name)
	}
	return filepath.Join(d.dir, name)
}

func (d *diskTier) read(key string) (value interface{}, ttl time.Duration, createdAt time.Time, found bool) {
	raw, err := os.ReadFile(d.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			d.fail("read", key, err)
		}
		return nil, 0, time.Time{}, false
	}

	var de diskEntry
	err = json.Unmarshal(raw, &de)
	if err != nil || de.Key != key {
		d.fail("decode", key, err)
		return nil, 0, time.Time{}, false
	}

	createdAt = time.Unix(0, int64(de.CreatedAt*float64(time.Second)))
	ttl = time.Duration(de.TTL * float64(time.Second))
	return de.Value, ttl, createdAt, true
}

func (d *diskTier) write(key string, value interface{}, ttl time.Duration) {
	de := diskEntry{
		Key:       key,
		Value:     value,
		CreatedAt: float64(time.Now().UnixNano()) / float64(time.Second),
		TTL:       ttl.Seconds(),
	}

	raw, err := json.Marshal(de)
	if err != nil {
		d.fail("encode", key, err)
		return
	}

	path := d.path(key)
	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		d.fail("write", key, err)
		return
	}
	err = os.WriteFile(path, raw, 0o644)
	if err != nil {
		d.fail("write", key, err)
	}
}

func (d *diskTier) remove(key string) {
	err := os.Remove(d.path(key))
	if err != nil && !os.IsNotExist(err) {
		d.fail("remove", key, err)
	}
}

func (d *diskTier) clear() {
	for _, pattern := range []string{"*.cache", filepath.Join("*", "*.cache")} {
		matches, err := filepath.Glob(filepath.Join(d.dir, pattern))
		if err != nil {
			d.fail("clear", "", err)
			return
		}
		for _, m := range matches {
			_ = os.Remove(m)
		}
	}
}

func (d *diskTier) fail(op, key string, err error) {
	d.errors.Add(1)
	DiskErrorsTotal.Inc()
	d.logger.Warn("cache-disk-error",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err))
}
