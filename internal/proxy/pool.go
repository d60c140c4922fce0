// Package proxy implements the region-sharded rotating proxy pool shared by
// all adapters: several region pools fetched in bulk from an upstream
// provider, scored by observed health, with automatic region failover.
package proxy

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/pkg/types"
)

// reliableRegions is the closed allow-list of region codes pools are drawn
// from. Tier 1 + Tier 2 datacenter regions.
var reliableRegions = []string{
	"us", "gb", "de", "ca", "au", "fr", "nl", "jp", "sg", "br",
	"mx", "in", "kr", "hk", "tw", "pl", "it", "es", "ch", "se",
	"no", "dk", "fi", "at", "be", "ie", "pt", "ru", "tr", "za",
	"eg", "ae", "sa", "th", "my", "id", "ph", "vn", "nz",
}

// performance tracks the health of one region pool.
type performance struct {
	successCount      int
	errorCount        int
	consecutiveErrors int
	lastErrorAt       time.Time
	responseTimes     []float64 // seconds, last 50
}

func (p *performance) successRate() float64 {
	total := p.successCount + p.errorCount
	if total == 0 {
		return 0
	}
	return float64(p.successCount) / float64(total) * 100
}

func (p *performance) avgResponseTime() float64 {
	if len(p.responseTimes) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range p.responseTimes {
		sum += t
	}
	return sum / float64(len(p.responseTimes))
}

// score is the selection metric: success rate penalized by latency and by
// consecutive errors. Pools with no observations score a neutral 50.
func (p *performance) score() float64 {
	if p.successCount+p.errorCount == 0 {
		return 50.0
	}
	return p.successRate() - p.avgResponseTime()*3 - float64(p.consecutiveErrors)*15
}

// regionPool holds the proxies of one region plus its health record.
type regionPool struct {
	region      string
	proxies     []string
	perf        performance
	active      bool
	lastRefresh time.Time
}

// Config holds proxy manager configuration.
type Config struct {
	Provider         Provider
	NumPools         int
	ProxiesPerPool   int
	RotationPoolSize int
	ErrorLimit       int // consecutive errors before region rotation
	Logger           *zap.Logger
}

// Manager is the process-wide proxy pool. Get returns a proxy endpoint or
// "" for a direct connection; Report feeds back the outcome of the request
// made through the last returned proxy.
type Manager struct {
	mu              sync.Mutex
	pools           map[string]*regionPool
	rotation        []string
	rotationEnabled bool
	lastUsedPool    string
	requestCount    int

	provider     Provider
	numPools     int
	perPool      int
	rotationSize int
	errorLimit   int

	logger *zap.Logger
}

// NewManager creates the manager and eagerly loads every region pool.
// Pools whose initial bulk fetch fails start inactive; the manager is usable
// as long as at least one pool loaded, and degrades to direct connections
// otherwise.
func NewManager(ctx context.Context, cfg *Config) *Manager {
	if cfg.NumPools <= 0 {
		cfg.NumPools = 5
	}
	if cfg.NumPools > len(reliableRegions) {
		cfg.NumPools = len(reliableRegions)
	}
	if cfg.ProxiesPerPool <= 0 {
		cfg.ProxiesPerPool = 10000
	}
	if cfg.RotationPoolSize <= 0 {
		cfg.RotationPoolSize = 100
	}
	if cfg.ErrorLimit <= 0 {
		cfg.ErrorLimit = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	m := &Manager{
		pools:        make(map[string]*regionPool),
		provider:     cfg.Provider,
		numPools:     cfg.NumPools,
		perPool:      cfg.ProxiesPerPool,
		rotationSize: cfg.RotationPoolSize,
		errorLimit:   cfg.ErrorLimit,
		logger:       cfg.Logger,
	}

	m.initializePools(ctx)
	return m
}

func (m *Manager) initializePools(ctx context.Context) {
	regions := sampleRegions(m.numPools)

	for i, region := range regions {
		name := poolName(i + 1)
		pool := &regionPool{region: region, active: true}
		m.mu.Lock()
		m.pools[name] = pool
		m.mu.Unlock()

		proxies := m.fetchRegion(ctx, region)
		m.mu.Lock()
		if len(proxies) > 0 {
			pool.proxies = proxies
			pool.lastRefresh = time.Now()
			PoolProxies.WithLabelValues(name).Set(float64(len(proxies)))
			m.logger.Info("proxy-pool-loaded",
				zap.String("pool", name),
				zap.String("region", region),
				zap.Int("proxies", len(proxies)))
		} else {
			pool.active = false
			m.logger.Warn("proxy-pool-load-failed",
				zap.String("pool", name),
				zap.String("region", region))
		}
		m.mu.Unlock()
	}
}

// Get returns a proxy endpoint from the best-scoring active pool, or ""
// when no proxies are available (direct connection).
func (m *Manager) Get() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := m.bestPoolLocked()
	if name == "" {
		return ""
	}

	pool := m.pools[name]
	proxy := pool.proxies[rand.Intn(len(pool.proxies))]
	m.lastUsedPool = name
	m.requestCount++
	GetsTotal.Inc()
	return proxy
}

func (m *Manager) bestPoolLocked() string {
	bestName := ""
	bestScore := 0.0
	for name, pool := range m.pools {
		if !pool.active || len(pool.proxies) == 0 {
			continue
		}
		s := pool.perf.score()
		if bestName == "" || s > bestScore {
			bestName = name
			bestScore = s
		}
	}
	return bestName
}

// Report records the outcome of the request made through the last proxy
// handed out. A pool reaching the consecutive-error limit has its region
// rotated; the replacement fetch happens outside the lock.
func (m *Manager) Report(success bool, elapsed time.Duration) {
	var rotate string

	m.mu.Lock()
	if m.lastUsedPool == "" {
		m.mu.Unlock()
		return
	}
	pool, ok := m.pools[m.lastUsedPool]
	if !ok {
		m.mu.Unlock()
		return
	}

	if success {
		pool.perf.successCount++
		pool.perf.consecutiveErrors = 0
		pool.perf.responseTimes = append(pool.perf.responseTimes, elapsed.Seconds())
		if len(pool.perf.responseTimes) > 50 {
			pool.perf.responseTimes = pool.perf.responseTimes[len(pool.perf.responseTimes)-50:]
		}
	} else {
		pool.perf.errorCount++
		pool.perf.consecutiveErrors++
		pool.perf.lastErrorAt = time.Now()
		if pool.perf.consecutiveErrors >= m.errorLimit {
			rotate = m.lastUsedPool
		}
	}
	PoolScore.WithLabelValues(m.lastUsedPool).Set(pool.perf.score())
	m.mu.Unlock()

	if rotate != "" {
		m.rotateRegion(context.Background(), rotate)
	}
}

// rotateRegion swaps a failing pool onto an unused region from the
// allow-list and resets its health record. With no regions left, the pool
// goes inactive and the remaining pools carry the load.
func (m *Manager) rotateRegion(ctx context.Context, name string) {
	m.mu.Lock()
	pool, ok := m.pools[name]
	if !ok {
		m.mu.Unlock()
		return
	}
	oldRegion := pool.region

	used := make(map[string]bool, len(m.pools))
	for _, p := range m.pools {
		used[p.region] = true
	}
	var available []string
	for _, r := range reliableRegions {
		if !used[r] {
			available = append(available, r)
		}
	}

	if len(available) == 0 {
		pool.active = false
		m.mu.Unlock()
		m.logger.Warn("proxy-pool-exhausted-regions", zap.String("pool", name))
		return
	}

	newRegion := available[rand.Intn(len(available))]
	pool.region = newRegion
	pool.perf = performance{}
	m.mu.Unlock()

	m.logger.Warn("proxy-region-rotated",
		zap.String("pool", name),
		zap.String("from", oldRegion),
		zap.String("to", newRegion))
	RegionRotationsTotal.Inc()

	proxies := m.fetchRegion(ctx, newRegion)

	m.mu.Lock()
	if len(proxies) > 0 {
		pool.proxies = proxies
		pool.active = true
		pool.lastRefresh = time.Now()
		PoolProxies.WithLabelValues(name).Set(float64(len(proxies)))
	} else {
		pool.active = false
	}
	m.mu.Unlock()
}

// fetchRegion pulls a bulk proxy list for a region from the provider. After
// the first successful load, provider fetches are themselves routed through
// the rotation pool.
func (m *Manager) fetchRegion(ctx context.Context, region string) []string {
	m.mu.Lock()
	via := ""
	if m.rotationEnabled && len(m.rotation) > 0 {
		via = m.rotation[rand.Intn(len(m.rotation))]
	}
	m.mu.Unlock()

	proxies, err := m.provider.Fetch(ctx, region, m.perPool, via)
	if err != nil {
		m.logger.Error("proxy-provider-fetch-failed",
			zap.String("region", region),
			zap.Error(err))
		ProviderErrorsTotal.Inc()
		return nil
	}

	m.updateRotationPool(proxies)
	return proxies
}

func (m *Manager) updateRotationPool(fresh []string) {
	if len(fresh) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.rotationEnabled {
		n := len(fresh)
		if n > m.rotationSize {
			n = m.rotationSize
		}
		m.rotation = append(m.rotation, fresh[:n]...)
		m.rotationEnabled = true
		m.logger.Info("proxy-rotation-enabled", zap.Int("rotation-pool", len(m.rotation)))
		return
	}

	n := len(fresh)
	if n > 50 {
		n = 50
	}
	existing := make(map[string]bool, len(m.rotation))
	for _, p := range m.rotation {
		existing[p] = true
	}
	for _, p := range fresh[:n] {
		if !existing[p] {
			m.rotation = append(m.rotation, p)
		}
	}
	if len(m.rotation) > 500 {
		m.rotation = m.rotation[len(m.rotation)-500:]
	}
}

// Close releases resources. Present for symmetry with other collaborators;
// the manager holds no connections of its own.
func (m *Manager) Close() {
	m.logger.Info("proxy-manager-closed")
}

// PoolStats describes one region pool for the status endpoint.
type PoolStats struct {
	Region            string  `json:"region"`
	Proxies           int     `json:"proxies"`
	Active            bool    `json:"active"`
	SuccessRate       float64 `json:"success_rate"`
	AvgResponseTime   float64 `json:"avg_response_time"`
	ConsecutiveErrors int     `json:"consecutive_errors"`
	Score             float64 `json:"score"`
}

// Stats returns a snapshot of all pools.
func (m *Manager) Stats() map[string]PoolStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]PoolStats, len(m.pools))
	for name, pool := range m.pools {
		out[name] = PoolStats{
			Region:            pool.region,
			Proxies:           len(pool.proxies),
			Active:            pool.active,
			SuccessRate:       pool.perf.successRate(),
			AvgResponseTime:   pool.perf.avgResponseTime(),
			ConsecutiveErrors: pool.perf.consecutiveErrors,
			Score:             pool.perf.score(),
		}
	}
	return out
}

// NoProxies returns a typed error for callers that require a proxy.
func NoProxies() error {
	return &types.ProxyError{Kind: types.ProxyNoneAvailable}
}

func poolName(i int) string {
	return "pool_" + strconv.Itoa(i)
}

// sampleRegions picks n distinct regions from the allow-list.
func sampleRegions(n int) []string {
	idx := rand.Perm(len(reliableRegions))
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, reliableRegions[i])
	}
	return out
}
