package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/pkg/types"
)

// Config holds all application configuration. Precedence: environment
// variables > on-disk JSON (config/settings.json, config/scrapers.json) >
// built-in defaults. Secrets are accepted from the environment only.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string
	DataDir  string
	CacheDir string

	// Scraper runtime
	MaxConcurrentScrapers int
	ShutdownGrace         time.Duration

	// Proxy pool
	ProxyEnabled      bool
	ProxyNumPools     int
	ProxiesPerPool    int
	RotationPoolSize  int
	PoolErrorLimit    int
	ProxyProviderURL  string
	ProxyAuthToken    string
	ProxyOrderToken   string
	ProxyWhitelistIPs []string
	ProxyListFile     string

	// Cache
	CacheEnabled         bool
	CacheDiskEnabled     bool
	CacheMaxEntries      int
	CacheMaxBytes        int64
	CacheDefaultTTL      time.Duration
	CacheCompressMin     int
	CacheEvictionPolicy  string
	CacheSweepInterval   time.Duration

	// Arbitrage defaults
	ArbMode       string
	ArbMinRatio   float64
	ArbMinPrice   float64
	ArbMaxResults int

	// Opportunity sinks
	StorageMode  string // "file", "console" or "postgres"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Per-source configuration, keyed by source tag.
	Sources map[string]*SourceConfig

	// Named groups of sources from config/scrapers.json.
	Groups map[string][]string

	warnings []string
}

// fileSettings mirrors config/settings.json.
type fileSettings struct {
	LogLevel string `json:"log_level"`
	HTTPPort string `json:"http_port"`
	DataDir  string `json:"data_dir"`
	CacheDir string `json:"cache_dir"`

	MaxConcurrentScrapers int `json:"max_concurrent_scrapers"`

	Proxy struct {
		Enabled          *bool    `json:"enabled"`
		NumPools         int      `json:"num_pools"`
		ProxiesPerPool   int      `json:"proxies_per_pool"`
		RotationPoolSize int      `json:"rotation_pool_size"`
		ErrorLimit       int      `json:"error_limit"`
		ProviderURL      string   `json:"provider_url"`
		WhitelistIPs     []string `json:"whitelist_ips"`
		ListFile         string   `json:"list_file"`
		AuthToken        string   `json:"auth_token,omitempty"`  // ignored: secret
		OrderToken       string   `json:"order_token,omitempty"` // ignored: secret
	} `json:"proxy"`

	Cache struct {
		Enabled        *bool  `json:"enabled"`
		DiskEnabled    *bool  `json:"disk_enabled"`
		MaxEntries     int    `json:"max_entries"`
		MaxBytes       int64  `json:"max_bytes"`
		DefaultTTLSecs int    `json:"default_ttl_seconds"`
		CompressMin    int    `json:"compression_threshold"`
		Policy         string `json:"eviction_policy"`
	} `json:"cache"`

	Arbitrage struct {
		Mode       string  `json:"mode"`
		MinRatio   float64 `json:"min_profit_ratio"`
		MinPrice   float64 `json:"min_price"`
		MaxResults int     `json:"max_results"`
	} `json:"arbitrage"`

	Storage struct {
		Mode string `json:"mode"`
	} `json:"storage"`
}

// fileScrapers mirrors config/scrapers.json.
type fileScrapers struct {
	GlobalSettings *SourceConfig            `json:"global_settings"`
	Groups         map[string][]string      `json:"groups"`
	Scrapers       map[string]*SourceConfig `json:"scrapers"`
}

// Load resolves configuration from configDir and the environment.
// A missing settings file is not an error; defaults apply.
func Load(configDir string) (*Config, error) {
	// Best-effort .env loading, same as local development elsewhere.
	_ = godotenv.Load()

	cfg := defaults()

	err := cfg.applyFile(filepath.Join(configDir, "settings.json"))
	if err != nil {
		return nil, err
	}

	err = cfg.applyScrapersFile(filepath.Join(configDir, "scrapers.json"))
	if err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{
		LogLevel: "info",
		HTTPPort: "8080",
		DataDir:  "data",
		CacheDir: filepath.Join("cache", "data"),

		MaxConcurrentScrapers: 8,
		ShutdownGrace:         30 * time.Second,

		ProxyEnabled:      false,
		ProxyNumPools:     5,
		ProxiesPerPool:    10000,
		RotationPoolSize:  100,
		PoolErrorLimit:    4,
		ProxyProviderURL:  "https://api.oculusproxies.com/v1/configure/proxy/getProxies",
		ProxyWhitelistIPs: nil,
		ProxyListFile:     "proxy.txt",

		CacheEnabled:        true,
		CacheDiskEnabled:    true,
		CacheMaxEntries:     1000,
		CacheMaxBytes:       100 * 1024 * 1024,
		CacheDefaultTTL:     5 * time.Minute,
		CacheCompressMin:    10 * 1024,
		CacheEvictionPolicy: "adaptive",
		CacheSweepInterval:  5 * time.Minute,

		ArbMode:       "complete",
		ArbMinRatio:   0.05,
		ArbMinPrice:   1.0,
		ArbMaxResults: 100,

		StorageMode:  "file",
		PostgresHost: "localhost",
		PostgresPort: "5432",
		PostgresUser: "skinsarb",
		PostgresPass: "",
		PostgresDB:   "skinsarb",
		PostgresSSL:  "disable",

		Sources: defaultSources(),
		Groups:  map[string][]string{},
	}

	return cfg
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &types.ConfigError{Key: path, Reason: err.Error()}
	}

	var fs fileSettings
	err = json.Unmarshal(raw, &fs)
	if err != nil {
		return &types.ConfigError{Key: path, Reason: "malformed JSON: " + err.Error()}
	}

	if fs.LogLevel != "" {
		c.LogLevel = fs.LogLevel
	}
	if fs.HTTPPort != "" {
		c.HTTPPort = fs.HTTPPort
	}
	if fs.DataDir != "" {
		c.DataDir = fs.DataDir
	}
	if fs.CacheDir != "" {
		c.CacheDir = fs.CacheDir
	}
	if fs.MaxConcurrentScrapers > 0 {
		c.MaxConcurrentScrapers = fs.MaxConcurrentScrapers
	}

	if fs.Proxy.Enabled != nil {
		c.ProxyEnabled = *fs.Proxy.Enabled
	}
	if fs.Proxy.NumPools > 0 {
		c.ProxyNumPools = fs.Proxy.NumPools
	}
	if fs.Proxy.ProxiesPerPool > 0 {
		c.ProxiesPerPool = fs.Proxy.ProxiesPerPool
	}
	if fs.Proxy.RotationPoolSize > 0 {
		c.RotationPoolSize = fs.Proxy.RotationPoolSize
	}
	if fs.Proxy.ErrorLimit > 0 {
		c.PoolErrorLimit = fs.Proxy.ErrorLimit
	}
	if fs.Proxy.ProviderURL != "" {
		c.ProxyProviderURL = fs.Proxy.ProviderURL
	}
	if len(fs.Proxy.WhitelistIPs) > 0 {
		c.ProxyWhitelistIPs = fs.Proxy.WhitelistIPs
	}
	if fs.Proxy.ListFile != "" {
		c.ProxyListFile = fs.Proxy.ListFile
	}
	if fs.Proxy.AuthToken != "" || fs.Proxy.OrderToken != "" {
		c.warnings = append(c.warnings,
			"proxy provider tokens found in settings.json; on-disk secrets are ignored, set BOT_PROXY_AUTH_TOKEN / BOT_PROXY_ORDER_TOKEN instead")
	}

	if fs.Cache.Enabled != nil {
		c.CacheEnabled = *fs.Cache.Enabled
	}
	if fs.Cache.DiskEnabled != nil {
		c.CacheDiskEnabled = *fs.Cache.DiskEnabled
	}
	if fs.Cache.MaxEntries > 0 {
		c.CacheMaxEntries = fs.Cache.MaxEntries
	}
	if fs.Cache.MaxBytes > 0 {
		c.CacheMaxBytes = fs.Cache.MaxBytes
	}
	if fs.Cache.DefaultTTLSecs > 0 {
		c.CacheDefaultTTL = time.Duration(fs.Cache.DefaultTTLSecs) * time.Second
	}
	if fs.Cache.CompressMin > 0 {
		c.CacheCompressMin = fs.Cache.CompressMin
	}
	if fs.Cache.Policy != "" {
		c.CacheEvictionPolicy = fs.Cache.Policy
	}

	if fs.Arbitrage.Mode != "" {
		c.ArbMode = fs.Arbitrage.Mode
	}
	if fs.Arbitrage.MinRatio > 0 {
		c.ArbMinRatio = fs.Arbitrage.MinRatio
	}
	if fs.Arbitrage.MinPrice > 0 {
		c.ArbMinPrice = fs.Arbitrage.MinPrice
	}
	if fs.Arbitrage.MaxResults > 0 {
		c.ArbMaxResults = fs.Arbitrage.MaxResults
	}

	if fs.Storage.Mode != "" {
		c.StorageMode = fs.Storage.Mode
	}

	return nil
}

func (c *Config) applyScrapersFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &types.ConfigError{Key: path, Reason: err.Error()}
	}

	var fs fileScrapers
	err = json.Unmarshal(raw, &fs)
	if err != nil {
		return &types.ConfigError{Key: path, Reason: "malformed JSON: " + err.Error()}
	}

	if fs.Groups != nil {
		c.Groups = fs.Groups
	}

	for tag, override := range fs.Scrapers {
		base, ok := c.Sources[tag]
		if !ok {
			continue
		}
		base.merge(fs.GlobalSettings)
		base.merge(override)
		if override.APIKey != "" {
			c.warnings = append(c.warnings, fmt.Sprintf(
				"api key for %s found in scrapers.json; on-disk secrets are ignored, set BOT_API_KEY_%s instead",
				tag, strings.ToUpper(tag)))
			base.APIKey = ""
		}
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BOT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("BOT_USE_PROXY"); v != "" {
		c.ProxyEnabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("BOT_CACHE_ENABLED"); v != "" {
		c.CacheEnabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("BOT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("BOT_HTTP_PORT"); v != "" {
		c.HTTPPort = v
	}
	if v := os.Getenv("BOT_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 {
			c.MaxConcurrentScrapers = n
		}
	}

	// Secrets: environment only.
	c.ProxyAuthToken = os.Getenv("BOT_PROXY_AUTH_TOKEN")
	c.ProxyOrderToken = os.Getenv("BOT_PROXY_ORDER_TOKEN")
	c.PostgresPass = getEnvOrDefault("POSTGRES_PASSWORD", c.PostgresPass)

	if v := os.Getenv("STORAGE_MODE"); v != "" {
		c.StorageMode = v
	}

	for tag, sc := range c.Sources {
		if key := os.Getenv("BOT_API_KEY_" + strings.ToUpper(tag)); key != "" {
			sc.APIKey = key
		}
	}
}

// APIKey returns the API key for a source tag, empty when none is set.
func (c *Config) APIKey(source string) string {
	sc, ok := c.Sources[source]
	if !ok {
		return ""
	}
	return sc.APIKey
}

// Source returns the resolved config for a source tag.
func (c *Config) Source(tag string) (*SourceConfig, bool) {
	sc, ok := c.Sources[tag]
	return sc, ok
}

// Warnings returns deferred non-fatal findings (e.g. on-disk secrets) so the
// caller can log them once a logger exists.
func (c *Config) Warnings() []string { return c.warnings }

// LogWarnings emits deferred warnings on the given logger.
func (c *Config) LogWarnings(logger *zap.Logger) {
	for _, w := range c.warnings {
		logger.Warn("config-warning", zap.String("detail", w))
	}
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return &types.ConfigError{Key: "http_port", Reason: "cannot be empty"}
	}
	if c.MaxConcurrentScrapers < 1 {
		return &types.ConfigError{Key: "max_concurrent_scrapers", Reason: "must be at least 1"}
	}
	if c.ProxyNumPools < 1 {
		return &types.ConfigError{Key: "proxy.num_pools", Reason: "must be at least 1"}
	}
	switch c.CacheEvictionPolicy {
	case "lru", "lfu", "ttl", "adaptive":
	default:
		return &types.ConfigError{
			Key:    "cache.eviction_policy",
			Reason: fmt.Sprintf("must be lru, lfu, ttl or adaptive, got %q", c.CacheEvictionPolicy),
		}
	}
	if c.ArbMode != "complete" && c.ArbMode != "fast" {
		return &types.ConfigError{
			Key:    "arbitrage.mode",
			Reason: fmt.Sprintf("must be complete or fast, got %q", c.ArbMode),
		}
	}
	if c.ArbMinRatio < 0 {
		return &types.ConfigError{Key: "arbitrage.min_profit_ratio", Reason: "must be non-negative"}
	}
	if c.StorageMode != "file" && c.StorageMode != "console" && c.StorageMode != "postgres" {
		return &types.ConfigError{
			Key:    "storage.mode",
			Reason: fmt.Sprintf("must be file, console or postgres, got %q", c.StorageMode),
		}
	}
	for tag, sc := range c.Sources {
		if sc.RequiresKey && sc.Enabled && sc.APIKey == "" {
			// Deferred: the runtime fails that adapter fast with a clear
			// error instead of refusing to start the whole process.
			c.warnings = append(c.warnings, fmt.Sprintf(
				"source %s requires an API key and none is set (BOT_API_KEY_%s); its runs will fail fast",
				tag, strings.ToUpper(tag)))
		}
	}
	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
