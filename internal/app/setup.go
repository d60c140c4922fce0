package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/adapters"
	"github.com/jmcruz/skins-arb/internal/arbitrage"
	"github.com/jmcruz/skins-arb/internal/catalog"
	"github.com/jmcruz/skins-arb/internal/circuitbreaker"
	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/internal/proxy"
	"github.com/jmcruz/skins-arb/internal/scraper"
	"github.com/jmcruz/skins-arb/internal/storage"
	"github.com/jmcruz/skins-arb/pkg/cache"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/healthprobe"
	"github.com/jmcruz/skins-arb/pkg/httpserver"
	"github.com/jmcruz/skins-arb/pkg/ratelimit"
)

// New creates a wired application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	cfg.LogWarnings(logger)

	ctx, cancel := context.WithCancel(context.Background())

	catalogStore, err := catalog.NewStore(cfg.DataDir, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup catalog: %w", err)
	}

	tiered, responseCache, err := setupCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	proxies, err := setupProxies(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup proxies: %w", err)
	}

	limiter := setupLimiter(cfg)

	client := setupClient(cfg, logger, limiter, proxies, responseCache)

	adapterSet, err := setupAdapters(cfg, logger, client, responseCache, catalogStore, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup adapters: %w", err)
	}

	runtime := scraper.New(&scraper.Config{
		Adapters:      adapterSet,
		Client:        client,
		Catalog:       catalogStore,
		Sources:       cfg,
		MaxConcurrent: cfg.MaxConcurrentScrapers,
		ShutdownGrace: cfg.ShutdownGrace,
		Breaker:       circuitbreaker.New(&circuitbreaker.Config{Logger: logger}),
		Logger:        logger,
	})

	sinks, err := setupStorage(cfg, logger, catalogStore)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	engine := setupEngine(cfg, logger, catalogStore, sinks)

	healthChecker := healthprobe.New()
	httpServer := setupHTTPServer(cfg, logger, healthChecker, runtime, catalogStore, tiered, proxies)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		tieredCache:   tiered,
		proxies:       proxies,
		limiter:       limiter,
		client:        client,
		catalogStore:  catalogStore,
		runtime:       runtime,
		engine:        engine,
		sinks:         sinks,
		httpServer:    httpServer,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// setupCache builds the shared response cache. Returns the concrete tiered
// cache for stats plus the interface handed to the client, both nil when
// caching is disabled.
func setupCache(cfg *config.Config, logger *zap.Logger) (*cache.TieredCache, cache.Cache, error) {
	if !cfg.CacheEnabled {
		logger.Info("cache-disabled")
		return nil, nil, nil
	}

	diskDir := ""
	if cfg.CacheDiskEnabled {
		diskDir = cfg.CacheDir
	}

	tiered, err := cache.NewTieredCache(&cache.TieredConfig{
		MaxEntries:        cfg.CacheMaxEntries,
		MaxBytes:          cfg.CacheMaxBytes,
		DefaultTTL:        cfg.CacheDefaultTTL,
		CompressThreshold: cfg.CacheCompressMin,
		Policy:            cache.EvictionPolicy(cfg.CacheEvictionPolicy),
		SweepInterval:     cfg.CacheSweepInterval,
		DiskDir:           diskDir,
		Logger:            logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return tiered, tiered, nil
}

// setupProxies builds the proxy manager when enabled: a static proxy.txt
// list when present, the upstream bulk provider otherwise.
func setupProxies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*proxy.Manager, error) {
	if !cfg.ProxyEnabled {
		return nil, nil
	}

	var provider proxy.Provider
	if _, err := os.Stat(cfg.ProxyListFile); err == nil {
		static, serr := proxy.NewStaticProvider(cfg.ProxyListFile)
		if serr != nil {
			return nil, serr
		}
		logger.Info("proxy-static-list-loaded", zap.String("file", cfg.ProxyListFile))
		provider = static
	} else {
		upstream, uerr := proxy.NewUpstreamProvider(proxy.UpstreamConfig{
			URL:          cfg.ProxyProviderURL,
			AuthToken:    cfg.ProxyAuthToken,
			OrderToken:   cfg.ProxyOrderToken,
			WhitelistIPs: cfg.ProxyWhitelistIPs,
			Logger:       logger,
		})
		if uerr != nil {
			return nil, uerr
		}
		provider = upstream
	}

	return proxy.NewManager(ctx, &proxy.Config{
		Provider:         provider,
		NumPools:         cfg.ProxyNumPools,
		ProxiesPerPool:   cfg.ProxiesPerPool,
		RotationPoolSize: cfg.RotationPoolSize,
		ErrorLimit:       cfg.PoolErrorLimit,
		Logger:           logger,
	}), nil
}

func setupLimiter(cfg *config.Config) *ratelimit.Limiter {
	limiter := ratelimit.New(1, 1)
	for tag, sc := range cfg.Sources {
		limiter.Register(tag, sc.RateLimit, sc.Burst)
	}
	return limiter
}

func setupClient(
	cfg *config.Config,
	logger *zap.Logger,
	limiter *ratelimit.Limiter,
	proxies *proxy.Manager,
	responseCache cache.Cache,
) *httpclient.Client {
	clientCfg := &httpclient.Config{
		Limiter: limiter,
		Cache:   responseCache,
		Logger:  logger,
	}
	if proxies != nil {
		clientCfg.Proxies = proxies
	}
	return httpclient.New(clientCfg)
}

func setupAdapters(
	cfg *config.Config,
	logger *zap.Logger,
	client *httpclient.Client,
	responseCache cache.Cache,
	catalogStore *catalog.Store,
	opts *Options,
) ([]adapters.Adapter, error) {
	tags := opts.Sources
	if opts.Group != "" {
		expanded, err := scraper.ExpandGroup(cfg.Groups, opts.Group)
		if err != nil {
			return nil, err
		}
		tags = append(tags, expanded...)
	}

	deps := &adapters.Deps{
		Client:  client,
		Cache:   responseCache,
		Catalog: catalogStore,
		Config:  cfg,
		Logger:  logger,
	}
	return scraper.Build(tags, deps)
}

func setupStorage(cfg *config.Config, logger *zap.Logger, catalogStore *catalog.Store) (storage.Storage, error) {
	// The snapshot file is the stable contract; other sinks stack on top.
	sinks := storage.Multi{storage.NewFileStorage(catalogStore, logger)}

	switch cfg.StorageMode {
	case "console":
		sinks = append(sinks, storage.NewConsoleStorage(logger))
	case "postgres":
		pg, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, pg)
	}

	return sinks, nil
}

func setupEngine(cfg *config.Config, logger *zap.Logger, catalogStore *catalog.Store, sinks storage.Storage) *arbitrage.Engine {
	deepLinks := make(map[string]string, len(cfg.Sources))
	for tag, sc := range cfg.Sources {
		if sc.DeepLinkBase != "" {
			deepLinks[tag] = sc.DeepLinkBase
		}
	}

	return arbitrage.New(&arbitrage.Config{
		Store:     catalogStore,
		DeepLinks: deepLinks,
		Logger:    logger,
	}, sinks)
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	runtime *scraper.Runtime,
	catalogStore *catalog.Store,
	tiered *cache.TieredCache,
	proxies *proxy.Manager,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Status:        httpserver.NewStatusHandler(runtime, catalogStore, tiered, proxies, logger),
	})
}
