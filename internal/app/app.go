// Package app wires the collaborators together: config, cache, proxy pool,
// rate limiter, HTTP client, adapters, runtime, arbitrage engine, sinks and
// the status server.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/arbitrage"
	"github.com/jmcruz/skins-arb/internal/catalog"
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

// Options select which sources an invocation drives and how.
type Options struct {
	// Sources restricts the adapter set; empty means every enabled source.
	Sources []string
	// Group names a scraper group from config/scrapers.json; expanded into
	// Sources when set.
	Group string
}

// App is one wired application instance.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	healthChecker *healthprobe.HealthChecker
	tieredCache   *cache.TieredCache // nil when disabled
	proxies       *proxy.Manager     // nil when disabled
	limiter       *ratelimit.Limiter
	client        *httpclient.Client
	catalogStore  *catalog.Store
	runtime       *scraper.Runtime
	engine        *arbitrage.Engine
	sinks         storage.Storage
	httpServer    *httpserver.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Catalog exposes the catalog store to CLI commands.
func (a *App) Catalog() *catalog.Store { return a.catalogStore }

// Engine exposes the arbitrage engine to CLI commands.
func (a *App) Engine() *arbitrage.Engine { return a.engine }

// Runtime exposes the scraper runtime to CLI commands.
func (a *App) Runtime() *scraper.Runtime { return a.runtime }
