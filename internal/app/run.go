package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/arbitrage"
)

// Run starts forever mode: the status server, the rerunning adapter set,
// and a periodic arbitrage pass. Blocks until a shutdown signal.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("log-level", a.cfg.LogLevel),
		zap.Int("max-concurrent", a.cfg.MaxConcurrentScrapers),
		zap.Bool("proxies", a.proxies != nil),
		zap.Bool("cache", a.tieredCache != nil))

	a.wg.Add(1)
	go a.runHTTPServer()

	a.wg.Add(1)
	go a.runScrapers()

	a.wg.Add(1)
	go a.runArbitrageLoop()

	a.healthChecker.SetReady(true)
	a.logger.Info("application-ready", zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

// RunOnce runs each selected adapter a single time, then one arbitrage
// pass over the refreshed catalog.
func (a *App) RunOnce(ctx context.Context) error {
	err := a.runtime.RunOnce(ctx)
	if err != nil {
		return err
	}

	_, err = a.engine.Compute(ctx, arbitrage.Options{
		Mode:       a.cfg.ArbMode,
		MinRatio:   a.cfg.ArbMinRatio,
		MinPrice:   a.cfg.ArbMinPrice,
		MaxResults: a.cfg.ArbMaxResults,
	})
	return err
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runScrapers() {
	defer a.wg.Done()
	err := a.runtime.RunForever(a.ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("runtime-error", zap.Error(err))
	}
}

// runArbitrageLoop recomputes opportunities on a fixed cadence so the
// snapshot tracks the rolling catalog.
func (a *App) runArbitrageLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.arbInterval())
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			_, err := a.engine.Compute(a.ctx, arbitrage.Options{
				Mode:       a.cfg.ArbMode,
				MinRatio:   a.cfg.ArbMinRatio,
				MinPrice:   a.cfg.ArbMinPrice,
				MaxResults: a.cfg.ArbMaxResults,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("arbitrage-pass-failed", zap.Error(err))
			}
		}
	}
}

func (a *App) arbInterval() time.Duration {
	// Half the shortest enabled adapter interval (taken as at most five
	// minutes), never under one minute, keeps the snapshot reasonably
	// fresh without rescanning an unchanged catalog constantly.
	shortest := 5 * time.Minute
	for _, sc := range a.cfg.Sources {
		if sc.Enabled && sc.Interval() < shortest {
			shortest = sc.Interval()
		}
	}
	half := shortest / 2
	if half < time.Minute {
		return time.Minute
	}
	return half
}

func (a *App) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))

	return a.Shutdown()
}
