package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully stops every component in dependency order.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Signal the runtime, arbitrage loop and in-flight fetches.
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGrace+10*time.Second)
	defer shutdownCancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Wait for the runtime drain and loops.
	a.wg.Wait()

	err = a.sinks.Close()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	if a.tieredCache != nil {
		a.tieredCache.Close()
	}
	if a.proxies != nil {
		a.proxies.Close()
	}

	a.logger.Info("application-shutdown-complete")
	return nil
}

// Close releases resources for one-shot invocations that never started
// forever mode.
func (a *App) Close() {
	a.cancel()
	_ = a.sinks.Close()
	if a.tieredCache != nil {
		a.tieredCache.Close()
	}
	if a.proxies != nil {
		a.proxies.Close()
	}
}
