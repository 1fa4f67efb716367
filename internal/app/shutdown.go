package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Cancel context to signal all components
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop taking requests before the store goes away
	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if a.stream != nil {
		err = a.stream.Close()
		if err != nil {
			a.logger.Error("price-stream-close-error", zap.Error(err))
		}
	}

	// Wait for all goroutines
	a.wg.Wait()

	a.closeResources()

	a.logger.Info("application-shutdown-complete")

	return nil
}

// closeResources releases caches and the store. Safe on a partially built
// App.
func (a *App) closeResources() {
	if a.roundCache != nil {
		a.roundCache.Close()
	}
	if a.replayCache != nil {
		a.replayCache.Close()
	}
	if a.store != nil {
		err := a.store.Close()
		if err != nil {
			a.logger.Error("storage-close-error", zap.Error(err))
		}
	}
}

// Close releases resources without running the server. Used by one-shot
// commands.
func (a *App) Close() {
	a.cancel()
	a.closeResources()
}
