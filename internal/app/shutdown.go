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

	// Shutdown components in dependency order
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	err := a.shutdownHTTPServer(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Close private stream
	err = a.shutdownPrivateWS()
	if err != nil {
		a.logger.Error("private-ws-close-error", zap.Error(err))
	}

	// Close public stream
	err = a.shutdownPublicWS()
	if err != nil {
		a.logger.Error("public-ws-close-error", zap.Error(err))
	}

	// Close synchronizer
	a.shutdownSynchronizer()

	// Close storage
	err = a.shutdownStorage()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	// Wait for all goroutines
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}

func (a *App) shutdownHTTPServer(ctx context.Context) error {
	return a.httpServer.Shutdown(ctx)
}

func (a *App) shutdownPrivateWS() error {
	return a.privateWS.Close()
}

func (a *App) shutdownPublicWS() error {
	return a.publicWS.Close()
}

func (a *App) shutdownSynchronizer() {
	a.synchronizer.Close()
}

func (a *App) shutdownStorage() error {
	return a.storage.Close()
}
