package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/types"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("base-asset", a.cfg.BaseAsset),
		zap.Strings("quote-assets", a.cfg.QuoteAssets),
		zap.String("log-level", a.cfg.LogLevel))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.Int("cycles", len(a.universe.Cycles())))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	time.Sleep(100 * time.Millisecond)

	if err := a.publicWS.Start(); err != nil {
		return err
	}
	if err := a.publicWS.Subscribe(a.universe.Symbols()); err != nil {
		return err
	}
	if err := a.privateWS.Start(); err != nil {
		return err
	}

	a.synchronizer.Start(a.ctx, a.publicWS.Deltas())

	a.wg.Add(1)
	go a.runDetector()

	chances := make(chan types.ChanceEvent, 64)
	a.wg.Add(1)
	go a.relayChances(a.ctx, a.detector.Chances(), chances)

	mergedChanges := mergeOrderChanges(a.ctx, a.privateWS.Changes(), a.dispatcher.Changes())

	a.wg.Add(1)
	go a.runGatekeeper(chances, mergedChanges)

	orders := make(chan types.OrderEvent, 16)
	a.wg.Add(1)
	go a.relayOrders(a.ctx, a.gatekeeper.Orders(), orders)

	a.wg.Add(1)
	go a.runDispatcher(orders)

	a.wg.Add(1)
	go a.runMonitorRegistry()

	a.wg.Add(1)
	go a.runResyncSupervisor()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runDetector() {
	defer a.wg.Done()
	a.detector.Run(a.ctx, a.synchronizer.TopOfBookChanges())
}

func (a *App) runGatekeeper(chances <-chan types.ChanceEvent, changes <-chan types.OrderChangeEvent) {
	defer a.wg.Done()
	a.gatekeeper.Run(a.ctx, chances, changes)
}

func (a *App) runDispatcher(orders <-chan types.OrderEvent) {
	defer a.wg.Done()
	a.dispatcher.Run(a.ctx, orders)
}

func (a *App) runMonitorRegistry() {
	defer a.wg.Done()
	a.monitorRegistry.Run(a.ctx)
}

// runResyncSupervisor quiesces the Gatekeeper the moment the private stream
// disconnects and resumes it once a fresh open-orders snapshot has been
// fetched over REST, so no admission decision is made against a stale
// in-flight set while the account stream is down.
func (a *App) runResyncSupervisor() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case _, ok := <-a.privateWS.Disconnected():
			if !ok {
				return
			}
			a.gatekeeper.Quiesce()
			a.resyncOpenOrders()
		}
	}
}

// resyncOpenOrders retries the open-orders snapshot until it succeeds or
// the app shuts down, keeping the Gatekeeper quiesced the whole time -- an
// empty result from a failed fetch must never be mistaken for "nothing is
// open" and used to evict every genuinely in-flight cycle.
func (a *App) resyncOpenOrders() {
	backoff := a.cfg.SnapshotInitialBackoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}

	for {
		open, err := a.restClient.OpenOrders(a.ctx)
		if err == nil {
			stillOpen := make(map[string]bool, len(open))
			for _, o := range open {
				stillOpen[o.ClientOrderID] = true
			}
			a.gatekeeper.Resume(stillOpen)
			return
		}

		a.logger.Error("resync-open-orders-failed", zap.Error(err), zap.Duration("retry-in", backoff))

		select {
		case <-a.ctx.Done():
			return
		case <-time.After(backoff):
		}

		if backoff < a.cfg.SnapshotMaxBackoff {
			backoff *= 2
			if backoff > a.cfg.SnapshotMaxBackoff {
				backoff = a.cfg.SnapshotMaxBackoff
			}
		}
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
