package app

import (
	"context"
	"sync"

	"github.com/mselser95/triarb/internal/arbitrage"
	"github.com/mselser95/triarb/internal/dispatch"
	"github.com/mselser95/triarb/internal/gatekeeper"
	"github.com/mselser95/triarb/internal/monitor"
	"github.com/mselser95/triarb/internal/orderbook"
	"github.com/mselser95/triarb/internal/storage"
	"github.com/mselser95/triarb/internal/symbols"
	"github.com/mselser95/triarb/pkg/config"
	"github.com/mselser95/triarb/pkg/exchangerest"
	"github.com/mselser95/triarb/pkg/exchangews"
	"github.com/mselser95/triarb/pkg/healthprobe"
	"github.com/mselser95/triarb/pkg/httpserver"
	"github.com/mselser95/triarb/pkg/types"
	"go.uber.org/zap"
)

// App is the main application orchestrator. It wires the transport
// adapters (pkg/exchangews, pkg/exchangerest) to the four pipeline stages
// -- Synchronizer, Detector, Gatekeeper, Dispatcher -- and supervises their
// lifecycle alongside the HTTP server and monitoring registry.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	restClient *exchangerest.Client
	publicWS   *exchangews.PublicClient
	privateWS  *exchangews.PrivateClient

	universe *symbols.Universe
	book     *types.FullOrderbook

	synchronizer *orderbook.Synchronizer
	detector     *arbitrage.Detector
	gatekeeper   *gatekeeper.Gatekeeper
	dispatcher   *dispatch.Dispatcher

	monitorRegistry *monitor.Registry
	storage         storage.Storage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct{}
