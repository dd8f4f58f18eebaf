package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/triarb/internal/arbitrage"
	"github.com/mselser95/triarb/internal/dispatch"
	"github.com/mselser95/triarb/internal/gatekeeper"
	"github.com/mselser95/triarb/internal/monitor"
	"github.com/mselser95/triarb/internal/orderbook"
	"github.com/mselser95/triarb/internal/storage"
	"github.com/mselser95/triarb/internal/symbols"
	"github.com/mselser95/triarb/pkg/cache"
	"github.com/mselser95/triarb/pkg/config"
	"github.com/mselser95/triarb/pkg/exchangerest"
	"github.com/mselser95/triarb/pkg/exchangews"
	"github.com/mselser95/triarb/pkg/healthprobe"
	"github.com/mselser95/triarb/pkg/httpserver"
	"github.com/mselser95/triarb/pkg/types"
)

// New creates a new application instance, loading the symbol universe and
// wiring every pipeline stage. It does not start any goroutines -- call
// Run for that.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	appCtx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	restClient := setupRESTClient(cfg, logger)

	metaCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	universe, err := symbols.Load(ctx, symbols.Config{
		Client:      restClient,
		Cache:       metaCache,
		CacheTTL:    0, // symbol metadata does not expire for the process lifetime
		BaseAsset:   cfg.BaseAsset,
		QuoteAssets: cfg.QuoteAssets,
		Logger:      logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load symbol universe: %w", err)
	}

	book := types.NewFullOrderbook()

	arbStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	publicWS := setupPublicWS(cfg, logger)
	privateWS := setupPrivateWS(cfg, logger)

	monitorRegistry := monitor.New(monitor.Config{
		Interval: cfg.MonitorSampleInterval,
		Logger:   logger,
	})

	synchronizer := orderbook.New(orderbook.Config{
		Book:                   book,
		Fetcher:                restClient,
		Depth:                  cfg.SnapshotDepth,
		Workers:                cfg.SynchronizerWorkers,
		SnapshotInitialBackoff: cfg.SnapshotInitialBackoff,
		SnapshotMaxBackoff:     cfg.SnapshotMaxBackoff,
		Logger:                 logger,
		DeltaCounter:           monitorRegistry.Register("delta-in"),
		TopOfBookCounter:       monitorRegistry.Register("top-of-book"),
	})

	detector := arbitrage.New(arbitrage.Config{
		Universe:        universe,
		FeeRate:         cfg.FeeRate,
		ThresholdBps:    cfg.ProfitThresholdBPS,
		NotionalCeiling: cfg.NotionalCeiling,
		Logger:          logger,
		ChanceCounter:   monitorRegistry.Register("chance"),
	})

	gk := gatekeeper.New(gatekeeper.Config{
		GlobalBudget:             cfg.GlobalBudget,
		FreshnessWindow:          cfg.FreshnessWindow,
		Cooldown:                 cfg.Cooldown,
		AckTimeout:               cfg.AckTimeout,
		ForcedEvictionMultiplier: cfg.ForcedEvictionMultiplier,
		Logger:                   logger,
	})

	dispatcher := dispatch.New(dispatch.Config{
		Placer:       restClient,
		RetryCount:   cfg.DispatchRetryCount,
		RetryBackoff: cfg.DispatchRetryBackoff,
		Logger:       logger,
		OrderCounter: monitorRegistry.Register("order"),
	})

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Book:          book,
		Universe:      universe,
	})

	return &App{
		cfg:             cfg,
		logger:          logger,
		healthChecker:   healthChecker,
		httpServer:      httpServer,
		restClient:      restClient,
		publicWS:        publicWS,
		privateWS:       privateWS,
		universe:        universe,
		book:            book,
		synchronizer:    synchronizer,
		detector:        detector,
		gatekeeper:      gk,
		dispatcher:      dispatcher,
		monitorRegistry: monitorRegistry,
		storage:         arbStorage,
		ctx:             appCtx,
		cancel:          cancel,
	}, nil
}

func setupRESTClient(cfg *config.Config, logger *zap.Logger) *exchangerest.Client {
	creds := exchangerest.Credentials{
		APIKey:     cfg.ExchangeAPIKey,
		Secret:     cfg.ExchangeSecret,
		Passphrase: cfg.ExchangePassphrase,
	}
	return exchangerest.NewClient(cfg.RESTBaseURL, creds, logger)
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupPublicWS(cfg *config.Config, logger *zap.Logger) *exchangews.PublicClient {
	return exchangews.NewPublicClient(exchangews.Config{
		URL:                   cfg.WSPublicURL,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		MessageBufferSize:     cfg.WSMessageBufferSize,
		SubscriptionBatchSize: cfg.SubscriptionBatchSize,
		Logger:                logger,
	})
}

func setupPrivateWS(cfg *config.Config, logger *zap.Logger) *exchangews.PrivateClient {
	return exchangews.NewPrivateClient(exchangews.Config{
		URL:                   cfg.WSPrivateURL,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		MessageBufferSize:     cfg.WSMessageBufferSize,
		Logger:                logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}
