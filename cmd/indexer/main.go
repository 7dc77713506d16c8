package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/api/server"
	"github.com/feral-file/ff-marketplace-mirror/internal/block"
	"github.com/feral-file/ff-marketplace-mirror/internal/bootstrap"
	"github.com/feral-file/ff-marketplace-mirror/internal/config"
	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/messaging"
	"github.com/feral-file/ff-marketplace-mirror/internal/mirror"
	"github.com/feral-file/ff-marketplace-mirror/internal/orchestrator"
	"github.com/feral-file/ff-marketplace-mirror/internal/providers/jetstream"
	"github.com/feral-file/ff-marketplace-mirror/internal/queue"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
	"github.com/feral-file/ff-marketplace-mirror/internal/sweeper"
	"github.com/feral-file/ff-marketplace-mirror/internal/webhook"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

const (
	// two event families are fetched side by side, the rest serves post-commit publishing
	backgroundPoolSize = 4
	webhookHTTPTimeout = 10 * time.Second
	metadataMaxElapsed = 30 * time.Second
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadIndexerConfig("indexer", *configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	chain, err := cfg.Starknet.Chain()
	if err != nil {
		panic(fmt.Sprintf("Invalid network: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		Level:           cfg.LogLevel,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "indexer",
			"chain":   string(chain),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting indexer", zap.String("chain", string(chain)))

	// Connect to database
	db, err := bootstrap.OpenDatabase(cfg.Database, cfg.Debug)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)
	dataStore := store.NewPGStore(db)

	clock := adapter.NewClock()

	// Starknet RPC
	limiter, err := bootstrap.NewLimiter(ctx, cfg.Starknet, cfg.Redis, clock)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create rate limiter", zap.Error(err))
	}
	defer limiter.Close()

	starknetClient, err := bootstrap.NewStarknetClient(ctx, cfg.Starknet, limiter)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create starknet client", zap.Error(err))
	}
	defer starknetClient.Close()
	logger.InfoCtx(ctx, "Connected to Starknet RPC",
		zap.String("marketplace", cfg.Starknet.MarketplaceContract),
		zap.String("collection", cfg.Starknet.CollectionContract),
	)

	head := block.NewHead(starknetClient, block.Config{
		TTL:         cfg.Starknet.BlockHeadTTL,
		StaleWindow: cfg.Starknet.BlockHeadStaleWindow,
	}, clock)

	// Optional JetStream publisher
	var publisher messaging.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream())
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
		}
		defer publisher.Close()
		logger.InfoCtx(ctx, "Publishing mirrored events to NATS", zap.String("stream", cfg.NATS.StreamName))
	}

	pool := pond.NewPool(backgroundPoolSize, pond.WithContext(ctx))
	defer pool.StopAndWait()

	jobQueue := queue.New(dataStore, clock)
	webhooks := webhook.NewService(dataStore, jobQueue, adapter.NewHTTPClient(webhookHTTPTimeout, 0), adapter.NewJCS(), clock)

	// Chain mirror
	chainMirror := mirror.New(mirror.Deps{
		Store:   dataStore,
		Cursors: store.NewCursorStore(dataStore, cfg.Starknet.StartBlock),
		Head:    head,
		Fetcher: mirror.NewFetcher(starknetClient, pool, mirror.FetcherConfig{
			MarketplaceContract: cfg.Starknet.MarketplaceContract,
			CollectionContract:  cfg.Starknet.CollectionContract,
			ChunkSize:           domain.DEFAULT_EVENTS_CHUNK_SIZE,
			MaxPages:            domain.MAX_EVENT_PAGES,
		}),
		Applier:   mirror.NewApplier(chain, starknetClient),
		Queue:     jobQueue,
		Notifier:  webhooks,
		Publisher: publisher,
		Pool:      pool,
		Clock:     clock,
	}, mirror.Config{
		Chain:         chain,
		BatchSize:     cfg.Mirror.BatchSize,
		PollInterval:  cfg.Mirror.PollInterval,
		MetadataBatch: cfg.Mirror.MetadataBatch,
	})

	// Job orchestrator
	jobs := orchestrator.New(jobQueue, clock, orchestrator.Config{PollInterval: cfg.Orchestrator.PollInterval})
	orchestrator.RegisterHandlers(jobs, bootstrap.JobHandlers(bootstrap.HandlerDeps{
		Store:      dataStore,
		Queue:      jobQueue,
		Client:     starknetClient,
		HTTPClient: adapter.NewHTTPClient(cfg.URI.FetchTimeout, metadataMaxElapsed),
		Webhooks:   webhooks,
		Clock:      clock,
		URI:        cfg.URI,
		Pinata:     cfg.Pinata,
	}))

	maintenance := sweeper.NewMaintenanceSweeper(sweeper.MaintenanceConfig{
		Chain:           chain,
		StaleJobTimeout: cfg.Orchestrator.StaleJobTimeout,
		ReaperSchedule:  cfg.Orchestrator.ReaperSchedule,
		ExpirySchedule:  cfg.Orchestrator.ExpirySchedule,
	}, dataStore, jobQueue, clock)

	opsServer := server.New(server.Config{
		Debug:        cfg.Debug,
		Address:      cfg.Server.Address(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Chain:        chain,
	}, dataStore, head)

	// Start the loops
	errChan := make(chan error, 4)
	go func() {
		if err := chainMirror.Run(ctx); err != nil {
			errChan <- fmt.Errorf("mirror stopped: %w", err)
		}
	}()
	go func() {
		if err := jobs.Run(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator stopped: %w", err)
		}
	}()
	go func() {
		if err := maintenance.Start(ctx); err != nil {
			errChan <- fmt.Errorf("maintenance sweeper stopped: %w", err)
		}
	}()
	go func() {
		if err := opsServer.Start(); err != nil {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.ErrorCtx(ctx, err)
	}

	// Cancel context to stop the loops
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := maintenance.Stop(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err)
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err)
	}

	logger.InfoCtx(shutdownCtx, "Indexer stopped")
}
