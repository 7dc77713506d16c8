package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/bootstrap"
	"github.com/feral-file/ff-marketplace-mirror/internal/config"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/orchestrator"
	"github.com/feral-file/ff-marketplace-mirror/internal/queue"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
	"github.com/feral-file/ff-marketplace-mirror/internal/sweeper"
	"github.com/feral-file/ff-marketplace-mirror/internal/webhook"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadWorkerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	chain, err := cfg.Starknet.Chain()
	if err != nil {
		panic(fmt.Sprintf("Invalid network: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		Level:           cfg.LogLevel,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "worker",
			"chain":   string(chain),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting worker")

	db, err := bootstrap.OpenDatabase(cfg.Database, cfg.Debug)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	dataStore := store.NewPGStore(db)

	clock := adapter.NewClock()

	// token URIs are read on chain, so workers share the RPC budget with the indexer
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

	jobQueue := queue.New(dataStore, clock)
	webhooks := webhook.NewService(dataStore, jobQueue, adapter.NewHTTPClient(10*time.Second, 0), adapter.NewJCS(), clock)

	jobs := orchestrator.New(jobQueue, clock, orchestrator.Config{PollInterval: cfg.Orchestrator.PollInterval})
	orchestrator.RegisterHandlers(jobs, bootstrap.JobHandlers(bootstrap.HandlerDeps{
		Store:      dataStore,
		Queue:      jobQueue,
		Client:     starknetClient,
		HTTPClient: adapter.NewHTTPClient(cfg.URI.FetchTimeout, 30*time.Second),
		Webhooks:   webhooks,
		Clock:      clock,
		URI:        cfg.URI,
		Pinata:     cfg.Pinata,
	}))

	// order expiry stays with the indexer; workers only reap
	maintenance := sweeper.NewMaintenanceSweeper(sweeper.MaintenanceConfig{
		Chain:           chain,
		StaleJobTimeout: cfg.Orchestrator.StaleJobTimeout,
		ReaperSchedule:  cfg.Orchestrator.ReaperSchedule,
		ExpirySchedule:  "-",
	}, dataStore, jobQueue, clock)

	errChan := make(chan error, 2)
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

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.ErrorCtx(ctx, err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()

	if err := maintenance.Stop(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err)
	}

	logger.InfoCtx(shutdownCtx, "Worker stopped")
}
