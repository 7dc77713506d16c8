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

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/block"
	"github.com/feral-file/ff-marketplace-mirror/internal/bootstrap"
	"github.com/feral-file/ff-marketplace-mirror/internal/config"
	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/mirror"
	"github.com/feral-file/ff-marketplace-mirror/internal/queue"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	fromBlock  = flag.Uint64("from", 0, "First block to replay (required)")
	toBlock    = flag.Uint64("to", 0, "Last block to replay, inclusive (defaults to the chain head)")
	batchSize  = flag.Uint64("batch", domain.DEFAULT_BLOCK_BATCH_SIZE, "Blocks per batch")
)

func main() {
	flag.Parse()

	config.ChdirRepoRoot()
	cfg, err := config.LoadIndexerConfig("backfill", *configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	chain, err := cfg.Starknet.Chain()
	if err != nil {
		panic(fmt.Sprintf("Invalid network: %v", err))
	}

	if err := logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		Level:     cfg.LogLevel,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "backfill",
			"chain":   string(chain),
		},
	}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)

	// interrupting stops after the batch in flight; nothing is half applied
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *fromBlock == 0 {
		logger.FatalCtx(ctx, "--from is required")
	}

	db, err := bootstrap.OpenDatabase(cfg.Database, cfg.Debug)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	dataStore := store.NewPGStore(db)

	clock := adapter.NewClock()

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

	head := block.NewHead(starknetClient, block.Config{TTL: cfg.Starknet.BlockHeadTTL}, clock)
	end := *toBlock
	if end == 0 {
		if end, err = head.Latest(ctx); err != nil {
			logger.FatalCtx(ctx, "Failed to read chain head", zap.Error(err))
		}
	}

	pool := pond.NewPool(2, pond.WithContext(ctx))
	defer pool.StopAndWait()

	jobQueue := queue.New(dataStore, clock)

	// derived jobs are enqueued; webhooks and NATS are not replayed
	chainMirror := mirror.New(mirror.Deps{
		Store:   dataStore,
		Cursors: store.NewCursorStore(dataStore, cfg.Starknet.StartBlock),
		Head:    head,
		Fetcher: mirror.NewFetcher(starknetClient, pool, mirror.FetcherConfig{
			MarketplaceContract: cfg.Starknet.MarketplaceContract,
			CollectionContract:  cfg.Starknet.CollectionContract,
		}),
		Applier: mirror.NewApplier(chain, starknetClient),
		Queue:   jobQueue,
		Pool:    pool,
		Clock:   clock,
	}, mirror.Config{
		Chain:         chain,
		BatchSize:     *batchSize,
		MetadataBatch: cfg.Mirror.MetadataBatch,
	})

	logger.InfoCtx(ctx, "Starting backfill",
		zap.String("chain", string(chain)),
		zap.Uint64("from_block", *fromBlock),
		zap.Uint64("to_block", end),
		zap.Uint64("batch", *batchSize),
	)

	started := time.Now()
	if err := chainMirror.Backfill(ctx, *fromBlock, end, *batchSize); err != nil {
		logger.FatalCtx(ctx, "Backfill failed", zap.Error(err))
	}

	logger.InfoCtx(ctx, "Backfill complete", zap.Duration("duration", time.Since(started)))
}
