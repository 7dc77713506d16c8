package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/bootstrap"
	"github.com/feral-file/ff-marketplace-mirror/internal/config"
	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	chainFlag  = flag.String("chain", "", "Chain to reset, e.g. STARKNET_MAINNET (defaults to the configured network)")
	blockFlag  = flag.Int64("block", -1, "Last processed block to set (defaults to the configured start block)")
)

func main() {
	flag.Parse()

	config.ChdirRepoRoot()
	cfg, err := config.LoadIndexerConfig("cursor-reset", *configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := logger.Initialize(logger.Config{Debug: cfg.Debug, Level: cfg.LogLevel}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)

	ctx := context.Background()

	chain := domain.Chain(*chainFlag)
	if chain == "" {
		chain, err = cfg.Starknet.Chain()
		if err != nil {
			logger.FatalCtx(ctx, "Invalid network", zap.Error(err))
		}
	}
	if !domain.IsValidChain(chain) {
		logger.FatalCtx(ctx, "Unknown chain", zap.String("chain", string(chain)))
	}

	toBlock := cfg.Starknet.StartBlock
	if *blockFlag >= 0 {
		toBlock = uint64(*blockFlag)
	}

	db, err := bootstrap.OpenDatabase(cfg.Database, cfg.Debug)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	dataStore := store.NewPGStore(db)
	cursors := store.NewCursorStore(dataStore, cfg.Starknet.StartBlock)

	before, err := cursors.Load(ctx, chain)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to load cursor", zap.Error(err))
	}

	if err := cursors.Reset(ctx, chain, toBlock); err != nil {
		logger.FatalCtx(ctx, "Failed to reset cursor", zap.Error(err))
	}

	logger.InfoCtx(ctx, "Cursor reset",
		zap.String("chain", string(chain)),
		zap.Uint64("from_block", before.LastBlock),
		zap.Uint64("to_block", toBlock),
	)
}
