// Package bootstrap builds the collaborators shared by the command binaries from
// loaded configuration.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/config"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/metadata"
	"github.com/feral-file/ff-marketplace-mirror/internal/orchestrator"
	"github.com/feral-file/ff-marketplace-mirror/internal/providers/pinata"
	"github.com/feral-file/ff-marketplace-mirror/internal/providers/starknet"
	"github.com/feral-file/ff-marketplace-mirror/internal/queue"
	"github.com/feral-file/ff-marketplace-mirror/internal/ratelimit"
	"github.com/feral-file/ff-marketplace-mirror/internal/stats"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
	"github.com/feral-file/ff-marketplace-mirror/internal/uri"
	"github.com/feral-file/ff-marketplace-mirror/internal/webhook"
)

const (
	rpcLimiterName = "starknet-rpc"

	// while redis is down each process gets this share of the shared budget
	localFallbackMultiplier = 0.5
)

// OpenDatabase connects gorm to Postgres and applies the pool settings
func OpenDatabase(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: store.NewGormLogger(level, cfg.SlowQueryThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := store.ConfigureConnectionPool(db, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime); err != nil {
		return nil, fmt.Errorf("failed to configure connection pool: %w", err)
	}
	return db, nil
}

// NewLimiter returns the RPC rate limiter. The budget is shared through redis when an
// address is configured, otherwise it applies per process.
func NewLimiter(ctx context.Context, sn config.StarknetConfig, rc config.RedisConfig, clock adapter.Clock) (ratelimit.Limiter, error) {
	cfg := ratelimit.Config{
		Name:                    rpcLimiterName,
		RequestsPerSecond:       sn.RequestsPerSecond,
		Burst:                   sn.RequestsBurst,
		KeyPrefix:               rc.KeyPrefix,
		LocalFallbackMultiplier: localFallbackMultiplier,
	}
	if rc.Addr == "" {
		return ratelimit.NewLocalLimiter(cfg)
	}

	logger.InfoCtx(ctx, "Using distributed RPC rate limiter", zap.String("redis_addr", rc.Addr))
	return ratelimit.NewDistributedLimiter(ctx, cfg, adapter.NewRedisClient(rc.Addr, rc.Password, rc.DB), clock)
}

// NewStarknetClient dials the RPC endpoint and wraps it with retries and the limiter
func NewStarknetClient(ctx context.Context, cfg config.StarknetConfig, limiter ratelimit.Limiter) (starknet.Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("starknet.rpc_url is required")
	}

	rpcClient, err := adapter.DialRPC(ctx, cfg.RPCURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial starknet rpc: %w", err)
	}

	return starknet.NewClient(rpcClient, limiter, starknet.Config{
		MarketplaceContract: cfg.MarketplaceContract,
		Timeout:             cfg.RPCTimeout,
		MaxRetries:          cfg.RPCMaxRetries,
	}), nil
}

// IPFSGateways returns the configured gateways, or the defaults led by the Pinata gateway
func IPFSGateways(uc config.URIConfig, pc config.PinataConfig) []string {
	if len(uc.IPFSGateways) > 0 {
		return uc.IPFSGateways
	}
	return uri.DefaultIPFSGateways(pc.Gateway)
}

// HandlerDeps holds what the job handlers need
type HandlerDeps struct {
	Store      store.Store
	Queue      queue.Queue
	Client     starknet.Client
	HTTPClient adapter.HTTPClient
	Webhooks   *webhook.Service
	Clock      adapter.Clock
	URI        config.URIConfig
	Pinata     config.PinataConfig
}

// JobHandlers builds the handler of every job type
func JobHandlers(d HandlerDeps) orchestrator.Handlers {
	uriResolver := uri.NewResolver(&uri.Config{IPFSGateways: IPFSGateways(d.URI, d.Pinata)})
	resolver := metadata.NewResolver(d.Store, d.HTTPClient, uriResolver, d.Clock)

	return orchestrator.Handlers{
		Metadata: metadata.NewFetcher(d.Store, d.Client, resolver, uri.NewDataURIChecker(), d.Queue, metadata.FetcherConfig{
			Timeout: d.URI.FetchTimeout,
		}),
		Pinner: pinata.NewClient(d.HTTPClient, pinata.Config{
			JWT:    d.Pinata.JWT,
			APIURL: d.Pinata.APIURL,
		}),
		Stats:    stats.NewUpdater(d.Store, d.Clock),
		Webhooks: d.Webhooks,
	}
}
