package block

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
)

// Head provides the latest chain block number, cached for a short TTL so the
// mirror loop and tools do not call starknet_blockNumber on every tick
//
//go:generate mockgen -source=head.go -destination=../mocks/block_head.go -package=mocks -mock_names=Head=MockHead
type Head interface {
	// Latest returns the latest block number, possibly from cache
	Latest(ctx context.Context) (uint64, error)
}

// Source reads the latest block number from the chain
//
//go:generate mockgen -source=head.go -destination=../mocks/block_head.go -package=mocks -mock_names=Source=MockHeadSource
type Source interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// Config holds configuration for the head cache
type Config struct {
	// TTL is how long a fetched block number is served without refetching
	TTL time.Duration

	// StaleWindow is how long a cached value may still be served when a refetch fails
	StaleWindow time.Duration
}

type cachedHead struct {
	number    uint64
	fetchedAt time.Time
}

type head struct {
	source Source
	config Config
	clock  adapter.Clock

	// refresh serializes fetches so concurrent callers share one RPC call
	refresh sync.Mutex
	mu      sync.RWMutex
	cached  *cachedHead
}

// NewHead creates a cached Head over source
func NewHead(source Source, config Config, clock adapter.Clock) Head {
	return &head{
		source: source,
		config: config,
		clock:  clock,
	}
}

func (h *head) load() *cachedHead {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cached
}

func (h *head) fresh(c *cachedHead, now time.Time) bool {
	return c != nil && now.Sub(c.fetchedAt) < h.config.TTL
}

// Latest returns the cached block number within TTL, otherwise fetches it.
// A failed fetch falls back to a cached value younger than the stale window.
func (h *head) Latest(ctx context.Context) (uint64, error) {
	now := h.clock.Now()
	if c := h.load(); h.fresh(c, now) {
		return c.number, nil
	}

	h.refresh.Lock()
	defer h.refresh.Unlock()

	// another caller may have refreshed while we waited
	cached := h.load()
	if h.fresh(cached, now) {
		return cached.number, nil
	}

	number, err := h.source.BlockNumber(ctx)
	if err != nil {
		if cached != nil && now.Sub(cached.fetchedAt) < h.config.StaleWindow {
			logger.WarnCtx(ctx, "Serving stale block number",
				zap.Uint64("block_number", cached.number),
				zap.Duration("age", now.Sub(cached.fetchedAt)),
				zap.Error(err))
			return cached.number, nil
		}
		return 0, fmt.Errorf("failed to fetch latest block and no valid cache available: %w", err)
	}

	// a lagging node must not move the head backwards
	if cached != nil && number < cached.number {
		logger.WarnCtx(ctx, "Chain head went backwards, keeping cached value",
			zap.Uint64("fetched", number),
			zap.Uint64("cached", cached.number))
		number = cached.number
	}

	h.mu.Lock()
	h.cached = &cachedHead{number: number, fetchedAt: now}
	h.mu.Unlock()

	return number, nil
}
