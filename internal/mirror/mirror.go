package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/block"
	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/messaging"
	"github.com/feral-file/ff-marketplace-mirror/internal/metrics"
	"github.com/feral-file/ff-marketplace-mirror/internal/queue"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
	"github.com/feral-file/ff-marketplace-mirror/internal/webhook"
)

// Config holds the configuration of the chain mirror
type Config struct {
	Chain         domain.Chain
	BatchSize     uint64
	PollInterval  time.Duration
	MetadataBatch int
}

// TickResult summarizes one mirror cycle
type TickResult struct {
	FromBlock uint64
	ToBlock   uint64
	Events    int
	Dropped   int
	// Idle is set when the cursor had already caught up with the chain head
	Idle bool
}

// Mirror polls marketplace events and applies them to the database
type Mirror interface {
	// Tick runs one polling cycle from the persisted cursor
	Tick(ctx context.Context) (TickResult, error)
	// Run ticks until ctx is cancelled, sleeping between cycles
	Run(ctx context.Context) error
	// Backfill replays [fromBlock, toBlock] in batches without moving the cursor
	Backfill(ctx context.Context, fromBlock, toBlock, batchSize uint64) error
}

// Deps holds the collaborators of the mirror. Publisher may be nil.
type Deps struct {
	Store     store.Store
	Cursors   store.CursorStore
	Head      block.Head
	Fetcher   Fetcher
	Applier   Applier
	Queue     queue.Queue
	Notifier  webhook.Notifier
	Publisher messaging.Publisher
	// Pool runs best effort publishing after commit
	Pool  pond.Pool
	Clock adapter.Clock
}

type mirror struct {
	Deps
	config Config
}

// New creates a new chain mirror
func New(deps Deps, cfg Config) Mirror {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = domain.DEFAULT_BLOCK_BATCH_SIZE
	}
	if cfg.MetadataBatch <= 0 {
		cfg.MetadataBatch = domain.DEFAULT_METADATA_BATCH_SIZE
	}
	return &mirror{Deps: deps, config: cfg}
}

// Run ticks until ctx is cancelled. Errors of a cycle are logged and the same range
// is retried on the next cycle.
func (m *mirror) Run(ctx context.Context) error {
	chain := string(m.config.Chain)
	logger.InfoCtx(ctx, "Mirror starting",
		zap.String("chain", chain),
		zap.Uint64("batch_size", m.config.BatchSize),
		zap.Duration("poll_interval", m.config.PollInterval),
	)

	for {
		if ctx.Err() != nil {
			logger.InfoCtx(ctx, "Mirror stopped", zap.String("chain", chain))
			return nil
		}

		start := m.Clock.Now()
		result, err := m.Tick(ctx)
		metrics.TickDuration.WithLabelValues(chain).Observe(m.Clock.Since(start).Seconds())
		if err != nil && ctx.Err() == nil {
			metrics.TickErrors.WithLabelValues(chain).Inc()
			logger.ErrorCtx(ctx, fmt.Errorf("mirror tick failed: %w", err),
				zap.String("chain", chain),
				zap.Uint64("from_block", result.FromBlock),
				zap.Uint64("to_block", result.ToBlock),
			)
		}

		if err := m.Clock.Sleep(ctx, m.config.PollInterval); err != nil {
			logger.InfoCtx(ctx, "Mirror stopped", zap.String("chain", chain))
			return nil
		}
	}
}

// Tick runs one cycle: compute the range, fetch, decode, apply atomically with the
// cursor, then enqueue derived jobs and notify subscribers
func (m *mirror) Tick(ctx context.Context) (TickResult, error) {
	cursor, err := m.Cursors.Load(ctx, m.config.Chain)
	if err != nil {
		return TickResult{}, err
	}

	latest, err := m.Head.Latest(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("failed to get latest block: %w", err)
	}
	metrics.ChainHead.WithLabelValues(string(m.config.Chain)).Set(float64(latest))

	fromBlock, toBlock, ok := ComputeRange(cursor.LastBlock, latest, m.config.BatchSize)
	result := TickResult{FromBlock: fromBlock, ToBlock: toBlock}
	if !ok {
		logger.DebugCtx(ctx, "Caught up, nothing to index",
			zap.Uint64("from_block", fromBlock),
			zap.Uint64("latest_block", latest),
		)
		result.Idle = true
		return result, nil
	}

	logger.InfoCtx(ctx, "Indexing block range",
		zap.String("chain", string(m.config.Chain)),
		zap.Uint64("from_block", fromBlock),
		zap.Uint64("to_block", toBlock),
		zap.Uint64("latest_block", latest),
	)

	applied, dropped, err := m.processRange(ctx, fromBlock, toBlock, true)
	result.Events = applied
	result.Dropped = dropped
	if err != nil {
		return result, err
	}

	metrics.CursorBlock.WithLabelValues(string(m.config.Chain)).Set(float64(toBlock))
	logger.InfoCtx(ctx, "Batch complete",
		zap.Uint64("from_block", fromBlock),
		zap.Uint64("to_block", toBlock),
		zap.Int("events", applied),
		zap.Int("dropped", dropped),
	)
	return result, nil
}

// Backfill replays a block range through the same pipeline without moving the cursor
func (m *mirror) Backfill(ctx context.Context, fromBlock, toBlock, batchSize uint64) error {
	if fromBlock > toBlock {
		return fmt.Errorf("invalid range: from %d is after to %d", fromBlock, toBlock)
	}
	if batchSize == 0 {
		batchSize = m.config.BatchSize
	}

	total := 0
	for start := fromBlock; start <= toBlock; start += batchSize {
		end := min(start+batchSize-1, toBlock)

		applied, dropped, err := m.processRange(ctx, start, end, false)
		if err != nil {
			return fmt.Errorf("failed to backfill blocks %d-%d: %w", start, end, err)
		}
		total += applied

		logger.InfoCtx(ctx, "Backfill progress",
			zap.Uint64("from_block", start),
			zap.Uint64("to_block", end),
			zap.Int("events", applied),
			zap.Int("dropped", dropped),
			zap.Int("total_events", total),
		)

		// guards the uint64 increment at the top of the range
		if end == toBlock {
			break
		}
	}
	return nil
}

// ComputeRange returns the next range to index after lastBlock; ok is false when
// the cursor is already at the chain head
func ComputeRange(lastBlock, latest, batchSize uint64) (uint64, uint64, bool) {
	from := lastBlock + 1
	to := min(from+batchSize-1, latest)
	return from, to, from <= to
}

// processRange fetches, decodes and applies [fromBlock, toBlock]. When advance is set the
// cursor moves to toBlock in the same transaction as the event writes.
func (m *mirror) processRange(ctx context.Context, fromBlock, toBlock uint64, advance bool) (int, int, error) {
	raws, err := m.Fetcher.FetchRange(ctx, fromBlock, toBlock)
	if err != nil {
		return 0, 0, err
	}

	events, dropped := DecodeAll(raws)
	if dropped > 0 {
		metrics.EventsDropped.WithLabelValues(string(m.config.Chain)).Add(float64(dropped))
	}

	var touched []string
	err = m.Store.WithTx(ctx, func(tx store.Store) error {
		touched = touched[:0]
		seen := make(map[string]struct{})
		for _, event := range events {
			contract, err := m.Applier.Apply(ctx, tx, event)
			if err != nil {
				pos := event.Position()
				return fmt.Errorf("failed to apply %s at %d/%d: %w", event.Kind(), pos.BlockNumber, pos.LogIndex, err)
			}
			if contract == "" {
				continue
			}
			if _, ok := seen[contract]; !ok {
				seen[contract] = struct{}{}
				touched = append(touched, contract)
			}
		}

		if !advance {
			return nil
		}
		return m.Cursors.Save(ctx, store.Cursor{Chain: m.config.Chain, LastBlock: toBlock}, tx)
	})
	if err != nil {
		return 0, dropped, err
	}

	for _, event := range events {
		metrics.EventsApplied.WithLabelValues(string(m.config.Chain), event.Kind().String()).Inc()
	}

	m.enqueueDerived(ctx, touched)
	m.notify(ctx, events)

	return len(events), dropped, nil
}

// enqueueDerived queues metadata fetches for new tokens and a stats update per touched
// collection. The events are committed already, so failures are only logged.
func (m *mirror) enqueueDerived(ctx context.Context, contracts []string) {
	if len(contracts) == 0 {
		return
	}

	tokens, err := m.Store.GetPendingMetadataTokens(ctx, m.config.Chain, contracts, m.config.MetadataBatch)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to list pending metadata tokens: %w", err))
	}
	for _, t := range tokens {
		_, err := m.Queue.Enqueue(ctx, schema.JobTypeMetadataFetch, queue.MetadataFetchPayload{
			Chain:           m.config.Chain,
			ContractAddress: t.ContractAddress,
			TokenID:         t.TokenID,
		}, queue.EnqueueOptions{})
		if err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to enqueue metadata fetch: %w", err),
				zap.String("contract_address", t.ContractAddress),
				zap.String("token_id", t.TokenID),
			)
		}
	}

	for _, contract := range contracts {
		_, err := m.Queue.Enqueue(ctx, schema.JobTypeStatsUpdate, queue.StatsUpdatePayload{
			Chain:           m.config.Chain,
			ContractAddress: contract,
		}, queue.EnqueueOptions{})
		if err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to enqueue stats update: %w", err),
				zap.String("contract_address", contract),
			)
		}
	}
}

// notify fans events out to webhook subscribers and, when configured, publishes them
// on the event bus
func (m *mirror) notify(ctx context.Context, events []domain.Event) {
	for _, event := range events {
		eventType, payload := domain.NewEventPayload(event)
		if m.Notifier != nil {
			if err := m.Notifier.Fanout(ctx, eventType, payload); err != nil {
				logger.ErrorCtx(ctx, fmt.Errorf("failed to fan out webhook: %w", err),
					zap.String("event_type", string(eventType)),
					zap.String("tx_hash", payload.TxHash),
				)
			}
		}

		if m.Publisher == nil || m.Pool == nil {
			continue
		}
		event := event
		m.Pool.Submit(func() {
			if err := m.Publisher.PublishEvent(ctx, m.config.Chain, event); err != nil && !errors.Is(err, context.Canceled) {
				logger.WarnCtx(ctx, "Failed to publish mirrored event",
					zap.Error(err),
					zap.String("kind", event.Kind().String()),
					zap.String("tx_hash", event.Position().TxHash),
				)
			}
		})
	}
}
