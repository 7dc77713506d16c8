package mirror

import (
	"context"
	"fmt"
	"sort"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/providers/starknet"
)

// RawEvent is an emitted event together with its ordinal inside its block. FetchEvents numbers
// a single family; FetchRange renumbers the merged families.
type RawEvent struct {
	starknet.EmittedEvent
	LogIndex uint32
}

// Before reports whether e sorts before o in (blockNumber, logIndex) order
func (e RawEvent) Before(o RawEvent) bool {
	if e.BlockNumber != o.BlockNumber {
		return e.BlockNumber < o.BlockNumber
	}
	return e.LogIndex < o.LogIndex
}

// FetcherConfig holds the contracts and paging limits of the event fetcher
type FetcherConfig struct {
	MarketplaceContract string
	CollectionContract  string
	ChunkSize           int
	MaxPages            int
}

// Fetcher reads marketplace and collection events for a block range
//
//go:generate mockgen -source=fetcher.go -destination=../mocks/mirror_fetcher.go -package=mocks -mock_names=Fetcher=MockFetcher
type Fetcher interface {
	// FetchEvents pages through starknet_getEvents for one contract and key set
	FetchEvents(ctx context.Context, contract string, fromBlock, toBlock uint64, selectors []string) ([]RawEvent, error)
	// FetchRange fetches both event families in parallel and merges them in chain order
	FetchRange(ctx context.Context, fromBlock, toBlock uint64) ([]RawEvent, error)
}

type fetcher struct {
	client starknet.Client
	pool   pond.Pool
	config FetcherConfig
}

// NewFetcher creates a new event fetcher. The pool runs the two event families side by side.
func NewFetcher(client starknet.Client, pool pond.Pool, cfg FetcherConfig) Fetcher {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = domain.DEFAULT_EVENTS_CHUNK_SIZE
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = domain.MAX_EVENT_PAGES
	}
	return &fetcher{client: client, pool: pool, config: cfg}
}

// FetchEvents pages through starknet_getEvents until the continuation token runs out
// or the page ceiling is hit
func (f *fetcher) FetchEvents(ctx context.Context, contract string, fromBlock, toBlock uint64, selectors []string) ([]RawEvent, error) {
	var events []RawEvent
	var lastBlock uint64
	var ordinal uint32
	continuation := ""

	for page := 0; ; page++ {
		if page >= f.config.MaxPages {
			logger.WarnCtx(ctx, "Event page ceiling reached, remaining events in range are skipped",
				zap.String("contract", contract),
				zap.Uint64("from_block", fromBlock),
				zap.Uint64("to_block", toBlock),
				zap.Int("pages", page),
			)
			break
		}

		result, err := f.client.GetEvents(ctx, starknet.EventFilter{
			Address:           contract,
			FromBlock:         starknet.BlockID{BlockNumber: fromBlock},
			ToBlock:           starknet.BlockID{BlockNumber: toBlock},
			Keys:              [][]string{selectors},
			ChunkSize:         f.config.ChunkSize,
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get events of %s: %w", contract, err)
		}

		for _, e := range result.Events {
			if len(events) == 0 || e.BlockNumber != lastBlock {
				lastBlock = e.BlockNumber
				ordinal = 0
			}
			events = append(events, RawEvent{EmittedEvent: e, LogIndex: ordinal})
			ordinal++
		}

		if result.ContinuationToken == "" {
			break
		}
		continuation = result.ContinuationToken
	}

	return events, nil
}

// FetchRange fetches the marketplace family and the transfer family in parallel
func (f *fetcher) FetchRange(ctx context.Context, fromBlock, toBlock uint64) ([]RawEvent, error) {
	var marketplaceEvents, transferEvents []RawEvent

	group := f.pool.NewGroup()
	group.SubmitErr(func() error {
		events, err := f.FetchEvents(ctx, f.config.MarketplaceContract, fromBlock, toBlock, []string{
			starknet.SelectorOrderCreated,
			starknet.SelectorOrderFulfilled,
			starknet.SelectorOrderCancelled,
		})
		marketplaceEvents = events
		return err
	})
	group.SubmitErr(func() error {
		events, err := f.FetchEvents(ctx, f.config.CollectionContract, fromBlock, toBlock, []string{
			starknet.SelectorTransfer,
		})
		transferEvents = events
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return renumber(MergeEvents(marketplaceEvents, transferEvents)), nil
}

// renumber replaces the per-family ordinals of merged events with one ordinal per block,
// so a (blockNumber, logIndex) pair names a single event across both families
func renumber(events []RawEvent) []RawEvent {
	var ordinal uint32
	for i := range events {
		if i == 0 || events[i].BlockNumber != events[i-1].BlockNumber {
			ordinal = 0
		}
		events[i].LogIndex = ordinal
		ordinal++
	}
	return events
}

// MergeEvents concatenates event lists and stably sorts them by (blockNumber, logIndex)
func MergeEvents(lists ...[]RawEvent) []RawEvent {
	var merged []RawEvent
	for _, l := range lists {
		merged = append(merged, l...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Before(merged[j])
	})
	return merged
}
