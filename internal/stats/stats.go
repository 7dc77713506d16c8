package stats

import (
	"context"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
)

// Updater recomputes the aggregate stats of a collection
//
//go:generate mockgen -source=stats.go -destination=../mocks/stats.go -package=mocks -mock_names=Updater=MockStatsUpdater
type Updater interface {
	// Update recomputes holder count, supply, floor and volume and stores them on the collection
	Update(ctx context.Context, chain domain.Chain, contractAddress string) error
}

type updater struct {
	store store.Store
	clock adapter.Clock
}

// NewUpdater creates the STATS_UPDATE handler
func NewUpdater(st store.Store, clock adapter.Clock) Updater {
	return &updater{store: st, clock: clock}
}

func (u *updater) Update(ctx context.Context, chain domain.Chain, contractAddress string) error {
	stats, err := u.store.ComputeCollectionStats(ctx, chain, contractAddress, u.clock.Now())
	if err != nil {
		return err
	}

	if err := u.store.UpdateCollectionStats(ctx, chain, contractAddress, *stats); err != nil {
		return err
	}

	floor := ""
	if stats.FloorPrice.Valid {
		floor = stats.FloorPrice.Decimal.String()
	}
	logger.DebugCtx(ctx, "Collection stats updated",
		zap.String("chain", string(chain)),
		zap.String("contract_address", contractAddress),
		zap.Int64("holder_count", stats.HolderCount),
		zap.Int64("total_supply", stats.TotalSupply),
		zap.String("floor_price", floor),
		zap.String("total_volume", stats.TotalVolume.String()),
	)
	return nil
}
