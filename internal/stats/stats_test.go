package stats_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/stats"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
	"github.com/feral-file/ff-marketplace-mirror/internal/testutil"
)

const (
	collection = "0x0000000000000000000000000000000000000000000000000000000000000c01"
	alice      = "0x00000000000000000000000000000000000000000000000000000000000a11ce"
	bob        = "0x0000000000000000000000000000000000000000000000000000000000000b0b"
	strk       = "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"
)

var testDB *testutil.TestDB

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}

	ctx := context.Background()
	var err error
	testDB, err = testutil.StartPostgres(ctx)
	if err != nil {
		fmt.Printf("Failed to set up test database: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	testDB.Terminate(ctx)
	os.Exit(code)
}

func setupStore(t *testing.T) store.Store {
	tx := testDB.DB.Begin()
	require.NoError(t, tx.Error)
	t.Cleanup(func() {
		tx.Rollback()
	})
	return store.NewPGStore(tx)
}

func listing(hash, tokenID string, price int64, endTime time.Time) store.UpsertOrderInput {
	symbol := "STRK"
	decimals := int32(18)
	contract := collection
	id := tokenID
	return store.UpsertOrderInput{
		Chain:                    domain.ChainStarknetMainnet,
		OrderHash:                hash,
		Offerer:                  alice,
		OfferItemType:            domain.ItemTypeERC721,
		OfferToken:               collection,
		OfferIdentifier:          tokenID,
		OfferStartAmount:         "1",
		OfferEndAmount:           "1",
		ConsiderationItemType:    domain.ItemTypeERC20,
		ConsiderationToken:       strk,
		ConsiderationIdentifier:  "0",
		ConsiderationStartAmount: decimal.NewFromInt(price).String(),
		ConsiderationEndAmount:   decimal.NewFromInt(price).String(),
		ConsiderationRecipient:   alice,
		StartTime:                endTime.Add(-48 * time.Hour).Unix(),
		EndTime:                  endTime.Unix(),
		NFTContract:              &contract,
		NFTTokenID:               &id,
		PriceRaw:                 decimal.NewNullDecimal(decimal.NewFromInt(price)),
		CurrencySymbol:           &symbol,
		CurrencyDecimals:         &decimals,
		BlockNumber:              500,
		TxHash:                   "0x" + hash[2:],
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	st := setupStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := testutil.NewFakeClock(now)
	updater := stats.NewUpdater(st, clock)

	require.NoError(t, st.EnsureCollection(ctx, domain.ChainStarknetMainnet, collection, 400))
	for id, owner := range map[string]string{"1": alice, "2": bob, "3": bob} {
		require.NoError(t, st.UpsertTokenOwner(ctx, store.EnsureTokenInput{
			Chain: domain.ChainStarknetMainnet, ContractAddress: collection, TokenID: id, Owner: owner,
		}))
	}
	require.NoError(t, st.UpsertOrder(ctx, listing("0x01", "1", 900, now.Add(time.Hour))))
	require.NoError(t, st.UpsertOrder(ctx, listing("0x02", "2", 1200, now.Add(72*time.Hour))))
	require.NoError(t, st.UpsertOrder(ctx, listing("0x03", "3", 4000, now.Add(72*time.Hour))))
	_, err := st.UpdateOrderStatus(ctx, store.UpdateOrderStatusInput{
		Chain: domain.ChainStarknetMainnet, OrderHash: "0x03", Status: schema.OrderStatusFulfilled,
	})
	require.NoError(t, err)

	require.NoError(t, updater.Update(ctx, domain.ChainStarknetMainnet, collection))

	c, err := st.GetCollection(ctx, domain.ChainStarknetMainnet, collection)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(2), c.HolderCount)
	assert.Equal(t, int64(3), c.TotalSupply)
	require.True(t, c.FloorPrice.Valid)
	assert.Equal(t, "900", c.FloorPrice.Decimal.String())
	require.NotNil(t, c.FloorCurrency)
	assert.Equal(t, "STRK", *c.FloorCurrency)
	assert.Equal(t, "4000", c.TotalVolume.String())

	t.Run("floor follows the clock", func(t *testing.T) {
		clock.Advance(2 * time.Hour)
		require.NoError(t, updater.Update(ctx, domain.ChainStarknetMainnet, collection))

		c, err := st.GetCollection(ctx, domain.ChainStarknetMainnet, collection)
		require.NoError(t, err)
		require.True(t, c.FloorPrice.Valid)
		assert.Equal(t, "1200", c.FloorPrice.Decimal.String())
	})

	t.Run("transfer to zero address leaves supply", func(t *testing.T) {
		_, err := st.UpdateTokenOwner(ctx, domain.ChainStarknetMainnet, collection, "1", domain.STARKNET_ZERO_ADDRESS)
		require.NoError(t, err)
		require.NoError(t, updater.Update(ctx, domain.ChainStarknetMainnet, collection))

		c, err := st.GetCollection(ctx, domain.ChainStarknetMainnet, collection)
		require.NoError(t, err)
		assert.Equal(t, int64(1), c.HolderCount)
		assert.Equal(t, int64(2), c.TotalSupply)
	})
}

func TestUpdate_UnknownCollection(t *testing.T) {
	st := setupStore(t)
	updater := stats.NewUpdater(st, testutil.NewFakeClock(time.Now()))

	// nothing to aggregate and no row to update
	require.NoError(t, updater.Update(context.Background(), domain.ChainStarknetMainnet, "0x0000000000000000000000000000000000000000000000000000000000000fff"))
}
