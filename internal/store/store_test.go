package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
)

const (
	testChain      = domain.ChainStarknetMainnet
	testCollection = "0x05e73b7be06d82beeb390a0e0d655f2c9e7cf519658e04f05d9c690ccc41da03"
	testAlice      = "0x0000000000000000000000000000000000000000000000000000000000000a11"
	testBob        = "0x0000000000000000000000000000000000000000000000000000000000000b0b"
	testUSDC       = "0x053c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8"

	activeTenantEndpoint    = "aaaaaaaa-0000-0000-0000-000000000001"
	transferOnlyEndpoint    = "aaaaaaaa-0000-0000-0000-000000000002"
	disabledEndpoint        = "aaaaaaaa-0000-0000-0000-000000000003"
	suspendedTenantEndpoint = "aaaaaaaa-0000-0000-0000-000000000004"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func stringPtr(s string) *string {
	return &s
}

func int32Ptr(i int32) *int32 {
	return &i
}

// buildTestOrder creates an ACTIVE ERC721-for-USDC order input
func buildTestOrder(orderHash, tokenID string, price int64, endTime int64) UpsertOrderInput {
	return UpsertOrderInput{
		Chain:                    testChain,
		OrderHash:                orderHash,
		Offerer:                  testAlice,
		OfferItemType:            domain.ItemTypeERC721,
		OfferToken:               testCollection,
		OfferIdentifier:          tokenID,
		OfferStartAmount:         "1",
		OfferEndAmount:           "1",
		ConsiderationItemType:    domain.ItemTypeERC20,
		ConsiderationToken:       testUSDC,
		ConsiderationIdentifier:  "0",
		ConsiderationStartAmount: decimal.NewFromInt(price).String(),
		ConsiderationEndAmount:   decimal.NewFromInt(price).String(),
		ConsiderationRecipient:   testAlice,
		StartTime:                time.Now().Add(-time.Hour).Unix(),
		EndTime:                  endTime,
		NFTContract:              stringPtr(testCollection),
		NFTTokenID:               stringPtr(tokenID),
		PriceRaw:                 decimal.NewNullDecimal(decimal.NewFromInt(price)),
		CurrencySymbol:           stringPtr("USDC"),
		CurrencyDecimals:         int32Ptr(6),
		BlockNumber:              100,
		TxHash:                   "0xabc",
	}
}

func buildTestJob(jobType schema.JobType, processAfter time.Time) *schema.Job {
	return &schema.Job{
		ID:           ulid.Make().String(),
		Type:         jobType,
		Payload:      datatypes.JSON(`{"cid":"bafy"}`),
		Status:       schema.JobStatusPending,
		MaxAttempts:  3,
		ProcessAfter: processAfter,
	}
}

// =============================================================================
// Cursor
// =============================================================================

func testCursor(t *testing.T, store Store) {
	ctx := context.Background()
	cursors := NewCursorStore(store, 6204232)

	t.Run("load without saved cursor returns start block", func(t *testing.T) {
		cursor, err := cursors.Load(ctx, domain.ChainStarknetSepolia)
		require.NoError(t, err)
		assert.Equal(t, uint64(6204232), cursor.LastBlock)
		assert.Nil(t, cursor.ContinuationToken)
	})

	t.Run("save then load", func(t *testing.T) {
		err := cursors.Save(ctx, Cursor{Chain: testChain, LastBlock: 7000000}, nil)
		require.NoError(t, err)

		cursor, err := cursors.Load(ctx, testChain)
		require.NoError(t, err)
		assert.Equal(t, uint64(7000000), cursor.LastBlock)

		err = cursors.Save(ctx, Cursor{Chain: testChain, LastBlock: 7000500}, nil)
		require.NoError(t, err)

		cursor, err = cursors.Load(ctx, testChain)
		require.NoError(t, err)
		assert.Equal(t, uint64(7000500), cursor.LastBlock)
	})

	t.Run("save inside a rolled back transaction is discarded", func(t *testing.T) {
		require.NoError(t, cursors.Reset(ctx, testChain, 100))

		rollback := errors.New("rollback")
		err := store.WithTx(ctx, func(tx Store) error {
			if err := cursors.Save(ctx, Cursor{Chain: testChain, LastBlock: 600}, tx); err != nil {
				return err
			}
			return rollback
		})
		assert.ErrorIs(t, err, rollback)

		cursor, err := cursors.Load(ctx, testChain)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), cursor.LastBlock)
	})

	t.Run("reset moves cursor backwards", func(t *testing.T) {
		require.NoError(t, cursors.Reset(ctx, testChain, 9000))
		require.NoError(t, cursors.Reset(ctx, testChain, 10))

		cursor, err := cursors.Load(ctx, testChain)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), cursor.LastBlock)
	})
}

// =============================================================================
// Orders
// =============================================================================

func testOrders(t *testing.T, store Store) {
	ctx := context.Background()
	future := time.Now().Add(24 * time.Hour).Unix()

	t.Run("upsert creates ACTIVE order", func(t *testing.T) {
		require.NoError(t, store.UpsertOrder(ctx, buildTestOrder("0x1", "1", 1000000, future)))

		order, err := store.GetOrderByHash(ctx, testChain, "0x1")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, schema.OrderStatusActive, order.Status)
		assert.Equal(t, testAlice, order.Offerer)
		assert.Equal(t, "ERC721", order.OfferItemType)
		assert.True(t, order.PriceRaw.Valid)
		assert.Equal(t, "1000000", order.PriceRaw.Decimal.String())
		assert.Equal(t, "USDC", *order.CurrencySymbol)
		assert.Equal(t, int32(6), *order.CurrencyDecimals)
	})

	t.Run("upsert on conflict refreshes price but keeps status", func(t *testing.T) {
		require.NoError(t, store.UpsertOrder(ctx, buildTestOrder("0x2", "2", 500, future)))
		ok, err := store.UpdateOrderStatus(ctx, UpdateOrderStatusInput{
			Chain:           testChain,
			OrderHash:       "0x2",
			Status:          schema.OrderStatusCancelled,
			CancelledTxHash: stringPtr("0xcancel"),
		})
		require.NoError(t, err)
		require.True(t, ok)

		input := buildTestOrder("0x2", "2", 700, future)
		input.Offerer = testBob
		require.NoError(t, store.UpsertOrder(ctx, input))

		order, err := store.GetOrderByHash(ctx, testChain, "0x2")
		require.NoError(t, err)
		assert.Equal(t, schema.OrderStatusCancelled, order.Status)
		assert.Equal(t, testBob, order.Offerer)
		assert.Equal(t, "700", order.PriceRaw.Decimal.String())
		assert.Equal(t, "0xcancel", *order.CancelledTxHash)
	})

	t.Run("fulfil records fulfiller", func(t *testing.T) {
		require.NoError(t, store.UpsertOrder(ctx, buildTestOrder("0x3", "3", 500, future)))
		ok, err := store.UpdateOrderStatus(ctx, UpdateOrderStatusInput{
			Chain:           testChain,
			OrderHash:       "0x3",
			Status:          schema.OrderStatusFulfilled,
			Fulfiller:       stringPtr(testBob),
			FulfilledTxHash: stringPtr("0xfill"),
		})
		require.NoError(t, err)
		assert.True(t, ok)

		order, err := store.GetOrderByHash(ctx, testChain, "0x3")
		require.NoError(t, err)
		assert.Equal(t, schema.OrderStatusFulfilled, order.Status)
		assert.Equal(t, testBob, *order.Fulfiller)
		assert.Equal(t, "0xfill", *order.FulfilledTxHash)
	})

	t.Run("status update of unknown order is a miss", func(t *testing.T) {
		ok, err := store.UpdateOrderStatus(ctx, UpdateOrderStatusInput{
			Chain:     testChain,
			OrderHash: "0xdead",
			Status:    schema.OrderStatusFulfilled,
		})
		require.NoError(t, err)
		assert.False(t, ok)

		order, err := store.GetOrderByHash(ctx, testChain, "0xdead")
		require.NoError(t, err)
		assert.Nil(t, order)
	})

	t.Run("expire orders past end time", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, store.UpsertOrder(ctx, buildTestOrder("0x4", "4", 10, now.Add(-time.Minute).Unix())))
		require.NoError(t, store.UpsertOrder(ctx, buildTestOrder("0x5", "5", 10, now.Add(time.Hour).Unix())))

		count, contracts, err := store.ExpireOrders(ctx, testChain, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, []string{testCollection}, contracts)

		expired, err := store.GetOrderByHash(ctx, testChain, "0x4")
		require.NoError(t, err)
		assert.Equal(t, schema.OrderStatusExpired, expired.Status)

		active, err := store.GetOrderByHash(ctx, testChain, "0x5")
		require.NoError(t, err)
		assert.Equal(t, schema.OrderStatusActive, active.Status)

		count, contracts, err = store.ExpireOrders(ctx, testChain, now)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Empty(t, contracts)
	})
}

// =============================================================================
// Collections & tokens
// =============================================================================

func testCollectionsAndTokens(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, testChain, testCollection, 100))

	t.Run("ensure collection keeps first start block", func(t *testing.T) {
		require.NoError(t, store.EnsureCollection(ctx, testChain, testCollection, 200))

		collection, err := store.GetCollection(ctx, testChain, testCollection)
		require.NoError(t, err)
		require.NotNil(t, collection)
		assert.Equal(t, uint64(100), collection.StartBlock)
		assert.True(t, collection.TotalVolume.IsZero())
		assert.False(t, collection.FloorPrice.Valid)
	})

	t.Run("ensure token does not change owner", func(t *testing.T) {
		input := EnsureTokenInput{Chain: testChain, ContractAddress: testCollection, TokenID: "1", Owner: testAlice}
		require.NoError(t, store.EnsureToken(ctx, input))
		input.Owner = testBob
		require.NoError(t, store.EnsureToken(ctx, input))

		token, err := store.GetToken(ctx, testChain, testCollection, "1")
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, testAlice, token.Owner)
		assert.Equal(t, schema.MetadataStatusPending, token.MetadataStatus)
	})

	t.Run("upsert token owner changes owner", func(t *testing.T) {
		input := EnsureTokenInput{Chain: testChain, ContractAddress: testCollection, TokenID: "2", Owner: testAlice}
		require.NoError(t, store.UpsertTokenOwner(ctx, input))
		input.Owner = testBob
		require.NoError(t, store.UpsertTokenOwner(ctx, input))

		token, err := store.GetToken(ctx, testChain, testCollection, "2")
		require.NoError(t, err)
		assert.Equal(t, testBob, token.Owner)
	})

	t.Run("update owner of unknown token is a miss", func(t *testing.T) {
		ok, err := store.UpdateTokenOwner(ctx, testChain, testCollection, "999", testBob)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("token requires collection", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx Store) error {
			return tx.EnsureToken(ctx, EnsureTokenInput{
				Chain:           testChain,
				ContractAddress: "0x0000000000000000000000000000000000000000000000000000000000000123",
				TokenID:         "1",
				Owner:           testAlice,
			})
		})
		assert.Error(t, err)
	})

	t.Run("metadata lifecycle", func(t *testing.T) {
		input := EnsureTokenInput{Chain: testChain, ContractAddress: testCollection, TokenID: "3", Owner: testAlice}
		require.NoError(t, store.EnsureToken(ctx, input))

		pending, err := store.GetPendingMetadataTokens(ctx, testChain, []string{testCollection}, 200)
		require.NoError(t, err)
		var ids []string
		for _, tk := range pending {
			ids = append(ids, tk.TokenID)
		}
		assert.Contains(t, ids, "3")

		ok, err := store.MarkTokenMetadataFetching(ctx, testChain, testCollection, "3")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.MarkTokenMetadataFetching(ctx, testChain, testCollection, "3")
		require.NoError(t, err)
		assert.False(t, ok, "only PENDING tokens move to FETCHING")

		err = store.UpdateTokenMetadata(ctx, UpdateTokenMetadataInput{
			Chain:           testChain,
			ContractAddress: testCollection,
			TokenID:         "3",
			TokenURI:        "ipfs://bafy/3.json",
			Name:            stringPtr("Asset #3"),
			Image:           stringPtr("ipfs://bafy/3.png"),
			Attributes:      datatypes.JSON(`[{"trait_type":"kind","value":"song"}]`),
			LicenseType:     stringPtr("CC-BY"),
		})
		require.NoError(t, err)

		token, err := store.GetToken(ctx, testChain, testCollection, "3")
		require.NoError(t, err)
		assert.Equal(t, schema.MetadataStatusFetched, token.MetadataStatus)
		assert.Equal(t, "ipfs://bafy/3.json", *token.TokenURI)
		assert.Equal(t, "Asset #3", *token.Name)
		assert.Equal(t, "CC-BY", *token.LicenseType)
		assert.JSONEq(t, `[{"trait_type":"kind","value":"song"}]`, string(token.Attributes))

		pending, err = store.GetPendingMetadataTokens(ctx, testChain, []string{testCollection}, 200)
		require.NoError(t, err)
		for _, tk := range pending {
			assert.NotEqual(t, "3", tk.TokenID)
		}
	})

	t.Run("set metadata status records uri", func(t *testing.T) {
		input := EnsureTokenInput{Chain: testChain, ContractAddress: testCollection, TokenID: "4", Owner: testAlice}
		require.NoError(t, store.EnsureToken(ctx, input))

		err := store.SetTokenMetadataStatus(ctx, testChain, testCollection, "4", schema.MetadataStatusFailed, stringPtr("https://broken"))
		require.NoError(t, err)

		token, err := store.GetToken(ctx, testChain, testCollection, "4")
		require.NoError(t, err)
		assert.Equal(t, schema.MetadataStatusFailed, token.MetadataStatus)
		assert.Equal(t, "https://broken", *token.TokenURI)
	})

	t.Run("pending tokens with empty contract list", func(t *testing.T) {
		tokens, err := store.GetPendingMetadataTokens(ctx, testChain, nil, 200)
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})
}

func testCollectionStats(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.EnsureCollection(ctx, testChain, testCollection, 100))
	for id, owner := range map[string]string{"1": testAlice, "2": testAlice, "3": testBob, "4": domain.STARKNET_ZERO_ADDRESS} {
		require.NoError(t, store.UpsertTokenOwner(ctx, EnsureTokenInput{
			Chain: testChain, ContractAddress: testCollection, TokenID: id, Owner: owner,
		}))
	}

	// active floor candidates
	require.NoError(t, store.UpsertOrder(ctx, buildTestOrder("0xa1", "1", 300, now.Add(time.Hour).Unix())))
	require.NoError(t, store.UpsertOrder(ctx, buildTestOrder("0xa2", "2", 200, now.Add(time.Hour).Unix())))
	// active but already ended, ignored for floor
	require.NoError(t, store.UpsertOrder(ctx, buildTestOrder("0xa3", "3", 50, now.Add(-time.Hour).Unix())))
	// fulfilled, counted as volume
	for hash, price := range map[string]int64{"0xf1": 1000, "0xf2": 2500} {
		require.NoError(t, store.UpsertOrder(ctx, buildTestOrder(hash, "1", price, now.Add(time.Hour).Unix())))
		_, err := store.UpdateOrderStatus(ctx, UpdateOrderStatusInput{Chain: testChain, OrderHash: hash, Status: schema.OrderStatusFulfilled})
		require.NoError(t, err)
	}

	stats, err := store.ComputeCollectionStats(ctx, testChain, testCollection, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.HolderCount)
	assert.Equal(t, int64(3), stats.TotalSupply)
	require.True(t, stats.FloorPrice.Valid)
	assert.Equal(t, "200", stats.FloorPrice.Decimal.String())
	require.NotNil(t, stats.FloorCurrency)
	assert.Equal(t, "USDC", *stats.FloorCurrency)
	assert.Equal(t, "3500", stats.TotalVolume.String())

	require.NoError(t, store.UpdateCollectionStats(ctx, testChain, testCollection, *stats))

	collection, err := store.GetCollection(ctx, testChain, testCollection)
	require.NoError(t, err)
	assert.Equal(t, int64(2), collection.HolderCount)
	assert.Equal(t, int64(3), collection.TotalSupply)
	assert.Equal(t, "200", collection.FloorPrice.Decimal.String())
	assert.Equal(t, "3500", collection.TotalVolume.String())
	assert.NotNil(t, collection.StatsUpdatedAt)

	t.Run("empty collection has no floor", func(t *testing.T) {
		other := "0x0000000000000000000000000000000000000000000000000000000000000456"
		require.NoError(t, store.EnsureCollection(ctx, testChain, other, 1))

		stats, err := store.ComputeCollectionStats(ctx, testChain, other, now)
		require.NoError(t, err)
		assert.Zero(t, stats.HolderCount)
		assert.Zero(t, stats.TotalSupply)
		assert.False(t, stats.FloorPrice.Valid)
		assert.Nil(t, stats.FloorCurrency)
		assert.True(t, stats.TotalVolume.IsZero())
	})
}

// =============================================================================
// Transfers
// =============================================================================

func testTransfers(t *testing.T, store Store) {
	ctx := context.Background()

	input := CreateTransferInput{
		Chain:           testChain,
		ContractAddress: testCollection,
		TokenID:         "1",
		FromAddress:     domain.STARKNET_ZERO_ADDRESS,
		ToAddress:       testAlice,
		BlockNumber:     100,
		TxHash:          "0xmint",
		LogIndex:        0,
	}
	require.NoError(t, store.CreateTransfer(ctx, input))

	t.Run("replay returns duplicate and keeps transaction usable", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx Store) error {
			err := tx.CreateTransfer(ctx, input)
			assert.ErrorIs(t, err, domain.ErrDuplicate)

			next := input
			next.FromAddress = testAlice
			next.ToAddress = testBob
			next.BlockNumber = 101
			next.TxHash = "0xsend"
			return tx.CreateTransfer(ctx, next)
		})
		require.NoError(t, err)

		transfers, err := store.GetTransfers(ctx, testChain, testCollection, "1")
		require.NoError(t, err)
		require.Len(t, transfers, 2)
		assert.Equal(t, uint64(100), transfers[0].BlockNumber)
		assert.Equal(t, testBob, transfers[1].ToAddress)
	})

	t.Run("same tx different log index is not a replay", func(t *testing.T) {
		next := input
		next.LogIndex = 1
		require.NoError(t, store.CreateTransfer(ctx, next))
	})
}

// =============================================================================
// Jobs
// =============================================================================

func testJobs(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Now()

	t.Run("next pending job honours process_after ordering", func(t *testing.T) {
		later := buildTestJob(schema.JobTypeMetadataPin, now.Add(-time.Minute))
		earlier := buildTestJob(schema.JobTypeStatsUpdate, now.Add(-time.Hour))
		future := buildTestJob(schema.JobTypeStatsUpdate, now.Add(time.Hour))
		for _, j := range []*schema.Job{later, earlier, future} {
			require.NoError(t, store.CreateJob(ctx, j))
		}

		job, err := store.GetNextPendingJob(ctx, now)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, earlier.ID, job.ID)

		claimed, err := store.ClaimJob(ctx, earlier.ID)
		require.NoError(t, err)
		assert.True(t, claimed)

		claimed, err = store.ClaimJob(ctx, earlier.ID)
		require.NoError(t, err)
		assert.False(t, claimed)

		job, err = store.GetJob(ctx, earlier.ID)
		require.NoError(t, err)
		assert.Equal(t, schema.JobStatusProcessing, job.Status)
		assert.Equal(t, 1, job.Attempts)

		job, err = store.GetNextPendingJob(ctx, now)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, later.ID, job.ID)
	})

	t.Run("duplicate job id", func(t *testing.T) {
		job := buildTestJob(schema.JobTypeMetadataPin, now)
		require.NoError(t, store.CreateJob(ctx, job))

		err := store.WithTx(ctx, func(tx Store) error {
			dup := *job
			return tx.CreateJob(ctx, &dup)
		})
		assert.ErrorIs(t, err, domain.ErrDuplicate)
	})

	t.Run("reschedule, complete and fail", func(t *testing.T) {
		job := buildTestJob(schema.JobTypeMetadataPin, now.Add(-time.Second))
		require.NoError(t, store.CreateJob(ctx, job))
		_, err := store.ClaimJob(ctx, job.ID)
		require.NoError(t, err)

		next := now.Add(5 * time.Second)
		require.NoError(t, store.RescheduleJob(ctx, job.ID, next, "boom"))
		got, err := store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, schema.JobStatusPending, got.Status)
		assert.Equal(t, "boom", *got.Error)
		assert.WithinDuration(t, next, got.ProcessAfter, time.Millisecond)

		require.NoError(t, store.FailJob(ctx, job.ID, "fatal"))
		got, err = store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, schema.JobStatusFailed, got.Status)

		require.NoError(t, store.CompleteJob(ctx, job.ID))
		got, err = store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, schema.JobStatusDone, got.Status)
	})

	t.Run("release stale processing jobs", func(t *testing.T) {
		job := buildTestJob(schema.JobTypeStatsUpdate, now.Add(-time.Second))
		require.NoError(t, store.CreateJob(ctx, job))
		_, err := store.ClaimJob(ctx, job.ID)
		require.NoError(t, err)

		released, err := store.ReleaseStaleJobs(ctx, now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Zero(t, released)

		released, err = store.ReleaseStaleJobs(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, released, int64(1))

		got, err := store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, schema.JobStatusPending, got.Status)
	})

	t.Run("count by status", func(t *testing.T) {
		counts, err := store.CountJobsByStatus(ctx)
		require.NoError(t, err)
		assert.Len(t, counts, 4)
		assert.GreaterOrEqual(t, counts[schema.JobStatusPending], int64(1))
	})

	t.Run("unknown job", func(t *testing.T) {
		job, err := store.GetJob(ctx, ulid.Make().String())
		require.NoError(t, err)
		assert.Nil(t, job)
	})
}

// =============================================================================
// Webhooks
// =============================================================================

func testWebhookEndpoints(t *testing.T, store Store) {
	ctx := context.Background()

	endpointIDs := func(eventType domain.EventType) []string {
		endpoints, err := store.GetActiveWebhookEndpointsByEventType(ctx, eventType)
		require.NoError(t, err)
		var ids []string
		for _, e := range endpoints {
			ids = append(ids, e.ID)
		}
		return ids
	}

	t.Run("transfer subscribers", func(t *testing.T) {
		ids := endpointIDs(domain.EventTypeTransfer)
		assert.ElementsMatch(t, []string{activeTenantEndpoint, transferOnlyEndpoint}, ids)
	})

	t.Run("disabled endpoints and suspended tenants are excluded", func(t *testing.T) {
		ids := endpointIDs(domain.EventTypeOrderCreated)
		assert.Equal(t, []string{activeTenantEndpoint}, ids)
		assert.NotContains(t, ids, disabledEndpoint)
		assert.NotContains(t, ids, suspendedTenantEndpoint)
	})

	t.Run("get endpoint", func(t *testing.T) {
		endpoint, err := store.GetWebhookEndpoint(ctx, disabledEndpoint)
		require.NoError(t, err)
		require.NotNil(t, endpoint)
		assert.Equal(t, schema.WebhookEndpointStatusDisabled, endpoint.Status)

		endpoint, err = store.GetWebhookEndpoint(ctx, "00000000-0000-0000-0000-000000000000")
		require.NoError(t, err)
		assert.Nil(t, endpoint)
	})
}

func testWebhookDeliveries(t *testing.T, store Store) {
	ctx := context.Background()

	delivery := &schema.WebhookDelivery{
		ID:         "bbbbbbbb-0000-0000-0000-000000000001",
		EndpointID: activeTenantEndpoint,
		EventType:  string(domain.EventTypeTransfer),
		Payload:    datatypes.JSON(`{"blockNumber":"100","txHash":"0xmint","logIndex":0}`),
		JobID:      ulid.Make().String(),
	}
	require.NoError(t, store.CreateWebhookDelivery(ctx, delivery))

	t.Run("failed attempt keeps status and body", func(t *testing.T) {
		code := 500
		err := store.UpdateWebhookDeliveryResult(ctx, UpdateWebhookDeliveryResultInput{
			ID:           delivery.ID,
			StatusCode:   &code,
			ResponseBody: stringPtr("internal error"),
		})
		require.NoError(t, err)

		got, err := store.GetWebhookDelivery(ctx, delivery.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 500, *got.StatusCode)
		assert.Equal(t, "internal error", *got.ResponseBody)
		assert.Nil(t, got.DeliveredAt)
	})

	t.Run("successful attempt sets delivered_at", func(t *testing.T) {
		code := 204
		now := time.Now()
		err := store.UpdateWebhookDeliveryResult(ctx, UpdateWebhookDeliveryResultInput{
			ID:           delivery.ID,
			StatusCode:   &code,
			ResponseBody: stringPtr(""),
			DeliveredAt:  &now,
		})
		require.NoError(t, err)

		got, err := store.GetWebhookDelivery(ctx, delivery.ID)
		require.NoError(t, err)
		assert.Equal(t, 204, *got.StatusCode)
		assert.NotNil(t, got.DeliveredAt)
	})

	t.Run("unknown endpoint is rejected", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx Store) error {
			return tx.CreateWebhookDelivery(ctx, &schema.WebhookDelivery{
				ID:         "bbbbbbbb-0000-0000-0000-000000000002",
				EndpointID: "00000000-0000-0000-0000-000000000000",
				EventType:  string(domain.EventTypeTransfer),
				Payload:    datatypes.JSON(`{}`),
				JobID:      ulid.Make().String(),
			})
		})
		assert.Error(t, err)
	})
}

// =============================================================================
// Metadata cache
// =============================================================================

func testMetadataCache(t *testing.T, store Store) {
	ctx := context.Background()

	entry, err := store.GetMetadataCache(ctx, "ipfs://missing")
	require.NoError(t, err)
	assert.Nil(t, entry)

	fetchedAt := time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.UpsertMetadataCache(ctx, schema.MetadataCache{
		URI:         "ipfs://bafy/1.json",
		ResolvedURL: stringPtr("https://ipfs.io/ipfs/bafy/1.json"),
		Content:     datatypes.JSON(`{"name":"one"}`),
		FetchedAt:   fetchedAt,
		TTLSeconds:  3600,
	}))

	entry, err = store.GetMetadataCache(ctx, "ipfs://bafy/1.json")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Expired(time.Now()))
	assert.JSONEq(t, `{"name":"one"}`, string(entry.Content))

	require.NoError(t, store.UpsertMetadataCache(ctx, schema.MetadataCache{
		URI:        "ipfs://bafy/1.json",
		Content:    datatypes.JSON(`{"name":"two"}`),
		FetchedAt:  time.Now(),
		TTLSeconds: 3600,
	}))

	entry, err = store.GetMetadataCache(ctx, "ipfs://bafy/1.json")
	require.NoError(t, err)
	assert.False(t, entry.Expired(time.Now()))
	assert.JSONEq(t, `{"name":"two"}`, string(entry.Content))
}

// =============================================================================
// Test Runner - runs all tests against a given store implementation
// =============================================================================

func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"Cursor", testCursor},
		{"Orders", testOrders},
		{"CollectionsAndTokens", testCollectionsAndTokens},
		{"CollectionStats", testCollectionStats},
		{"Transfers", testTransfers},
		{"Jobs", testJobs},
		{"WebhookEndpoints", testWebhookEndpoints},
		{"WebhookDeliveries", testWebhookDeliveries},
		{"MetadataCache", testMetadataCache},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
