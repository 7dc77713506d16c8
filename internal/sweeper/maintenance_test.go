package sweeper_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/mocks"
	"github.com/feral-file/ff-marketplace-mirror/internal/queue"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
	"github.com/feral-file/ff-marketplace-mirror/internal/sweeper"
	"github.com/feral-file/ff-marketplace-mirror/internal/testutil"
)

const (
	collection = "0x05dbdedc203e92749e2e746e2d40a768d966bd243df04a6b712e222bc040a9af"
	offerer    = "0x00000000000000000000000000000000000000000000000000000000000a11ce"
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

type testSweeper struct {
	db      *gorm.DB
	store   store.Store
	queue   queue.Queue
	clock   *testutil.FakeClock
	sweeper sweeper.Maintenance
}

func setupTestSweeper(t *testing.T, cfg sweeper.MaintenanceConfig) *testSweeper {
	tx := testDB.DB.Begin()
	require.NoError(t, tx.Error)
	t.Cleanup(func() {
		tx.Rollback()
	})
	require.NoError(t, tx.Exec("DELETE FROM jobs").Error)

	st := store.NewPGStore(tx)
	clock := testutil.NewFakeClock(time.Now())
	q := queue.New(st, clock)
	cfg.Chain = domain.ChainStarknetMainnet
	return &testSweeper{
		db:      tx,
		store:   st,
		queue:   q,
		clock:   clock,
		sweeper: sweeper.NewMaintenanceSweeper(cfg, st, q, clock),
	}
}

func (ts *testSweeper) listing(t *testing.T, hash string, endTime time.Time) {
	contract := collection
	tokenID := "1"
	price := decimal.NewFromInt(5000)
	require.NoError(t, ts.store.UpsertOrder(context.Background(), store.UpsertOrderInput{
		Chain:                    domain.ChainStarknetMainnet,
		OrderHash:                hash,
		Offerer:                  offerer,
		OfferItemType:            domain.ItemTypeERC721,
		OfferToken:               collection,
		OfferIdentifier:          tokenID,
		OfferStartAmount:         "1",
		OfferEndAmount:           "1",
		ConsiderationItemType:    domain.ItemTypeERC20,
		ConsiderationToken:       strk,
		ConsiderationIdentifier:  "0",
		ConsiderationStartAmount: price.String(),
		ConsiderationEndAmount:   price.String(),
		ConsiderationRecipient:   offerer,
		StartTime:                endTime.Add(-24 * time.Hour).Unix(),
		EndTime:                  endTime.Unix(),
		NFTContract:              &contract,
		NFTTokenID:               &tokenID,
		PriceRaw:                 decimal.NewNullDecimal(price),
		BlockNumber:              1000,
		TxHash:                   hash,
	}))
}

func (ts *testSweeper) jobs(t *testing.T, jobType schema.JobType) []schema.Job {
	var jobs []schema.Job
	require.NoError(t, ts.db.Where("type = ?", jobType).Find(&jobs).Error)
	return jobs
}

func TestReap_ReleasesStaleJobs(t *testing.T) {
	ts := setupTestSweeper(t, sweeper.MaintenanceConfig{StaleJobTimeout: 10 * time.Minute})
	ctx := context.Background()

	id, err := ts.queue.Enqueue(ctx, schema.JobTypeStatsUpdate, queue.StatsUpdatePayload{ContractAddress: collection}, queue.EnqueueOptions{})
	require.NoError(t, err)
	job, err := ts.queue.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, id, job.ID)

	// still within the timeout
	require.NoError(t, ts.sweeper.Reap(ctx))
	stored, err := ts.store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, schema.JobStatusProcessing, stored.Status)

	ts.clock.Advance(11 * time.Minute)
	require.NoError(t, ts.sweeper.Reap(ctx))

	stored, err = ts.store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, schema.JobStatusPending, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.Error)
}

func TestReap_QueueErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q := mocks.NewMockQueue(ctrl)
	s := sweeper.NewMaintenanceSweeper(sweeper.MaintenanceConfig{}, nil, q, testutil.NewFakeClock(time.Now()))

	q.EXPECT().ReleaseStale(gomock.Any(), sweeper.DEFAULT_STALE_JOB_TIMEOUT).Return(int64(0), errors.New("connection refused"))
	assert.Error(t, s.Reap(context.Background()))

	q.EXPECT().ReleaseStale(gomock.Any(), gomock.Any()).Return(int64(2), nil)
	q.EXPECT().Depth(gomock.Any()).Return(nil, errors.New("connection refused"))
	assert.Error(t, s.Reap(context.Background()))

	q.EXPECT().ReleaseStale(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	q.EXPECT().Depth(gomock.Any()).Return(map[schema.JobStatus]int64{schema.JobStatusPending: 3}, nil)
	assert.NoError(t, s.Reap(context.Background()))
}

func TestExpire_ExpiresEndedOrdersAndSchedulesStats(t *testing.T) {
	ts := setupTestSweeper(t, sweeper.MaintenanceConfig{})
	ctx := context.Background()
	now := ts.clock.Now()

	ts.listing(t, "0x0e1", now.Add(-time.Minute))
	ts.listing(t, "0x0e2", now.Add(-time.Hour))
	ts.listing(t, "0x0a1", now.Add(time.Hour))

	require.NoError(t, ts.sweeper.Expire(ctx))

	for hash, status := range map[string]schema.OrderStatus{
		"0x0e1": schema.OrderStatusExpired,
		"0x0e2": schema.OrderStatusExpired,
		"0x0a1": schema.OrderStatusActive,
	} {
		order, err := ts.store.GetOrderByHash(ctx, domain.ChainStarknetMainnet, hash)
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, status, order.Status, hash)
	}

	jobs := ts.jobs(t, schema.JobTypeStatsUpdate)
	require.Len(t, jobs, 1)
	payload, err := queue.DecodePayload[queue.StatsUpdatePayload](&jobs[0])
	require.NoError(t, err)
	assert.Equal(t, collection, payload.ContractAddress)
	assert.Equal(t, domain.ChainStarknetMainnet, payload.Chain)

	// nothing left to expire
	require.NoError(t, ts.sweeper.Expire(ctx))
	assert.Len(t, ts.jobs(t, schema.JobTypeStatsUpdate), 1)

	ts.clock.Advance(2 * time.Hour)
	require.NoError(t, ts.sweeper.Expire(ctx))
	order, err := ts.store.GetOrderByHash(ctx, domain.ChainStarknetMainnet, "0x0a1")
	require.NoError(t, err)
	assert.Equal(t, schema.OrderStatusExpired, order.Status)
	assert.Len(t, ts.jobs(t, schema.JobTypeStatsUpdate), 2)
}

func TestStartStop(t *testing.T) {
	ts := setupTestSweeper(t, sweeper.MaintenanceConfig{ReaperSchedule: "@every 1h", ExpirySchedule: "-"})
	assert.Equal(t, "maintenance-sweeper", ts.sweeper.Name())

	done := make(chan error, 1)
	go func() {
		done <- ts.sweeper.Start(context.Background())
	}()

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, ts.sweeper.Stop(stopCtx))
	require.NoError(t, <-done)

	// stopping again is a no-op
	require.NoError(t, ts.sweeper.Stop(stopCtx))
}

func TestStart_InvalidSchedule(t *testing.T) {
	ts := setupTestSweeper(t, sweeper.MaintenanceConfig{ReaperSchedule: "every minute"})
	assert.Error(t, ts.sweeper.Start(context.Background()))
}

func TestStart_StopsOnCancel(t *testing.T) {
	ts := setupTestSweeper(t, sweeper.MaintenanceConfig{ReaperSchedule: "@every 1h", ExpirySchedule: "@every 1h"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ts.sweeper.Start(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
