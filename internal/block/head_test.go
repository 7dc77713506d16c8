package block_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-marketplace-mirror/internal/block"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/mocks"
)

func TestMain(m *testing.M) {
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

type testHeadMocks struct {
	ctrl   *gomock.Controller
	source *mocks.MockHeadSource
	clock  *mocks.MockClock
	head   block.Head
}

func setupTest(t *testing.T) *testHeadMocks {
	ctrl := gomock.NewController(t)

	source := mocks.NewMockHeadSource(ctrl)
	clock := mocks.NewMockClock(ctrl)

	return &testHeadMocks{
		ctrl:   ctrl,
		source: source,
		clock:  clock,
		head: block.NewHead(source, block.Config{
			TTL:         6 * time.Second,
			StaleWindow: time.Minute,
		}, clock),
	}
}

func tearDownTest(tm *testHeadMocks) {
	tm.ctrl.Finish()
}

var t0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestHead_Latest_FirstFetch(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	ctx := context.Background()
	tm.clock.EXPECT().Now().Return(t0)
	tm.source.EXPECT().BlockNumber(ctx).Return(uint64(6204300), nil)

	n, err := tm.head.Latest(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(6204300), n)
}

func TestHead_Latest_CachedWithinTTL(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	ctx := context.Background()
	tm.clock.EXPECT().Now().Return(t0)
	tm.source.EXPECT().BlockNumber(ctx).Return(uint64(1000), nil).Times(1)

	_, err := tm.head.Latest(ctx)
	assert.NoError(t, err)

	tm.clock.EXPECT().Now().Return(t0.Add(5 * time.Second))
	n, err := tm.head.Latest(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1000), n)
}

func TestHead_Latest_RefreshAfterTTL(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	ctx := context.Background()
	tm.clock.EXPECT().Now().Return(t0)
	tm.source.EXPECT().BlockNumber(ctx).Return(uint64(1000), nil)
	_, err := tm.head.Latest(ctx)
	assert.NoError(t, err)

	tm.clock.EXPECT().Now().Return(t0.Add(7 * time.Second))
	tm.source.EXPECT().BlockNumber(ctx).Return(uint64(1003), nil)
	n, err := tm.head.Latest(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1003), n)
}

func TestHead_Latest_StaleOnErrorWithinWindow(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	ctx := context.Background()
	tm.clock.EXPECT().Now().Return(t0)
	tm.source.EXPECT().BlockNumber(ctx).Return(uint64(1000), nil)
	_, err := tm.head.Latest(ctx)
	assert.NoError(t, err)

	tm.clock.EXPECT().Now().Return(t0.Add(30 * time.Second))
	tm.source.EXPECT().BlockNumber(ctx).Return(uint64(0), errors.New("rpc unavailable"))
	n, err := tm.head.Latest(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1000), n)
}

func TestHead_Latest_ErrorBeyondStaleWindow(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	ctx := context.Background()
	tm.clock.EXPECT().Now().Return(t0)
	tm.source.EXPECT().BlockNumber(ctx).Return(uint64(1000), nil)
	_, err := tm.head.Latest(ctx)
	assert.NoError(t, err)

	tm.clock.EXPECT().Now().Return(t0.Add(5 * time.Minute))
	tm.source.EXPECT().BlockNumber(ctx).Return(uint64(0), errors.New("rpc unavailable"))
	n, err := tm.head.Latest(ctx)
	assert.Error(t, err)
	assert.Equal(t, uint64(0), n)
	assert.Contains(t, err.Error(), "no valid cache available")
}

func TestHead_Latest_ErrorWithoutCache(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	ctx := context.Background()
	tm.clock.EXPECT().Now().Return(t0)
	tm.source.EXPECT().BlockNumber(ctx).Return(uint64(0), errors.New("rpc unavailable"))

	_, err := tm.head.Latest(ctx)
	assert.Error(t, err)
}

func TestHead_Latest_NeverGoesBackwards(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	ctx := context.Background()
	tm.clock.EXPECT().Now().Return(t0)
	tm.source.EXPECT().BlockNumber(ctx).Return(uint64(1000), nil)
	_, err := tm.head.Latest(ctx)
	assert.NoError(t, err)

	tm.clock.EXPECT().Now().Return(t0.Add(10 * time.Second))
	tm.source.EXPECT().BlockNumber(ctx).Return(uint64(998), nil)
	n, err := tm.head.Latest(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1000), n)
}

func TestHead_Latest_ConcurrentCallersShareFetch(t *testing.T) {
	tm := setupTest(t)
	defer tearDownTest(tm)

	ctx := context.Background()
	tm.clock.EXPECT().Now().Return(t0).AnyTimes()
	tm.source.EXPECT().BlockNumber(ctx).Return(uint64(1000), nil).Times(1)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := tm.head.Latest(ctx)
			assert.NoError(t, err)
			assert.Equal(t, uint64(1000), n)
		}()
	}
	wg.Wait()
}
