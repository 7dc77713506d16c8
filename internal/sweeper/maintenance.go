package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/metrics"
	"github.com/feral-file/ff-marketplace-mirror/internal/queue"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
)

const (
	DEFAULT_STALE_JOB_TIMEOUT = 10 * time.Minute
	DEFAULT_REAPER_SCHEDULE   = "@every 1m"
	DEFAULT_EXPIRY_SCHEDULE   = "@every 1m"
)

// MaintenanceConfig holds configuration for the maintenance sweeper
type MaintenanceConfig struct {
	Chain domain.Chain
	// StaleJobTimeout is how long a job may stay PROCESSING before it is released
	StaleJobTimeout time.Duration
	// ReaperSchedule and ExpirySchedule are cron specs; an empty ExpirySchedule
	// falls back to the default, "-" disables the expiry sweep
	ReaperSchedule string
	ExpirySchedule string
}

// Maintenance releases stale jobs and expires ended orders on a schedule
type Maintenance interface {
	Sweeper

	// Reap returns PROCESSING jobs older than the stale timeout to PENDING and refreshes
	// the queue depth gauges
	Reap(ctx context.Context) error
	// Expire moves ACTIVE orders past their end time to EXPIRED and schedules a stats
	// update for every collection touched
	Expire(ctx context.Context) error
}

type maintenanceSweeper struct {
	config    MaintenanceConfig
	store     store.Store
	queue     queue.Queue
	clock     adapter.Clock
	running   atomic.Bool
	stopOnce  sync.Once
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewMaintenanceSweeper creates the queue reaper and order expiry sweeper
func NewMaintenanceSweeper(cfg MaintenanceConfig, st store.Store, q queue.Queue, clock adapter.Clock) Maintenance {
	if cfg.StaleJobTimeout <= 0 {
		cfg.StaleJobTimeout = DEFAULT_STALE_JOB_TIMEOUT
	}
	if cfg.ReaperSchedule == "" {
		cfg.ReaperSchedule = DEFAULT_REAPER_SCHEDULE
	}
	if cfg.ExpirySchedule == "" {
		cfg.ExpirySchedule = DEFAULT_EXPIRY_SCHEDULE
	}
	return &maintenanceSweeper{
		config:    cfg,
		store:     st,
		queue:     q,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *maintenanceSweeper) Name() string {
	return "maintenance-sweeper"
}

// Start registers the cron entries, reaps once and blocks until stopped
func (s *maintenanceSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.config.ReaperSchedule, func() { s.run(ctx, "reap", s.Reap) }); err != nil {
		return fmt.Errorf("invalid reaper schedule %q: %w", s.config.ReaperSchedule, err)
	}
	if s.config.ExpirySchedule != "-" {
		if _, err := c.AddFunc(s.config.ExpirySchedule, func() { s.run(ctx, "expire", s.Expire) }); err != nil {
			return fmt.Errorf("invalid expiry schedule %q: %w", s.config.ExpirySchedule, err)
		}
	}

	logger.InfoCtx(ctx, "Starting maintenance sweeper",
		zap.String("chain", string(s.config.Chain)),
		zap.Duration("stale_job_timeout", s.config.StaleJobTimeout),
		zap.String("reaper_schedule", s.config.ReaperSchedule),
		zap.String("expiry_schedule", s.config.ExpirySchedule),
	)

	// jobs left PROCESSING by a crashed process are released right away
	s.run(ctx, "reap", s.Reap)
	c.Start()

	select {
	case <-ctx.Done():
		logger.InfoCtx(ctx, "Maintenance sweeper stopping due to context cancellation")
	case <-s.stopChan:
		logger.InfoCtx(ctx, "Maintenance sweeper stop requested")
	}

	<-c.Stop().Done()
	return nil
}

// Stop gracefully stops the sweeper with timeout support
func (s *maintenanceSweeper) Stop(ctx context.Context) error {
	// a Start racing with Stop sees the closed channel and returns right away
	s.stopOnce.Do(func() { close(s.stopChan) })
	if !s.running.Load() {
		return nil
	}

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Maintenance sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Maintenance sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

func (s *maintenanceSweeper) run(ctx context.Context, name string, fn func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorCtx(ctx, fmt.Errorf("maintenance %s failed: %w", name, err))
	}
}

func (s *maintenanceSweeper) Reap(ctx context.Context) error {
	released, err := s.queue.ReleaseStale(ctx, s.config.StaleJobTimeout)
	if err != nil {
		return fmt.Errorf("failed to release stale jobs: %w", err)
	}
	if released > 0 {
		metrics.StaleJobsReleased.Add(float64(released))
		logger.WarnCtx(ctx, "Released stale jobs", zap.Int64("count", released))
	}

	depth, err := s.queue.Depth(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue depth: %w", err)
	}
	for _, status := range []schema.JobStatus{
		schema.JobStatusPending,
		schema.JobStatusProcessing,
		schema.JobStatusDone,
		schema.JobStatusFailed,
	} {
		metrics.QueueDepth.WithLabelValues(string(status)).Set(float64(depth[status]))
	}
	return nil
}

func (s *maintenanceSweeper) Expire(ctx context.Context) error {
	var count int64
	var contracts []string
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		count, contracts, err = tx.ExpireOrders(ctx, s.config.Chain, s.clock.Now())
		if err != nil {
			return err
		}
		for _, contract := range contracts {
			_, err := s.queue.Enqueue(ctx, schema.JobTypeStatsUpdate, queue.StatsUpdatePayload{
				Chain:           s.config.Chain,
				ContractAddress: contract,
			}, queue.EnqueueOptions{Tx: tx})
			if err != nil {
				return fmt.Errorf("failed to enqueue stats update: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if count > 0 {
		metrics.OrdersExpired.WithLabelValues(string(s.config.Chain)).Add(float64(count))
		logger.InfoCtx(ctx, "Expired orders",
			zap.String("chain", string(s.config.Chain)),
			zap.Int64("count", count),
			zap.Strings("collections", contracts),
		)
	}
	return nil
}
