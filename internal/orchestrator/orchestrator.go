package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/metrics"
	"github.com/feral-file/ff-marketplace-mirror/internal/queue"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
)

// DefaultPollInterval is the sleep between claims when the queue is empty
const DefaultPollInterval = 2 * time.Second

// Handler processes one claimed job. A returned error is recorded on the job and retried
// according to the queue's backoff.
type Handler interface {
	Handle(ctx context.Context, job *schema.Job) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, job *schema.Job) error

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, job *schema.Job) error {
	return f(ctx, job)
}

// Config holds the orchestrator loop configuration
type Config struct {
	PollInterval time.Duration
}

// Orchestrator drains the job queue, dispatching each job to the handler of its type
type Orchestrator interface {
	// Register sets the handler of a job type, replacing any previous one
	Register(jobType schema.JobType, handler Handler)
	// RunOnce claims and processes at most one job; it reports whether a job was claimed
	RunOnce(ctx context.Context) (bool, error)
	// Run processes jobs until ctx is cancelled
	Run(ctx context.Context) error
}

type orchestrator struct {
	queue  queue.Queue
	clock  adapter.Clock
	config Config

	mu       sync.RWMutex
	handlers map[schema.JobType]Handler
}

// New creates an orchestrator with no handlers registered
func New(q queue.Queue, clock adapter.Clock, cfg Config) Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &orchestrator{
		queue:    q,
		clock:    clock,
		config:   cfg,
		handlers: make(map[schema.JobType]Handler),
	}
}

func (o *orchestrator) Register(jobType schema.JobType, handler Handler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers[jobType] = handler
}

func (o *orchestrator) handler(jobType schema.JobType) (Handler, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	h, ok := o.handlers[jobType]
	return h, ok
}

// Run claims jobs back to back while there are any, and sleeps for the poll interval
// when the queue is empty or unreachable
func (o *orchestrator) Run(ctx context.Context) error {
	logger.InfoCtx(ctx, "Orchestrator starting", zap.Duration("poll_interval", o.config.PollInterval))

	for {
		if ctx.Err() != nil {
			logger.InfoCtx(ctx, "Orchestrator stopped")
			return nil
		}

		claimed, err := o.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			logger.ErrorCtx(ctx, fmt.Errorf("orchestrator iteration failed: %w", err))
		}
		if claimed && err == nil {
			continue
		}

		if err := o.clock.Sleep(ctx, o.config.PollInterval); err != nil {
			logger.InfoCtx(ctx, "Orchestrator stopped")
			return nil
		}
	}
}

func (o *orchestrator) RunOnce(ctx context.Context) (bool, error) {
	job, err := o.queue.Claim(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	jobType := string(job.Type)
	handler, ok := o.handler(job.Type)
	if !ok {
		logger.WarnCtx(ctx, "No handler for job type, completing",
			zap.String("job_id", job.ID),
			zap.String("type", jobType),
		)
		metrics.JobsProcessed.WithLabelValues(jobType, metrics.OutcomeUnknown).Inc()
		return true, o.queue.Complete(ctx, job.ID)
	}

	start := o.clock.Now()
	handleErr := o.dispatch(ctx, handler, job)
	metrics.JobDuration.WithLabelValues(jobType).Observe(o.clock.Since(start).Seconds())

	if handleErr != nil {
		metrics.JobsProcessed.WithLabelValues(jobType, metrics.OutcomeRetry).Inc()
		logger.WarnCtx(ctx, "Job handler failed",
			zap.String("job_id", job.ID),
			zap.String("type", jobType),
			zap.Int("attempts", job.Attempts),
			zap.Error(handleErr),
		)
		if err := o.queue.Fail(ctx, job.ID, handleErr); err != nil {
			return true, fmt.Errorf("failed to record job failure: %w", err)
		}
		return true, nil
	}

	metrics.JobsProcessed.WithLabelValues(jobType, metrics.OutcomeDone).Inc()
	if err := o.queue.Complete(ctx, job.ID); err != nil {
		return true, fmt.Errorf("failed to complete job: %w", err)
	}
	logger.DebugCtx(ctx, "Job done", zap.String("job_id", job.ID), zap.String("type", jobType))
	return true, nil
}

// dispatch runs the handler, turning a panic into an error
func (o *orchestrator) dispatch(ctx context.Context, handler Handler, job *schema.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("job handler panicked: %v", r),
				zap.String("job_id", job.ID),
				zap.String("type", string(job.Type)),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, job)
}
