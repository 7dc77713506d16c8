package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
)

const (
	// DefaultMaxAttempts is the number of claims a job gets unless enqueued with another limit
	DefaultMaxAttempts = 3

	// RetryBackoffStep is multiplied by the attempt count to schedule a retry
	RetryBackoffStep = 5 * time.Second

	maxErrorLength = 2000
)

// ErrMaxAttemptsExceeded is recorded on jobs that were claimed too many times
const ErrMaxAttemptsExceeded = "max attempts exceeded"

// EnqueueOptions tune a single enqueue
type EnqueueOptions struct {
	// ProcessAfter delays the job; zero means now
	ProcessAfter time.Time
	// MaxAttempts overrides DefaultMaxAttempts when positive
	MaxAttempts int
	// Tx makes the insert part of a caller transaction
	Tx store.Store
}

// Queue is the durable Postgres job queue
//
//go:generate mockgen -source=queue.go -destination=../mocks/queue.go -package=mocks -mock_names=Queue=MockQueue
type Queue interface {
	// Enqueue inserts a PENDING job and returns its id
	Enqueue(ctx context.Context, jobType schema.JobType, payload interface{}, opts EnqueueOptions) (string, error)

	// Claim takes the earliest eligible job, or returns nil when there is none or another
	// worker won the race
	Claim(ctx context.Context) (*schema.Job, error)

	// Complete marks a job DONE
	Complete(ctx context.Context, id string) error

	// Fail records a handler error and schedules a retry, or marks the job FAILED once its
	// attempts are used up
	Fail(ctx context.Context, id string, cause error) error

	// ReleaseStale returns jobs stuck in PROCESSING for longer than timeout to PENDING
	ReleaseStale(ctx context.Context, timeout time.Duration) (int64, error)

	// Depth counts jobs per status
	Depth(ctx context.Context) (map[schema.JobStatus]int64, error)
}

type queue struct {
	store store.Store
	clock adapter.Clock
}

// New creates a queue over store
func New(st store.Store, clock adapter.Clock) Queue {
	return &queue{store: st, clock: clock}
}

// RetryDelay is the delay before the next attempt of a job that has been claimed attempts times
func RetryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return time.Duration(attempts) * RetryBackoffStep
}

func (q *queue) Enqueue(ctx context.Context, jobType schema.JobType, payload interface{}, opts EnqueueOptions) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s payload: %w", jobType, err)
	}

	now := q.clock.Now()
	processAfter := opts.ProcessAfter
	if processAfter.IsZero() {
		processAfter = now
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	job := &schema.Job{
		ID:           ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Type:         jobType,
		Payload:      datatypes.JSON(raw),
		Status:       schema.JobStatusPending,
		MaxAttempts:  maxAttempts,
		ProcessAfter: processAfter,
		CreatedAt:    now,
	}

	st := q.store
	if opts.Tx != nil {
		st = opts.Tx
	}
	if err := st.CreateJob(ctx, job); err != nil {
		return "", err
	}

	logger.DebugCtx(ctx, "Job enqueued",
		zap.String("job_id", job.ID),
		zap.String("type", string(jobType)),
		zap.Time("process_after", processAfter))

	return job.ID, nil
}

func (q *queue) Claim(ctx context.Context) (*schema.Job, error) {
	job, err := q.store.GetNextPendingJob(ctx, q.clock.Now())
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	if job.Attempts >= job.MaxAttempts {
		logger.WarnCtx(ctx, "Job exceeded max attempts",
			zap.String("job_id", job.ID),
			zap.String("type", string(job.Type)),
			zap.Int("attempts", job.Attempts))
		if err := q.store.FailJob(ctx, job.ID, ErrMaxAttemptsExceeded); err != nil {
			return nil, err
		}
		return nil, nil
	}

	claimed, err := q.store.ClaimJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, nil
	}

	job.Status = schema.JobStatusProcessing
	job.Attempts++
	return job, nil
}

func (q *queue) Complete(ctx context.Context, id string) error {
	return q.store.CompleteJob(ctx, id)
}

func (q *queue) Fail(ctx context.Context, id string, cause error) error {
	job, err := q.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", id)
	}

	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength]
	}

	if job.Attempts < job.MaxAttempts {
		processAfter := q.clock.Now().Add(RetryDelay(job.Attempts))
		logger.InfoCtx(ctx, "Job failed, retry scheduled",
			zap.String("job_id", id),
			zap.String("type", string(job.Type)),
			zap.Int("attempts", job.Attempts),
			zap.Time("process_after", processAfter),
			zap.String("error", msg))
		return q.store.RescheduleJob(ctx, id, processAfter, msg)
	}

	logger.WarnCtx(ctx, "Job failed permanently",
		zap.String("job_id", id),
		zap.String("type", string(job.Type)),
		zap.Int("attempts", job.Attempts),
		zap.String("error", msg))
	return q.store.FailJob(ctx, id, msg)
}

func (q *queue) ReleaseStale(ctx context.Context, timeout time.Duration) (int64, error) {
	return q.store.ReleaseStaleJobs(ctx, q.clock.Now().Add(-timeout))
}

func (q *queue) Depth(ctx context.Context) (map[schema.JobStatus]int64, error) {
	return q.store.CountJobsByStatus(ctx)
}
