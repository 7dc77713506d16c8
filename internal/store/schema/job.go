package schema

import (
	"time"

	"gorm.io/datatypes"
)

// JobType identifies the handler a job is dispatched to
type JobType string

const (
	// JobTypeMetadataFetch resolves token metadata from its token URI
	JobTypeMetadataFetch JobType = "METADATA_FETCH"
	// JobTypeMetadataPin pins an IPFS CID on the pinning service
	JobTypeMetadataPin JobType = "METADATA_PIN"
	// JobTypeStatsUpdate recomputes aggregate stats of a collection
	JobTypeStatsUpdate JobType = "STATS_UPDATE"
	// JobTypeWebhookDeliver performs one webhook delivery
	JobTypeWebhookDeliver JobType = "WEBHOOK_DELIVER"
)

// JobStatus is the queue state of a job
type JobStatus string

const (
	// JobStatusPending is a job waiting for its process_after time
	JobStatusPending JobStatus = "PENDING"
	// JobStatusProcessing is a job claimed by a worker
	JobStatusProcessing JobStatus = "PROCESSING"
	// JobStatusDone is a job that completed
	JobStatusDone JobStatus = "DONE"
	// JobStatusFailed is a job that exhausted its attempts
	JobStatusFailed JobStatus = "FAILED"
)

// Job represents the jobs table - durable work queue drained by the orchestrator
type Job struct {
	// ID is a ULID, time sortable
	ID string `gorm:"column:id;primaryKey;type:varchar(26)"`
	// Type selects the handler
	Type JobType `gorm:"column:type;not null;type:varchar(32)"`
	// Payload is the JSON payload passed to the handler
	Payload datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	// Status is the queue state
	Status JobStatus `gorm:"column:status;not null;type:varchar(16);default:PENDING;index:idx_jobs_status_process_after,priority:1"`
	// Attempts is the number of claims so far
	Attempts int `gorm:"column:attempts;not null;default:0"`
	// MaxAttempts is the number of claims allowed before the job fails permanently
	MaxAttempts int `gorm:"column:max_attempts;not null;default:3"`
	// ProcessAfter is the earliest time the job may be claimed
	ProcessAfter time.Time `gorm:"column:process_after;not null;default:now();type:timestamptz;index:idx_jobs_status_process_after,priority:2"`
	// Error is the last handler error
	Error     *string   `gorm:"column:error;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Job model
func (Job) TableName() string {
	return "jobs"
}
