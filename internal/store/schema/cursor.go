package schema

import (
	"time"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
)

// IndexerCursor represents the indexer_cursors table - one resumption checkpoint per chain
type IndexerCursor struct {
	// Chain is the network this cursor tracks (e.g., "STARKNET_MAINNET")
	Chain domain.Chain `gorm:"column:chain;primaryKey;type:varchar(32)"`
	// LastBlock is the last block whose events have been fully applied
	LastBlock uint64 `gorm:"column:last_block;not null"`
	// ContinuationToken is the RPC pagination token of a partially read range, if any
	ContinuationToken *string `gorm:"column:continuation_token;type:text"`
	// UpdatedAt is the timestamp when the cursor last moved
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the IndexerCursor model
func (IndexerCursor) TableName() string {
	return "indexer_cursors"
}
