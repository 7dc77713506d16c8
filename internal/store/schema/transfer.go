package schema

import (
	"time"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
)

// Transfer represents the transfers table - append-only log of token transfers
type Transfer struct {
	// ID is the internal database primary key
	ID              int64        `gorm:"column:id;primaryKey;autoIncrement"`
	Chain           domain.Chain `gorm:"column:chain;not null;type:varchar(32)"`
	ContractAddress string       `gorm:"column:contract_address;not null;type:varchar(66)"`
	TokenID         string       `gorm:"column:token_id;not null;type:text"`
	FromAddress     string       `gorm:"column:from_address;not null;type:varchar(66)"`
	ToAddress       string       `gorm:"column:to_address;not null;type:varchar(66)"`
	BlockNumber     uint64       `gorm:"column:block_number;not null"`
	TxHash          string       `gorm:"column:tx_hash;not null;type:varchar(66)"`
	// LogIndex is the position of the event within its block for the collection query
	LogIndex  uint32    `gorm:"column:log_index;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Transfer model
func (Transfer) TableName() string {
	return "transfers"
}
