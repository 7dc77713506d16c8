package schema

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
)

// Collection represents the collections table - NFT contracts observed by the mirror
type Collection struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Chain is the network of the contract
	Chain domain.Chain `gorm:"column:chain;not null;type:varchar(32);uniqueIndex:uq_collections_chain_contract,priority:1"`
	// ContractAddress is the normalized collection contract address
	ContractAddress string `gorm:"column:contract_address;not null;type:varchar(66);uniqueIndex:uq_collections_chain_contract,priority:2"`
	// StartBlock is the first block in which the mirror saw this collection
	StartBlock uint64 `gorm:"column:start_block;not null"`
	// IsKnown marks collections registered by an operator rather than discovered
	IsKnown bool `gorm:"column:is_known;not null;default:false"`

	// HolderCount is the number of distinct current owners
	HolderCount int64 `gorm:"column:holder_count;not null;default:0"`
	// TotalSupply is the number of mirrored tokens
	TotalSupply int64 `gorm:"column:total_supply;not null;default:0"`
	// FloorPrice is the lowest raw price among active, unexpired orders
	FloorPrice decimal.NullDecimal `gorm:"column:floor_price;type:numeric(78,0)"`
	// FloorCurrency is the currency symbol of the floor order
	FloorCurrency *string `gorm:"column:floor_currency;type:varchar(16)"`
	// TotalVolume is the sum of raw prices of fulfilled orders
	TotalVolume decimal.Decimal `gorm:"column:total_volume;not null;type:numeric(78,0);default:0"`
	// StatsUpdatedAt is the timestamp of the last stats recomputation
	StatsUpdatedAt *time.Time `gorm:"column:stats_updated_at;type:timestamptz"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Collection model
func (Collection) TableName() string {
	return "collections"
}
