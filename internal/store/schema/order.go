package schema

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
)

// OrderStatus is the lifecycle status of a marketplace order
type OrderStatus string

const (
	// OrderStatusActive is an order that can still be fulfilled
	OrderStatusActive OrderStatus = "ACTIVE"
	// OrderStatusFulfilled is an order that has been filled on chain
	OrderStatusFulfilled OrderStatus = "FULFILLED"
	// OrderStatusCancelled is an order cancelled by its offerer
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// OrderStatusExpired is an active order whose end time has passed
	OrderStatusExpired OrderStatus = "EXPIRED"
)

// Order represents the orders table - mirrored marketplace orders
type Order struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Chain is the network the order lives on
	Chain domain.Chain `gorm:"column:chain;not null;type:varchar(32);uniqueIndex:uq_orders_chain_hash,priority:1"`
	// OrderHash is the felt hash identifying the order on the marketplace contract
	OrderHash string `gorm:"column:order_hash;not null;type:varchar(66);uniqueIndex:uq_orders_chain_hash,priority:2"`
	// Offerer is the account that registered the order
	Offerer string `gorm:"column:offerer;not null;type:varchar(66)"`

	OfferItemType    string `gorm:"column:offer_item_type;not null;type:varchar(16)"`
	OfferToken       string `gorm:"column:offer_token;not null;type:varchar(66)"`
	OfferIdentifier  string `gorm:"column:offer_identifier;not null;type:text"`
	OfferStartAmount string `gorm:"column:offer_start_amount;not null;type:text"`
	OfferEndAmount   string `gorm:"column:offer_end_amount;not null;type:text"`

	ConsiderationItemType    string `gorm:"column:consideration_item_type;not null;type:varchar(16)"`
	ConsiderationToken       string `gorm:"column:consideration_token;not null;type:varchar(66)"`
	ConsiderationIdentifier  string `gorm:"column:consideration_identifier;not null;type:text"`
	ConsiderationStartAmount string `gorm:"column:consideration_start_amount;not null;type:text"`
	ConsiderationEndAmount   string `gorm:"column:consideration_end_amount;not null;type:text"`
	ConsiderationRecipient   string `gorm:"column:consideration_recipient;not null;type:varchar(66)"`

	// StartTime is the unix timestamp from which the order is valid
	StartTime int64 `gorm:"column:start_time;not null"`
	// EndTime is the unix timestamp after which the order expires
	EndTime int64 `gorm:"column:end_time;not null"`
	// Status is the mirrored lifecycle status
	Status OrderStatus `gorm:"column:status;not null;type:varchar(16);default:ACTIVE"`

	// NFTContract is the collection of the offered token when the offer side is an NFT
	NFTContract *string `gorm:"column:nft_contract;type:varchar(66)"`
	// NFTTokenID is the offered token id when the offer side is an NFT
	NFTTokenID *string `gorm:"column:nft_token_id;type:text"`

	// PriceRaw is the consideration start amount in the currency's smallest unit
	PriceRaw decimal.NullDecimal `gorm:"column:price_raw;type:numeric(78,0)"`
	// CurrencySymbol is the symbol of a supported payment token, if recognised
	CurrencySymbol *string `gorm:"column:currency_symbol;type:varchar(16)"`
	// CurrencyDecimals is the number of decimals of the payment token, if recognised
	CurrencyDecimals *int32 `gorm:"column:currency_decimals"`

	CreatedBlockNumber uint64  `gorm:"column:created_block_number;not null"`
	CreatedTxHash      string  `gorm:"column:created_tx_hash;not null;type:varchar(66)"`
	Fulfiller          *string `gorm:"column:fulfiller;type:varchar(66)"`
	FulfilledTxHash    *string `gorm:"column:fulfilled_tx_hash;type:varchar(66)"`
	CancelledTxHash    *string `gorm:"column:cancelled_tx_hash;type:varchar(66)"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}
