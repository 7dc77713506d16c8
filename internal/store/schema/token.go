package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
)

// MetadataStatus is the progress of metadata resolution for a token
type MetadataStatus string

const (
	// MetadataStatusPending is a token whose metadata has not been fetched yet
	MetadataStatusPending MetadataStatus = "PENDING"
	// MetadataStatusFetching is a token whose metadata is being fetched by a worker
	MetadataStatusFetching MetadataStatus = "FETCHING"
	// MetadataStatusFetched is a token with resolved metadata
	MetadataStatusFetched MetadataStatus = "FETCHED"
	// MetadataStatusFailed is a token whose metadata could not be resolved
	MetadataStatusFailed MetadataStatus = "FAILED"
)

// Token represents the tokens table - mirrored tokens of observed collections
type Token struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Chain is the network of the token
	Chain domain.Chain `gorm:"column:chain;not null;type:varchar(32);uniqueIndex:uq_tokens_chain_contract_token,priority:1"`
	// ContractAddress is the collection contract, referencing collections
	ContractAddress string `gorm:"column:contract_address;not null;type:varchar(66);uniqueIndex:uq_tokens_chain_contract_token,priority:2"`
	// TokenID is the decimal representation of the u256 token id
	TokenID string `gorm:"column:token_id;not null;type:text;uniqueIndex:uq_tokens_chain_contract_token,priority:3"`
	// Owner is the current owner as of the last applied transfer
	Owner string `gorm:"column:owner;not null;type:varchar(66)"`

	// TokenURI is the on-chain token URI once read
	TokenURI *string `gorm:"column:token_uri;type:text"`
	// MetadataStatus tracks metadata resolution
	MetadataStatus MetadataStatus `gorm:"column:metadata_status;not null;type:varchar(16);default:PENDING"`
	Name           *string        `gorm:"column:name;type:text"`
	Description    *string        `gorm:"column:description;type:text"`
	Image          *string        `gorm:"column:image;type:text"`
	// MimeType is the detected MIME type of an inline image
	MimeType   *string        `gorm:"column:mime_type;type:varchar(255)"`
	Attributes datatypes.JSON `gorm:"column:attributes;type:jsonb"`

	// IP licensing fields published by Mediolano metadata
	IPType        *string `gorm:"column:ip_type;type:text"`
	LicenseType   *string `gorm:"column:license_type;type:text"`
	CommercialUse *string `gorm:"column:commercial_use;type:text"`
	Author        *string `gorm:"column:author;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Token model
func (Token) TableName() string {
	return "tokens"
}
