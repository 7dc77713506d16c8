package schema

import (
	"time"

	"gorm.io/datatypes"
)

// MetadataCache represents the metadata_cache table - resolved metadata documents keyed by URI
type MetadataCache struct {
	// URI is the token URI as read on chain
	URI string `gorm:"column:uri;primaryKey;type:text"`
	// ResolvedURL is the gateway URL that served the document
	ResolvedURL *string `gorm:"column:resolved_url;type:text"`
	// Content is the metadata document, null when resolution failed
	Content datatypes.JSON `gorm:"column:content;type:jsonb"`
	// FetchedAt is when the document was fetched
	FetchedAt time.Time `gorm:"column:fetched_at;not null;type:timestamptz"`
	// TTLSeconds is how long the entry stays valid
	TTLSeconds int64 `gorm:"column:ttl_seconds;not null"`
}

// TableName specifies the table name for the MetadataCache model
func (MetadataCache) TableName() string {
	return "metadata_cache"
}

// Expired reports whether the entry is older than its TTL at now
func (m *MetadataCache) Expired(now time.Time) bool {
	return now.Sub(m.FetchedAt) > time.Duration(m.TTLSeconds)*time.Second
}
