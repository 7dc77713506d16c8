package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
)

// Store defines the interface for database operations
type Store interface {
	// WithTx runs fn inside a database transaction. The Store passed to fn is bound to the
	// transaction; returning an error rolls it back.
	WithTx(ctx context.Context, fn func(tx Store) error) error
	// Ping checks the database connection
	Ping(ctx context.Context) error

	// =============================================================================
	// Cursor
	// =============================================================================

	// GetCursor retrieves the cursor of a chain, nil if none has been saved
	GetCursor(ctx context.Context, chain domain.Chain) (*schema.IndexerCursor, error)
	// SaveCursor upserts the cursor of a chain
	SaveCursor(ctx context.Context, cursor schema.IndexerCursor) error

	// =============================================================================
	// Orders
	// =============================================================================

	// UpsertOrder inserts an order or refreshes its offerer, NFT side and price on conflict
	UpsertOrder(ctx context.Context, input UpsertOrderInput) error
	// UpdateOrderStatus conditionally updates an order by hash and returns whether a row matched
	UpdateOrderStatus(ctx context.Context, input UpdateOrderStatusInput) (bool, error)
	// GetOrderByHash retrieves an order by its hash
	GetOrderByHash(ctx context.Context, chain domain.Chain, orderHash string) (*schema.Order, error)
	// ExpireOrders marks ACTIVE orders whose end time has passed as EXPIRED and returns the
	// number of orders expired and the NFT contracts touched
	ExpireOrders(ctx context.Context, chain domain.Chain, now time.Time) (int64, []string, error)

	// =============================================================================
	// Collections
	// =============================================================================

	// EnsureCollection creates a collection unless it already exists
	EnsureCollection(ctx context.Context, chain domain.Chain, contractAddress string, startBlock uint64) error
	// GetCollection retrieves a collection by contract address
	GetCollection(ctx context.Context, chain domain.Chain, contractAddress string) (*schema.Collection, error)
	// ComputeCollectionStats aggregates holder count, supply, floor and volume of a collection
	ComputeCollectionStats(ctx context.Context, chain domain.Chain, contractAddress string, now time.Time) (*CollectionStats, error)
	// UpdateCollectionStats stores aggregated stats on a collection
	UpdateCollectionStats(ctx context.Context, chain domain.Chain, contractAddress string, stats CollectionStats) error

	// =============================================================================
	// Tokens
	// =============================================================================

	// EnsureToken creates a token unless it already exists
	EnsureToken(ctx context.Context, input EnsureTokenInput) error
	// UpsertTokenOwner creates a token or sets its owner when it already exists
	UpsertTokenOwner(ctx context.Context, input EnsureTokenInput) error
	// UpdateTokenOwner updates the owner of a token by natural key and returns whether a row matched
	UpdateTokenOwner(ctx context.Context, chain domain.Chain, contractAddress, tokenID, owner string) (bool, error)
	// GetToken retrieves a token by natural key
	GetToken(ctx context.Context, chain domain.Chain, contractAddress, tokenID string) (*schema.Token, error)
	// GetPendingMetadataTokens lists tokens of the given contracts still waiting for metadata
	GetPendingMetadataTokens(ctx context.Context, chain domain.Chain, contractAddresses []string, limit int) ([]schema.Token, error)
	// MarkTokenMetadataFetching moves a token from PENDING to FETCHING and returns whether it did
	MarkTokenMetadataFetching(ctx context.Context, chain domain.Chain, contractAddress, tokenID string) (bool, error)
	// UpdateTokenMetadata stores resolved metadata and sets the status to FETCHED
	UpdateTokenMetadata(ctx context.Context, input UpdateTokenMetadataInput) error
	// SetTokenMetadataStatus sets the metadata status of a token, recording the token URI when known
	SetTokenMetadataStatus(ctx context.Context, chain domain.Chain, contractAddress, tokenID string, status schema.MetadataStatus, tokenURI *string) error

	// =============================================================================
	// Transfers
	// =============================================================================

	// CreateTransfer appends a transfer; a replayed transfer returns domain.ErrDuplicate
	CreateTransfer(ctx context.Context, input CreateTransferInput) error
	// GetTransfers lists transfers of a token ordered by chain position
	GetTransfers(ctx context.Context, chain domain.Chain, contractAddress, tokenID string) ([]schema.Transfer, error)

	// =============================================================================
	// Jobs
	// =============================================================================

	// CreateJob inserts a job
	CreateJob(ctx context.Context, job *schema.Job) error
	// GetNextPendingJob retrieves the earliest PENDING job eligible at now
	GetNextPendingJob(ctx context.Context, now time.Time) (*schema.Job, error)
	// ClaimJob moves a PENDING job to PROCESSING and increments its attempts; false when another
	// worker claimed it first
	ClaimJob(ctx context.Context, id string) (bool, error)
	// CompleteJob marks a job DONE
	CompleteJob(ctx context.Context, id string) error
	// RescheduleJob puts a job back to PENDING with a new process_after and error
	RescheduleJob(ctx context.Context, id string, processAfter time.Time, errMsg string) error
	// FailJob marks a job FAILED with an error
	FailJob(ctx context.Context, id string, errMsg string) error
	// GetJob retrieves a job by id
	GetJob(ctx context.Context, id string) (*schema.Job, error)
	// ReleaseStaleJobs returns PROCESSING jobs not updated since olderThan to PENDING
	ReleaseStaleJobs(ctx context.Context, olderThan time.Time) (int64, error)
	// CountJobsByStatus counts jobs per status
	CountJobsByStatus(ctx context.Context) (map[schema.JobStatus]int64, error)

	// =============================================================================
	// Webhooks
	// =============================================================================

	// GetActiveWebhookEndpointsByEventType retrieves ACTIVE endpoints of ACTIVE tenants subscribed to an event type
	GetActiveWebhookEndpointsByEventType(ctx context.Context, eventType domain.EventType) ([]schema.WebhookEndpoint, error)
	// GetWebhookEndpoint retrieves an endpoint by id
	GetWebhookEndpoint(ctx context.Context, id string) (*schema.WebhookEndpoint, error)
	// CreateWebhookDelivery creates a new webhook delivery record
	CreateWebhookDelivery(ctx context.Context, delivery *schema.WebhookDelivery) error
	// GetWebhookDelivery retrieves a delivery by id
	GetWebhookDelivery(ctx context.Context, id string) (*schema.WebhookDelivery, error)
	// UpdateWebhookDeliveryResult records the outcome of a delivery attempt
	UpdateWebhookDeliveryResult(ctx context.Context, input UpdateWebhookDeliveryResultInput) error

	// =============================================================================
	// Metadata cache
	// =============================================================================

	// GetMetadataCache retrieves a cached metadata document by URI
	GetMetadataCache(ctx context.Context, uri string) (*schema.MetadataCache, error)
	// UpsertMetadataCache stores a metadata document for a URI
	UpsertMetadataCache(ctx context.Context, entry schema.MetadataCache) error
}

// UpsertOrderInput represents the data needed to mirror an order
type UpsertOrderInput struct {
	Chain     domain.Chain
	OrderHash string
	Offerer   string

	OfferItemType    domain.ItemType
	OfferToken       string
	OfferIdentifier  string
	OfferStartAmount string
	OfferEndAmount   string

	ConsiderationItemType    domain.ItemType
	ConsiderationToken       string
	ConsiderationIdentifier  string
	ConsiderationStartAmount string
	ConsiderationEndAmount   string
	ConsiderationRecipient   string

	StartTime int64
	EndTime   int64
	Status    schema.OrderStatus

	NFTContract      *string
	NFTTokenID       *string
	PriceRaw         decimal.NullDecimal
	CurrencySymbol   *string
	CurrencyDecimals *int32

	BlockNumber uint64
	TxHash      string
}

// UpdateOrderStatusInput represents a status transition of an order
type UpdateOrderStatusInput struct {
	Chain     domain.Chain
	OrderHash string
	Status    schema.OrderStatus
	// Fulfiller and FulfilledTxHash are set for FULFILLED
	Fulfiller       *string
	FulfilledTxHash *string
	// CancelledTxHash is set for CANCELLED
	CancelledTxHash *string
}

// EnsureTokenInput represents the data needed to create a token
type EnsureTokenInput struct {
	Chain           domain.Chain
	ContractAddress string
	TokenID         string
	Owner           string
}

// UpdateTokenMetadataInput represents resolved metadata of a token
type UpdateTokenMetadataInput struct {
	Chain           domain.Chain
	ContractAddress string
	TokenID         string
	TokenURI        string
	Name            *string
	Description     *string
	Image           *string
	MimeType        *string
	Attributes      datatypes.JSON
	IPType          *string
	LicenseType     *string
	CommercialUse   *string
	Author          *string
}

// CreateTransferInput represents a transfer event to append
type CreateTransferInput struct {
	Chain           domain.Chain
	ContractAddress string
	TokenID         string
	FromAddress     string
	ToAddress       string
	BlockNumber     uint64
	TxHash          string
	LogIndex        uint32
}

// CollectionStats represents the aggregated stats of a collection
type CollectionStats struct {
	HolderCount   int64
	TotalSupply   int64
	FloorPrice    decimal.NullDecimal
	FloorCurrency *string
	TotalVolume   decimal.Decimal
}

// UpdateWebhookDeliveryResultInput represents the outcome of one delivery attempt
type UpdateWebhookDeliveryResultInput struct {
	ID           string
	StatusCode   *int
	ResponseBody *string
	DeliveredAt  *time.Time
}
