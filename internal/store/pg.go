package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
)

const pgUniqueViolation = "23505"

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool applies pool settings to the sql.DB behind a gorm connection.
// Zero values fall back to the defaults of NormalizeConnectionPoolSettings.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults (20 open, 5 idle, 5m lifetime, 10m idle time)
// and keeps the idle pool within the open limit
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns <= 0 {
		maxOpenConns = 20
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// translateError maps unique violations to domain.ErrDuplicate
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.ErrDuplicate
	}
	return err
}

// WithTx runs fn inside a transaction; nested calls use savepoints
func (s *pgStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}

// Ping checks the database connection
func (s *pgStore) Ping(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("SELECT 1").Error
}

// =============================================================================
// Cursor
// =============================================================================

// GetCursor retrieves the cursor of a chain
func (s *pgStore) GetCursor(ctx context.Context, chain domain.Chain) (*schema.IndexerCursor, error) {
	var cursor schema.IndexerCursor
	err := s.db.WithContext(ctx).Where("chain = ?", chain).First(&cursor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cursor: %w", err)
	}
	return &cursor, nil
}

// SaveCursor upserts the cursor of a chain
func (s *pgStore) SaveCursor(ctx context.Context, cursor schema.IndexerCursor) error {
	cursor.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chain"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_block", "continuation_token", "updated_at"}),
	}).Create(&cursor).Error
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

// =============================================================================
// Orders
// =============================================================================

// UpsertOrder inserts an order or refreshes its offerer, NFT side and price on conflict.
// The status of an existing order is left untouched.
func (s *pgStore) UpsertOrder(ctx context.Context, input UpsertOrderInput) error {
	status := input.Status
	if status == "" {
		status = schema.OrderStatusActive
	}
	now := time.Now()
	order := schema.Order{
		Chain:                    input.Chain,
		OrderHash:                input.OrderHash,
		Offerer:                  input.Offerer,
		OfferItemType:            string(input.OfferItemType),
		OfferToken:               input.OfferToken,
		OfferIdentifier:          input.OfferIdentifier,
		OfferStartAmount:         input.OfferStartAmount,
		OfferEndAmount:           input.OfferEndAmount,
		ConsiderationItemType:    string(input.ConsiderationItemType),
		ConsiderationToken:       input.ConsiderationToken,
		ConsiderationIdentifier:  input.ConsiderationIdentifier,
		ConsiderationStartAmount: input.ConsiderationStartAmount,
		ConsiderationEndAmount:   input.ConsiderationEndAmount,
		ConsiderationRecipient:   input.ConsiderationRecipient,
		StartTime:                input.StartTime,
		EndTime:                  input.EndTime,
		Status:                   status,
		NFTContract:              input.NFTContract,
		NFTTokenID:               input.NFTTokenID,
		PriceRaw:                 input.PriceRaw,
		CurrencySymbol:           input.CurrencySymbol,
		CurrencyDecimals:         input.CurrencyDecimals,
		CreatedBlockNumber:       input.BlockNumber,
		CreatedTxHash:            input.TxHash,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chain"}, {Name: "order_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"offerer",
			"nft_contract",
			"nft_token_id",
			"price_raw",
			"currency_symbol",
			"currency_decimals",
			"updated_at",
		}),
	}).Create(&order).Error
	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}
	return nil
}

// UpdateOrderStatus conditionally updates an order by hash
func (s *pgStore) UpdateOrderStatus(ctx context.Context, input UpdateOrderStatusInput) (bool, error) {
	updates := map[string]interface{}{
		"status":     input.Status,
		"updated_at": time.Now(),
	}
	if input.Fulfiller != nil {
		updates["fulfiller"] = *input.Fulfiller
	}
	if input.FulfilledTxHash != nil {
		updates["fulfilled_tx_hash"] = *input.FulfilledTxHash
	}
	if input.CancelledTxHash != nil {
		updates["cancelled_tx_hash"] = *input.CancelledTxHash
	}

	result := s.db.WithContext(ctx).
		Model(&schema.Order{}).
		Where("chain = ? AND order_hash = ?", input.Chain, input.OrderHash).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update order status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetOrderByHash retrieves an order by its hash
func (s *pgStore) GetOrderByHash(ctx context.Context, chain domain.Chain, orderHash string) (*schema.Order, error) {
	var order schema.Order
	err := s.db.WithContext(ctx).
		Where("chain = ? AND order_hash = ?", chain, orderHash).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// ExpireOrders marks ACTIVE orders ending before now as EXPIRED
func (s *pgStore) ExpireOrders(ctx context.Context, chain domain.Chain, now time.Time) (int64, []string, error) {
	var expired []schema.Order
	err := s.db.WithContext(ctx).
		Model(&expired).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}, {Name: "nft_contract"}}}).
		Where("chain = ? AND status = ? AND end_time < ?", chain, schema.OrderStatusActive, now.Unix()).
		Updates(map[string]interface{}{
			"status":     schema.OrderStatusExpired,
			"updated_at": now,
		}).Error
	if err != nil {
		return 0, nil, fmt.Errorf("failed to expire orders: %w", err)
	}

	seen := make(map[string]struct{})
	var contracts []string
	for _, o := range expired {
		if o.NFTContract == nil {
			continue
		}
		if _, ok := seen[*o.NFTContract]; ok {
			continue
		}
		seen[*o.NFTContract] = struct{}{}
		contracts = append(contracts, *o.NFTContract)
	}
	return int64(len(expired)), contracts, nil
}

// =============================================================================
// Collections
// =============================================================================

// EnsureCollection creates a collection unless it already exists
func (s *pgStore) EnsureCollection(ctx context.Context, chain domain.Chain, contractAddress string, startBlock uint64) error {
	now := time.Now()
	collection := schema.Collection{
		Chain:           chain,
		ContractAddress: contractAddress,
		StartBlock:      startBlock,
		TotalVolume:     decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chain"}, {Name: "contract_address"}},
		DoNothing: true,
	}).Create(&collection).Error
	if err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}
	return nil
}

// GetCollection retrieves a collection by contract address
func (s *pgStore) GetCollection(ctx context.Context, chain domain.Chain, contractAddress string) (*schema.Collection, error) {
	var collection schema.Collection
	err := s.db.WithContext(ctx).
		Where("chain = ? AND contract_address = ?", chain, contractAddress).
		First(&collection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return &collection, nil
}

// ComputeCollectionStats aggregates the stats of a collection in SQL.
// Tokens held by the zero address are treated as burned.
func (s *pgStore) ComputeCollectionStats(ctx context.Context, chain domain.Chain, contractAddress string, now time.Time) (*CollectionStats, error) {
	db := s.db.WithContext(ctx)

	var supply struct {
		HolderCount int64
		TotalSupply int64
	}
	err := db.Model(&schema.Token{}).
		Select("COUNT(DISTINCT owner) AS holder_count, COUNT(*) AS total_supply").
		Where("chain = ? AND contract_address = ? AND owner <> ?", chain, contractAddress, domain.STARKNET_ZERO_ADDRESS).
		Scan(&supply).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count collection tokens: %w", err)
	}

	var floor struct {
		FloorPrice    decimal.NullDecimal
		FloorCurrency *string
	}
	err = db.Model(&schema.Order{}).
		Select("MIN(price_raw) AS floor_price, (ARRAY_AGG(currency_symbol ORDER BY price_raw ASC))[1] AS floor_currency").
		Where("chain = ? AND nft_contract = ? AND status = ? AND end_time > ? AND price_raw IS NOT NULL",
			chain, contractAddress, schema.OrderStatusActive, now.Unix()).
		Scan(&floor).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute floor price: %w", err)
	}

	var volume struct {
		TotalVolume decimal.Decimal
	}
	err = db.Model(&schema.Order{}).
		Select("COALESCE(SUM(price_raw), 0) AS total_volume").
		Where("chain = ? AND nft_contract = ? AND status = ?", chain, contractAddress, schema.OrderStatusFulfilled).
		Scan(&volume).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute total volume: %w", err)
	}

	stats := &CollectionStats{
		HolderCount: supply.HolderCount,
		TotalSupply: supply.TotalSupply,
		FloorPrice:  floor.FloorPrice,
		TotalVolume: volume.TotalVolume,
	}
	if floor.FloorPrice.Valid {
		stats.FloorCurrency = floor.FloorCurrency
	}
	return stats, nil
}

// UpdateCollectionStats stores aggregated stats on a collection
func (s *pgStore) UpdateCollectionStats(ctx context.Context, chain domain.Chain, contractAddress string, stats CollectionStats) error {
	now := time.Now()
	err := s.db.WithContext(ctx).
		Model(&schema.Collection{}).
		Where("chain = ? AND contract_address = ?", chain, contractAddress).
		Updates(map[string]interface{}{
			"holder_count":     stats.HolderCount,
			"total_supply":     stats.TotalSupply,
			"floor_price":      stats.FloorPrice,
			"floor_currency":   stats.FloorCurrency,
			"total_volume":     stats.TotalVolume,
			"stats_updated_at": now,
			"updated_at":       now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update collection stats: %w", err)
	}
	return nil
}

// =============================================================================
// Tokens
// =============================================================================

func newToken(input EnsureTokenInput) schema.Token {
	now := time.Now()
	return schema.Token{
		Chain:           input.Chain,
		ContractAddress: input.ContractAddress,
		TokenID:         input.TokenID,
		Owner:           input.Owner,
		MetadataStatus:  schema.MetadataStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

var tokenConflictColumns = []clause.Column{{Name: "chain"}, {Name: "contract_address"}, {Name: "token_id"}}

// EnsureToken creates a token unless it already exists
func (s *pgStore) EnsureToken(ctx context.Context, input EnsureTokenInput) error {
	token := newToken(input)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   tokenConflictColumns,
		DoNothing: true,
	}).Create(&token).Error
	if err != nil {
		return fmt.Errorf("failed to ensure token: %w", err)
	}
	return nil
}

// UpsertTokenOwner creates a token or sets its owner when it already exists
func (s *pgStore) UpsertTokenOwner(ctx context.Context, input EnsureTokenInput) error {
	token := newToken(input)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   tokenConflictColumns,
		DoUpdates: clause.AssignmentColumns([]string{"owner", "updated_at"}),
	}).Create(&token).Error
	if err != nil {
		return fmt.Errorf("failed to upsert token owner: %w", err)
	}
	return nil
}

// UpdateTokenOwner updates the owner of a token by natural key
func (s *pgStore) UpdateTokenOwner(ctx context.Context, chain domain.Chain, contractAddress, tokenID, owner string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&schema.Token{}).
		Where("chain = ? AND contract_address = ? AND token_id = ?", chain, contractAddress, tokenID).
		Updates(map[string]interface{}{
			"owner":      owner,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update token owner: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetToken retrieves a token by natural key
func (s *pgStore) GetToken(ctx context.Context, chain domain.Chain, contractAddress, tokenID string) (*schema.Token, error) {
	var token schema.Token
	err := s.db.WithContext(ctx).
		Where("chain = ? AND contract_address = ? AND token_id = ?", chain, contractAddress, tokenID).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &token, nil
}

// GetPendingMetadataTokens lists PENDING tokens without a token URI
func (s *pgStore) GetPendingMetadataTokens(ctx context.Context, chain domain.Chain, contractAddresses []string, limit int) ([]schema.Token, error) {
	if len(contractAddresses) == 0 || limit <= 0 {
		return nil, nil
	}

	var tokens []schema.Token
	err := s.db.WithContext(ctx).
		Where("chain = ? AND contract_address IN ? AND metadata_status = ? AND token_uri IS NULL",
			chain, contractAddresses, schema.MetadataStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pending metadata tokens: %w", err)
	}
	return tokens, nil
}

// MarkTokenMetadataFetching moves a token from PENDING to FETCHING
func (s *pgStore) MarkTokenMetadataFetching(ctx context.Context, chain domain.Chain, contractAddress, tokenID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&schema.Token{}).
		Where("chain = ? AND contract_address = ? AND token_id = ? AND metadata_status = ?",
			chain, contractAddress, tokenID, schema.MetadataStatusPending).
		Updates(map[string]interface{}{
			"metadata_status": schema.MetadataStatusFetching,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark token metadata fetching: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateTokenMetadata stores resolved metadata and sets the status to FETCHED
func (s *pgStore) UpdateTokenMetadata(ctx context.Context, input UpdateTokenMetadataInput) error {
	updates := map[string]interface{}{
		"token_uri":       input.TokenURI,
		"metadata_status": schema.MetadataStatusFetched,
		"name":            input.Name,
		"description":     input.Description,
		"image":           input.Image,
		"mime_type":       input.MimeType,
		"ip_type":         input.IPType,
		"license_type":    input.LicenseType,
		"commercial_use":  input.CommercialUse,
		"author":          input.Author,
		"updated_at":      time.Now(),
	}
	if len(input.Attributes) > 0 {
		updates["attributes"] = input.Attributes
	}

	err := s.db.WithContext(ctx).
		Model(&schema.Token{}).
		Where("chain = ? AND contract_address = ? AND token_id = ?", input.Chain, input.ContractAddress, input.TokenID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update token metadata: %w", err)
	}
	return nil
}

// SetTokenMetadataStatus sets the metadata status of a token
func (s *pgStore) SetTokenMetadataStatus(ctx context.Context, chain domain.Chain, contractAddress, tokenID string, status schema.MetadataStatus, tokenURI *string) error {
	updates := map[string]interface{}{
		"metadata_status": status,
		"updated_at":      time.Now(),
	}
	if tokenURI != nil {
		updates["token_uri"] = *tokenURI
	}

	err := s.db.WithContext(ctx).
		Model(&schema.Token{}).
		Where("chain = ? AND contract_address = ? AND token_id = ?", chain, contractAddress, tokenID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to set token metadata status: %w", err)
	}
	return nil
}

// =============================================================================
// Transfers
// =============================================================================

// CreateTransfer appends a transfer; a replay hits the natural key and returns domain.ErrDuplicate
func (s *pgStore) CreateTransfer(ctx context.Context, input CreateTransferInput) error {
	transfer := schema.Transfer{
		Chain:           input.Chain,
		ContractAddress: input.ContractAddress,
		TokenID:         input.TokenID,
		FromAddress:     input.FromAddress,
		ToAddress:       input.ToAddress,
		BlockNumber:     input.BlockNumber,
		TxHash:          input.TxHash,
		LogIndex:        input.LogIndex,
		CreatedAt:       time.Now(),
	}

	// DO NOTHING keeps the surrounding transaction usable on a replay
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "chain"},
			{Name: "contract_address"},
			{Name: "token_id"},
			{Name: "tx_hash"},
			{Name: "log_index"},
		},
		DoNothing: true,
	}).Create(&transfer)
	if result.Error != nil {
		if err := translateError(result.Error); errors.Is(err, domain.ErrDuplicate) {
			return err
		}
		return fmt.Errorf("failed to create transfer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

// GetTransfers lists transfers of a token ordered by chain position
func (s *pgStore) GetTransfers(ctx context.Context, chain domain.Chain, contractAddress, tokenID string) ([]schema.Transfer, error) {
	var transfers []schema.Transfer
	err := s.db.WithContext(ctx).
		Where("chain = ? AND contract_address = ? AND token_id = ?", chain, contractAddress, tokenID).
		Order("block_number ASC, log_index ASC").
		Find(&transfers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers: %w", err)
	}
	return transfers, nil
}

// =============================================================================
// Jobs
// =============================================================================

// CreateJob inserts a job
func (s *pgStore) CreateJob(ctx context.Context, job *schema.Job) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", translateError(err))
	}
	return nil
}

// GetNextPendingJob retrieves the earliest PENDING job eligible at now
func (s *pgStore) GetNextPendingJob(ctx context.Context, now time.Time) (*schema.Job, error) {
	var job schema.Job
	err := s.db.WithContext(ctx).
		Where("status = ? AND process_after <= ?", schema.JobStatusPending, now).
		Order("process_after ASC, id ASC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get next pending job: %w", err)
	}
	return &job, nil
}

// ClaimJob moves a PENDING job to PROCESSING. The status predicate makes concurrent claims
// of the same job succeed at most once.
func (s *pgStore) ClaimJob(ctx context.Context, id string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&schema.Job{}).
		Where("id = ? AND status = ?", id, schema.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     schema.JobStatusProcessing,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim job: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// CompleteJob marks a job DONE
func (s *pgStore) CompleteJob(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).
		Model(&schema.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     schema.JobStatusDone,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// RescheduleJob puts a job back to PENDING
func (s *pgStore) RescheduleJob(ctx context.Context, id string, processAfter time.Time, errMsg string) error {
	err := s.db.WithContext(ctx).
		Model(&schema.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        schema.JobStatusPending,
			"process_after": processAfter,
			"error":         errMsg,
			"updated_at":    time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to reschedule job: %w", err)
	}
	return nil
}

// FailJob marks a job FAILED
func (s *pgStore) FailJob(ctx context.Context, id string, errMsg string) error {
	err := s.db.WithContext(ctx).
		Model(&schema.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     schema.JobStatusFailed,
			"error":      errMsg,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by id
func (s *pgStore) GetJob(ctx context.Context, id string) (*schema.Job, error) {
	var job schema.Job
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ReleaseStaleJobs returns PROCESSING jobs not updated since olderThan to PENDING
func (s *pgStore) ReleaseStaleJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&schema.Job{}).
		Where("status = ? AND updated_at < ?", schema.JobStatusProcessing, olderThan).
		Updates(map[string]interface{}{
			"status":        schema.JobStatusPending,
			"process_after": now,
			"error":         "released after processing timeout",
			"updated_at":    now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to release stale jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountJobsByStatus counts jobs per status
func (s *pgStore) CountJobsByStatus(ctx context.Context) (map[schema.JobStatus]int64, error) {
	var rows []struct {
		Status schema.JobStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&schema.Job{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	counts := map[schema.JobStatus]int64{
		schema.JobStatusPending:    0,
		schema.JobStatusProcessing: 0,
		schema.JobStatusDone:       0,
		schema.JobStatusFailed:     0,
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// =============================================================================
// Webhooks
// =============================================================================

// GetActiveWebhookEndpointsByEventType retrieves ACTIVE endpoints of ACTIVE tenants subscribed to an event type
func (s *pgStore) GetActiveWebhookEndpointsByEventType(ctx context.Context, eventType domain.EventType) ([]schema.WebhookEndpoint, error) {
	filter, err := json.Marshal([]domain.EventType{eventType})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event filter: %w", err)
	}

	var endpoints []schema.WebhookEndpoint
	err = s.db.WithContext(ctx).
		Joins("JOIN tenants ON tenants.id = webhook_endpoints.tenant_id").
		Where("webhook_endpoints.status = ? AND tenants.status = ?",
			schema.WebhookEndpointStatusActive, schema.TenantStatusActive).
		Where("webhook_endpoints.events @> ?::jsonb", string(filter)).
		Order("webhook_endpoints.created_at ASC").
		Find(&endpoints).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook endpoints by event type: %w", err)
	}
	return endpoints, nil
}

// GetWebhookEndpoint retrieves an endpoint by id
func (s *pgStore) GetWebhookEndpoint(ctx context.Context, id string) (*schema.WebhookEndpoint, error) {
	var endpoint schema.WebhookEndpoint
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&endpoint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get webhook endpoint: %w", err)
	}
	return &endpoint, nil
}

// CreateWebhookDelivery creates a new webhook delivery record
func (s *pgStore) CreateWebhookDelivery(ctx context.Context, delivery *schema.WebhookDelivery) error {
	now := time.Now()
	delivery.CreatedAt = now
	delivery.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return fmt.Errorf("failed to create webhook delivery: %w", translateError(err))
	}
	return nil
}

// GetWebhookDelivery retrieves a delivery by id
func (s *pgStore) GetWebhookDelivery(ctx context.Context, id string) (*schema.WebhookDelivery, error) {
	var delivery schema.WebhookDelivery
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&delivery).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get webhook delivery: %w", err)
	}
	return &delivery, nil
}

// UpdateWebhookDeliveryResult records the outcome of a delivery attempt
func (s *pgStore) UpdateWebhookDeliveryResult(ctx context.Context, input UpdateWebhookDeliveryResultInput) error {
	updates := map[string]interface{}{
		"status_code":   input.StatusCode,
		"response_body": input.ResponseBody,
		"updated_at":    time.Now(),
	}
	if input.DeliveredAt != nil {
		updates["delivered_at"] = *input.DeliveredAt
	}

	err := s.db.WithContext(ctx).
		Model(&schema.WebhookDelivery{}).
		Where("id = ?", input.ID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update webhook delivery result: %w", err)
	}
	return nil
}

// =============================================================================
// Metadata cache
// =============================================================================

// GetMetadataCache retrieves a cached metadata document by URI
func (s *pgStore) GetMetadataCache(ctx context.Context, uri string) (*schema.MetadataCache, error) {
	var entry schema.MetadataCache
	err := s.db.WithContext(ctx).Where("uri = ?", uri).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get metadata cache: %w", err)
	}
	return &entry, nil
}

// UpsertMetadataCache stores a metadata document for a URI
func (s *pgStore) UpsertMetadataCache(ctx context.Context, entry schema.MetadataCache) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uri"}},
		DoUpdates: clause.AssignmentColumns([]string{"resolved_url", "content", "fetched_at", "ttl_seconds"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to upsert metadata cache: %w", err)
	}
	return nil
}
