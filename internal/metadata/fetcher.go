package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/providers/starknet"
	"github.com/feral-file/ff-marketplace-mirror/internal/queue"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
	"github.com/feral-file/ff-marketplace-mirror/internal/uri"
)

// DefaultFetchTimeout bounds one metadata resolution
const DefaultFetchTimeout = 10 * time.Second

// ErrResolutionTimedOut is returned by Fetch when the document could not be fetched
// before the deadline; the job is retried
var ErrResolutionTimedOut = errors.New("metadata resolution timed out")

// Fetcher populates token metadata from the token URI published by the collection contract
//
//go:generate mockgen -source=fetcher.go -destination=../mocks/metadata_fetcher.go -package=mocks -mock_names=Fetcher=MockMetadataFetcher
type Fetcher interface {
	// Fetch reads the token URI on chain, resolves the document and stores its fields.
	// The token ends FETCHED or FAILED. A timed out resolution puts it back to PENDING
	// for the next attempt, or marks it FAILED when lastAttempt is set.
	Fetch(ctx context.Context, payload queue.MetadataFetchPayload, lastAttempt bool) error
}

// FetcherConfig holds the configuration of the metadata fetcher
type FetcherConfig struct {
	Timeout time.Duration
}

type fetcher struct {
	store    store.Store
	client   starknet.Client
	resolver Resolver
	checker  uri.DataURIChecker
	queue    queue.Queue
	config   FetcherConfig
}

// NewFetcher creates the METADATA_FETCH handler
func NewFetcher(st store.Store, client starknet.Client, resolver Resolver, checker uri.DataURIChecker, q queue.Queue, cfg FetcherConfig) Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	return &fetcher{
		store:    st,
		client:   client,
		resolver: resolver,
		checker:  checker,
		queue:    q,
		config:   cfg,
	}
}

func (f *fetcher) Fetch(ctx context.Context, p queue.MetadataFetchPayload, lastAttempt bool) error {
	fields := []zap.Field{
		zap.String("chain", string(p.Chain)),
		zap.String("contract_address", p.ContractAddress),
		zap.String("token_id", p.TokenID),
	}

	// a token already FETCHING is a retry of this job, so it is processed either way
	if _, err := f.store.MarkTokenMetadataFetching(ctx, p.Chain, p.ContractAddress, p.TokenID); err != nil {
		return fmt.Errorf("failed to mark token fetching: %w", err)
	}

	tokenURI, err := f.client.TokenURI(ctx, p.ContractAddress, p.TokenID)
	if err != nil {
		if errors.Is(err, domain.ErrNoTokenURI) {
			logger.WarnCtx(ctx, "No token URI found", fields...)
			return f.setStatus(ctx, p, schema.MetadataStatusFailed, nil)
		}
		if statusErr := f.setStatus(ctx, p, schema.MetadataStatusFailed, nil); statusErr != nil {
			logger.ErrorCtx(ctx, statusErr, fields...)
		}
		return fmt.Errorf("failed to read token URI: %w", err)
	}

	result := f.resolver.Resolve(ctx, tokenURI, f.config.Timeout)
	switch result.Status {
	case StatusResolved:
		if err := f.store.UpdateTokenMetadata(ctx, f.updateInput(p, tokenURI, result.Document)); err != nil {
			return err
		}
	case StatusTimedOut:
		if lastAttempt {
			if err := f.setStatus(ctx, p, schema.MetadataStatusFailed, &tokenURI); err != nil {
				return err
			}
			return fmt.Errorf("%w: %s", ErrResolutionTimedOut, tokenURI)
		}
		// token_uri stays unset so the mirror can still pick the token up as pending
		if err := f.setStatus(ctx, p, schema.MetadataStatusPending, nil); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrResolutionTimedOut, tokenURI)
	default:
		logger.WarnCtx(ctx, "Failed to resolve metadata",
			append(fields, zap.String("token_uri", tokenURI), zap.Bool("cached", result.Cached), zap.Error(result.Err))...)
		if err := f.setStatus(ctx, p, schema.MetadataStatusFailed, &tokenURI); err != nil {
			return err
		}
	}

	if cid, ok := uri.ExtractCID(tokenURI); ok && uri.IsIPFS(tokenURI) {
		if _, err := f.queue.Enqueue(ctx, schema.JobTypeMetadataPin, queue.MetadataPinPayload{CID: cid}, queue.EnqueueOptions{}); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to enqueue metadata pin: %w", err), zap.String("cid", cid))
		}
	}

	logger.DebugCtx(ctx, "Metadata fetched",
		append(fields, zap.String("token_uri", tokenURI), zap.String("status", result.Status.String()))...)
	return nil
}

func (f *fetcher) updateInput(p queue.MetadataFetchPayload, tokenURI string, doc map[string]interface{}) store.UpdateTokenMetadataInput {
	normalized := Normalize(doc)
	return store.UpdateTokenMetadataInput{
		Chain:           p.Chain,
		ContractAddress: p.ContractAddress,
		TokenID:         p.TokenID,
		TokenURI:        tokenURI,
		Name:            normalized.Name,
		Description:     normalized.Description,
		Image:           normalized.Image,
		MimeType:        detectMimeType(f.checker, normalized.Image),
		Attributes:      normalized.Attributes,
		IPType:          normalized.IPType,
		LicenseType:     normalized.LicenseType,
		CommercialUse:   normalized.CommercialUse,
		Author:          normalized.Author,
	}
}

func (f *fetcher) setStatus(ctx context.Context, p queue.MetadataFetchPayload, status schema.MetadataStatus, tokenURI *string) error {
	if err := f.store.SetTokenMetadataStatus(ctx, p.Chain, p.ContractAddress, p.TokenID, status, tokenURI); err != nil {
		return fmt.Errorf("failed to set metadata status: %w", err)
	}
	return nil
}
