package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
	"github.com/feral-file/ff-marketplace-mirror/internal/uri"
)

const (
	// IPFSCacheTTL is how long documents resolved from ipfs:// URIs stay cached
	IPFSCacheTTL = 7 * 24 * time.Hour
	// HTTPCacheTTL is how long documents resolved from http(s) URLs stay cached
	HTTPCacheTTL = 24 * time.Hour
)

// Status is the outcome of a metadata resolution
type Status int

const (
	StatusResolved Status = iota + 1
	StatusTimedOut
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusTimedOut:
		return "timed_out"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of Resolve. Document is set only when Status is StatusResolved.
type Result struct {
	Status      Status
	Document    map[string]interface{}
	ResolvedURL string
	// Cached is set when the result came from the metadata cache
	Cached bool
	Err    error
}

// Resolver fetches metadata documents referenced by token URIs
//
//go:generate mockgen -source=resolver.go -destination=../mocks/metadata_resolver.go -package=mocks -mock_names=Resolver=MockMetadataResolver
type Resolver interface {
	// Resolve fetches the JSON document behind uri, giving up after deadline (0 means no
	// deadline beyond ctx). Gateways are tried in order. Resolved and failed outcomes
	// are cached; timeouts are not.
	Resolve(ctx context.Context, uri string, deadline time.Duration) Result
}

type resolver struct {
	store       store.Store
	httpClient  adapter.HTTPClient
	uriResolver uri.Resolver
	clock       adapter.Clock
}

// NewResolver creates a metadata resolver backed by the metadata_cache table
func NewResolver(st store.Store, httpClient adapter.HTTPClient, uriResolver uri.Resolver, clock adapter.Clock) Resolver {
	return &resolver{
		store:       st,
		httpClient:  httpClient,
		uriResolver: uriResolver,
		clock:       clock,
	}
}

func (r *resolver) Resolve(ctx context.Context, tokenURI string, deadline time.Duration) Result {
	if uri.IsDataURI(tokenURI) {
		return resolveDataURI(tokenURI)
	}

	if deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	if cached, ok := r.fromCache(ctx, tokenURI); ok {
		return cached
	}

	urls, err := r.uriResolver.URLs(tokenURI)
	if err != nil {
		result := Result{Status: StatusFailed, Err: err}
		r.cache(ctx, tokenURI, result)
		return result
	}

	var lastErr error
	for _, url := range urls {
		body, _, err := r.httpClient.GetBytes(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				logger.WarnCtx(ctx, "Metadata resolution timed out",
					zap.String("uri", tokenURI),
					zap.String("url", url),
				)
				return Result{Status: StatusTimedOut, Err: ctx.Err()}
			}
			logger.DebugCtx(ctx, "Metadata source failed, trying next", zap.String("url", url), zap.Error(err))
			lastErr = err
			continue
		}

		doc, err := decodeDocument(body)
		if err != nil {
			logger.DebugCtx(ctx, "Metadata source returned invalid JSON", zap.String("url", url), zap.Error(err))
			lastErr = err
			continue
		}

		result := Result{Status: StatusResolved, Document: doc, ResolvedURL: url}
		r.cache(ctx, tokenURI, result)
		return result
	}

	if lastErr == nil {
		lastErr = errors.New("no metadata source")
	}
	result := Result{Status: StatusFailed, Err: fmt.Errorf("failed to resolve %s: %w", tokenURI, lastErr)}
	r.cache(ctx, tokenURI, result)
	return result
}

// fromCache returns a fresh cache entry as a result. An entry with null content is a
// cached failure.
func (r *resolver) fromCache(ctx context.Context, tokenURI string) (Result, bool) {
	entry, err := r.store.GetMetadataCache(ctx, tokenURI)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to read metadata cache", zap.String("uri", tokenURI), zap.Error(err))
		return Result{}, false
	}
	if entry == nil || entry.Expired(r.clock.Now()) {
		return Result{}, false
	}

	if len(entry.Content) == 0 || string(entry.Content) == "null" {
		return Result{Status: StatusFailed, Cached: true, Err: errors.New("cached resolution failure")}, true
	}

	doc, err := decodeDocument(entry.Content)
	if err != nil {
		return Result{}, false
	}
	result := Result{Status: StatusResolved, Document: doc, Cached: true}
	if entry.ResolvedURL != nil {
		result.ResolvedURL = *entry.ResolvedURL
	}
	return result, true
}

func (r *resolver) cache(ctx context.Context, tokenURI string, result Result) {
	ttl := HTTPCacheTTL
	if uri.IsIPFS(tokenURI) {
		ttl = IPFSCacheTTL
	}

	entry := schema.MetadataCache{
		URI:        tokenURI,
		FetchedAt:  r.clock.Now(),
		TTLSeconds: int64(ttl / time.Second),
	}
	if result.ResolvedURL != "" {
		resolvedURL := result.ResolvedURL
		entry.ResolvedURL = &resolvedURL
	}
	if result.Document != nil {
		content, err := json.Marshal(result.Document)
		if err != nil {
			return
		}
		entry.Content = content
	}

	// written even when the resolution deadline has passed
	if err := r.store.UpsertMetadataCache(context.WithoutCancel(ctx), entry); err != nil {
		logger.WarnCtx(ctx, "Failed to write metadata cache", zap.String("uri", tokenURI), zap.Error(err))
	}
}

func resolveDataURI(tokenURI string) Result {
	parsed, err := uri.ParseDataURI(tokenURI)
	if err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	doc, err := decodeDocument(parsed.DecodedData)
	if err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	return Result{Status: StatusResolved, Document: doc}
}

func decodeDocument(body []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse metadata JSON: %w", err)
	}
	if doc == nil {
		return nil, errors.New("metadata document is not an object")
	}
	return doc, nil
}
