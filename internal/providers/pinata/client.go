package pinata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
)

const (
	PIN_BY_HASH_PATH    = "/pinning/pinByHash"
	PIN_REQUEST_TIMEOUT = 30 * time.Second

	maxErrorBody = 512
)

// Config holds Pinata API configuration
type Config struct {
	// JWT is the API key JWT; pinning is skipped when empty
	JWT string
	// APIURL defaults to domain.DEFAULT_PINATA_API_URL
	APIURL string
}

// Pinner keeps IPFS content hosted on a pinning service
//
//go:generate mockgen -source=client.go -destination=../../mocks/pinata.go -package=mocks -mock_names=Pinner=MockPinner
type Pinner interface {
	// PinByHash asks the service to fetch and pin an already published CID
	PinByHash(ctx context.Context, cid string) error
}

type client struct {
	httpClient adapter.HTTPClient
	config     Config
}

// NewClient creates a Pinata client
func NewClient(httpClient adapter.HTTPClient, cfg Config) Pinner {
	if cfg.APIURL == "" {
		cfg.APIURL = domain.DEFAULT_PINATA_API_URL
	}
	cfg.APIURL = strings.TrimSuffix(cfg.APIURL, "/")
	return &client{httpClient: httpClient, config: cfg}
}

type pinByHashRequest struct {
	HashToPin      string         `json:"hashToPin"`
	PinataMetadata pinataMetadata `json:"pinataMetadata"`
}

type pinataMetadata struct {
	Name string `json:"name"`
}

func (c *client) PinByHash(ctx context.Context, cid string) error {
	if cid == "" {
		logger.WarnCtx(ctx, "Pin request without cid, skipping")
		return nil
	}
	if c.config.JWT == "" {
		logger.DebugCtx(ctx, "Pinata JWT not configured, skipping pin", zap.String("cid", cid))
		return nil
	}

	body, err := json.Marshal(pinByHashRequest{
		HashToPin:      cid,
		PinataMetadata: pinataMetadata{Name: cid},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal pin request: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, adapter.HTTPRequest{
		Method: http.MethodPost,
		URL:    c.config.APIURL + PIN_BY_HASH_PATH,
		Headers: map[string]string{
			"Authorization": "Bearer " + c.config.JWT,
			"Content-Type":  "application/json",
		},
		Body:    body,
		Timeout: PIN_REQUEST_TIMEOUT,
	}, maxErrorBody)
	if err != nil {
		return fmt.Errorf("failed to pin %s: %w", cid, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pinata returned %d for %s: %s", resp.StatusCode, cid, string(resp.Body))
	}

	logger.InfoCtx(ctx, "CID pinned", zap.String("cid", cid))
	return nil
}
