package starknet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/ratelimit"
)

// Starknet JSON-RPC error codes that retrying cannot fix
const (
	codeContractNotFound         = 20
	codeEntrypointNotFound       = 21
	codeBlockNotFound            = 24
	codePageSizeTooBig           = 31
	codeInvalidContinuationToken = 33
	codeTooManyKeysInFilter      = 34
	codeContractError            = 40
)

// order_details felt layout
const (
	orderDetailsMinFelts  = 16
	orderStatusIndex      = 14
	orderFulfillerIndex   = 15
	cairoOptionSome       = 0
	orderOfferOffset      = 1
	orderConsiderationOff = 6
)

// Client is the narrow Starknet RPC surface used by the mirror and the job handlers
//
//go:generate mockgen -source=client.go -destination=../../mocks/starknet_client.go -package=mocks -mock_names=Client=MockStarknetClient
type Client interface {
	// GetEvents returns one page of events matching filter
	GetEvents(ctx context.Context, filter EventFilter) (*EventsPage, error)

	// BlockNumber returns the latest accepted block number
	BlockNumber(ctx context.Context) (uint64, error)

	// GetOrderDetails reads an order from the marketplace contract
	GetOrderDetails(ctx context.Context, orderHash string) (*OrderDetails, error)

	// Nonces reads the marketplace nonce of an address
	Nonces(ctx context.Context, address string) (*uint256.Int, error)

	// TokenURI reads the metadata URI of a token, trying token_uri then tokenURI.
	// Returns domain.ErrNoTokenURI when neither entry point yields a value.
	TokenURI(ctx context.Context, contract, tokenID string) (string, error)

	Close()
}

// Config holds the client settings
type Config struct {
	MarketplaceContract string
	// Timeout bounds each RPC attempt
	Timeout    time.Duration
	MaxRetries uint64
}

type client struct {
	rpc     adapter.RPCClient
	limiter ratelimit.Limiter
	config  Config
}

// NewClient creates a Starknet client. limiter may be nil.
func NewClient(rpcClient adapter.RPCClient, limiter ratelimit.Limiter, cfg Config) Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &client{
		rpc:     rpcClient,
		limiter: limiter,
		config:  cfg,
	}
}

// call performs a rate limited JSON-RPC call, retrying transient failures
func (c *client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	attempt := 0
	operation := func() error {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()

		err := c.rpc.CallContext(callCtx, result, method, args...)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || isPermanent(err) {
			return backoff.Permanent(err)
		}

		logger.WarnCtx(ctx, "Starknet RPC call failed, retrying",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Error(err))
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, c.config.MaxRetries), ctx)); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// isPermanent reports whether err is a JSON-RPC error that a retry cannot fix
func isPermanent(err error) bool {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode != http.StatusTooManyRequests && httpErr.StatusCode < http.StatusInternalServerError
	}

	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	switch rpcErr.ErrorCode() {
	case codeContractNotFound, codeEntrypointNotFound, codeBlockNotFound,
		codePageSizeTooBig, codeInvalidContinuationToken, codeTooManyKeysInFilter,
		codeContractError:
		return true
	case -32600, -32601, -32602:
		return true
	default:
		return false
	}
}

// IsContractError reports whether err was raised by the called contract or entry point
func IsContractError(err error) bool {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	code := rpcErr.ErrorCode()
	return code == codeContractError || code == codeEntrypointNotFound || code == codeContractNotFound
}

func (c *client) GetEvents(ctx context.Context, filter EventFilter) (*EventsPage, error) {
	var page EventsPage
	if err := c.call(ctx, &page, "starknet_getEvents", filter); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *client) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	if err := c.call(ctx, &n, "starknet_blockNumber"); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *client) callContract(ctx context.Context, contract, selector string, calldata []string) ([]string, error) {
	if calldata == nil {
		calldata = []string{}
	}
	req := FunctionCall{
		ContractAddress:    contract,
		EntryPointSelector: selector,
		Calldata:           calldata,
	}
	var result []string
	if err := c.call(ctx, &result, "starknet_call", req, "latest"); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *client) GetOrderDetails(ctx context.Context, orderHash string) (*OrderDetails, error) {
	felts, err := c.callContract(ctx, c.config.MarketplaceContract, selectorGetOrderDetails, []string{domain.NormalizeFelt(orderHash)})
	if err != nil {
		return nil, err
	}
	return ParseOrderDetails(felts)
}

// ParseOrderDetails decodes the serialized OrderDetails struct
func ParseOrderDetails(felts []string) (*OrderDetails, error) {
	if len(felts) < orderDetailsMinFelts {
		return nil, fmt.Errorf("%w: order details has %d felts", domain.ErrMalformedEvent, len(felts))
	}

	offer, err := parseOfferItem(felts[orderOfferOffset : orderOfferOffset+5])
	if err != nil {
		return nil, fmt.Errorf("failed to parse offer: %w", err)
	}
	consOffer, err := parseOfferItem(felts[orderConsiderationOff : orderConsiderationOff+5])
	if err != nil {
		return nil, fmt.Errorf("failed to parse consideration: %w", err)
	}

	startTime, err := FeltToUint64(felts[12])
	if err != nil {
		return nil, err
	}
	endTime, err := FeltToUint64(felts[13])
	if err != nil {
		return nil, err
	}
	status, err := FeltToUint64(felts[orderStatusIndex])
	if err != nil {
		return nil, err
	}

	details := &OrderDetails{
		Offerer: domain.NormalizeAddress(felts[0]),
		Offer:   *offer,
		Consideration: ConsiderationItem{
			OfferItem: *consOffer,
			Recipient: domain.NormalizeAddress(felts[11]),
		},
		StartTime: startTime,
		EndTime:   endTime,
		Status:    OrderStatus(status),
	}

	variant, err := FeltToUint64(felts[orderFulfillerIndex])
	if err != nil {
		return nil, err
	}
	if variant == cairoOptionSome {
		if len(felts) <= orderFulfillerIndex+1 {
			return nil, fmt.Errorf("%w: fulfiller option missing value", domain.ErrMalformedEvent)
		}
		fulfiller := domain.NormalizeAddress(felts[orderFulfillerIndex+1])
		details.Fulfiller = &fulfiller
	}

	return details, nil
}

func parseOfferItem(felts []string) (*OfferItem, error) {
	itemType, err := DecodeShortString(felts[0])
	if err != nil {
		return nil, err
	}
	identifier, err := domain.FeltToDecimal(felts[2])
	if err != nil {
		return nil, err
	}
	start, err := domain.FeltToDecimal(felts[3])
	if err != nil {
		return nil, err
	}
	end, err := domain.FeltToDecimal(felts[4])
	if err != nil {
		return nil, err
	}
	return &OfferItem{
		ItemType:    domain.ItemType(itemType),
		Token:       domain.NormalizeAddress(felts[1]),
		Identifier:  identifier,
		StartAmount: start,
		EndAmount:   end,
	}, nil
}

func (c *client) Nonces(ctx context.Context, address string) (*uint256.Int, error) {
	felts, err := c.callContract(ctx, c.config.MarketplaceContract, selectorNonces, []string{domain.NormalizeAddress(address)})
	if err != nil {
		return nil, err
	}
	if len(felts) == 0 {
		return nil, fmt.Errorf("%w: empty nonces result", domain.ErrMalformedEvent)
	}
	return feltToU256(felts[0])
}

func (c *client) TokenURI(ctx context.Context, contract, tokenID string) (string, error) {
	low, high, err := SplitU256(tokenID)
	if err != nil {
		return "", fmt.Errorf("invalid token id: %w", err)
	}

	var lastErr error
	for _, selector := range []string{selectorTokenURI, selectorTokenURICamel} {
		felts, err := c.callContract(ctx, domain.NormalizeAddress(contract), selector, []string{low, high})
		if err != nil {
			if !IsContractError(err) {
				return "", err
			}
			lastErr = err
			continue
		}
		uri, err := DecodeString(felts)
		if err != nil {
			lastErr = err
			continue
		}
		if uri != "" {
			return uri, nil
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrNoTokenURI, lastErr)
	}
	return "", domain.ErrNoTokenURI
}

func (c *client) Close() {
	c.rpc.Close()
}
