package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/providers/starknet"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
)

// Applier writes the effect of a decoded event to the database
//
//go:generate mockgen -source=applier.go -destination=../mocks/mirror_applier.go -package=mocks -mock_names=Applier=MockApplier
type Applier interface {
	// Apply applies one event on a transactional store. It returns the collection contract
	// whose derived data (metadata, stats) the event touched, or an empty string.
	Apply(ctx context.Context, tx store.Store, event domain.Event) (string, error)
}

type applier struct {
	chain  domain.Chain
	client starknet.Client
}

// NewApplier creates the event applier of a chain
func NewApplier(chain domain.Chain, client starknet.Client) Applier {
	return &applier{chain: chain, client: client}
}

// Apply dispatches by event kind
func (a *applier) Apply(ctx context.Context, tx store.Store, event domain.Event) (string, error) {
	switch e := event.(type) {
	case *domain.OrderCreated:
		return a.applyOrderCreated(ctx, tx, e)
	case *domain.OrderFulfilled:
		return "", a.applyOrderFulfilled(ctx, tx, e)
	case *domain.OrderCancelled:
		return "", a.applyOrderCancelled(ctx, tx, e)
	case *domain.Transfer:
		return e.ContractAddress, a.applyTransfer(ctx, tx, e)
	default:
		return "", fmt.Errorf("%w: %T", domain.ErrUnknownSelector, event)
	}
}

// applyOrderCreated mirrors the order as the contract reports it now
func (a *applier) applyOrderCreated(ctx context.Context, tx store.Store, e *domain.OrderCreated) (string, error) {
	details, err := a.client.GetOrderDetails(ctx, e.OrderHash)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		logger.ErrorCtx(ctx, fmt.Errorf("failed to fetch order details: %w", err),
			zap.String("order_hash", e.OrderHash),
			zap.String("tx_hash", e.TxHash),
		)
		return "", nil
	}

	input := store.UpsertOrderInput{
		Chain:     a.chain,
		OrderHash: e.OrderHash,
		Offerer:   details.Offerer,

		OfferItemType:    details.Offer.ItemType,
		OfferToken:       details.Offer.Token,
		OfferIdentifier:  details.Offer.Identifier,
		OfferStartAmount: details.Offer.StartAmount,
		OfferEndAmount:   details.Offer.EndAmount,

		ConsiderationItemType:    details.Consideration.ItemType,
		ConsiderationToken:       details.Consideration.Token,
		ConsiderationIdentifier:  details.Consideration.Identifier,
		ConsiderationStartAmount: details.Consideration.StartAmount,
		ConsiderationEndAmount:   details.Consideration.EndAmount,
		ConsiderationRecipient:   details.Consideration.Recipient,

		StartTime: int64(details.StartTime), //nolint:gosec,G115
		EndTime:   int64(details.EndTime),   //nolint:gosec,G115
		Status:    schema.OrderStatusActive,

		BlockNumber: e.BlockNumber,
		TxHash:      e.TxHash,
	}

	price, err := decimal.NewFromString(details.Consideration.StartAmount)
	if err == nil {
		input.PriceRaw = decimal.NullDecimal{Decimal: price, Valid: true}
	}
	if token, ok := domain.LookupSupportedToken(details.Consideration.Token); ok {
		symbol := token.Symbol
		decimals := token.Decimals
		input.CurrencySymbol = &symbol
		input.CurrencyDecimals = &decimals
	}

	var nftContract string
	if details.Offer.ItemType.IsNFT() {
		nftContract = details.Offer.Token
		tokenID := details.Offer.Identifier
		input.NFTContract = &nftContract
		input.NFTTokenID = &tokenID

		if err := tx.EnsureCollection(ctx, a.chain, nftContract, e.BlockNumber); err != nil {
			return "", err
		}
		if err := tx.EnsureToken(ctx, store.EnsureTokenInput{
			Chain:           a.chain,
			ContractAddress: nftContract,
			TokenID:         tokenID,
			Owner:           details.Offerer,
		}); err != nil {
			return "", err
		}
	}

	if err := tx.UpsertOrder(ctx, input); err != nil {
		return "", err
	}

	logger.DebugCtx(ctx, "Order created",
		zap.String("order_hash", e.OrderHash),
		zap.String("nft_contract", nftContract),
		zap.String("status", details.Status.String()),
	)
	return nftContract, nil
}

func (a *applier) applyOrderFulfilled(ctx context.Context, tx store.Store, e *domain.OrderFulfilled) error {
	fulfiller := e.Fulfiller
	txHash := e.TxHash
	matched, err := tx.UpdateOrderStatus(ctx, store.UpdateOrderStatusInput{
		Chain:           a.chain,
		OrderHash:       e.OrderHash,
		Status:          schema.OrderStatusFulfilled,
		Fulfiller:       &fulfiller,
		FulfilledTxHash: &txHash,
	})
	if err != nil {
		return err
	}
	if !matched {
		logger.DebugCtx(ctx, "Fulfilled order is not mirrored", zap.String("order_hash", e.OrderHash))
	}
	return nil
}

func (a *applier) applyOrderCancelled(ctx context.Context, tx store.Store, e *domain.OrderCancelled) error {
	txHash := e.TxHash
	matched, err := tx.UpdateOrderStatus(ctx, store.UpdateOrderStatusInput{
		Chain:           a.chain,
		OrderHash:       e.OrderHash,
		Status:          schema.OrderStatusCancelled,
		CancelledTxHash: &txHash,
	})
	if err != nil {
		return err
	}
	if !matched {
		logger.DebugCtx(ctx, "Cancelled order is not mirrored", zap.String("order_hash", e.OrderHash))
	}
	return nil
}

func (a *applier) applyTransfer(ctx context.Context, tx store.Store, e *domain.Transfer) error {
	if e.IsMint() {
		if err := tx.EnsureCollection(ctx, a.chain, e.ContractAddress, e.BlockNumber); err != nil {
			return err
		}
		if err := tx.UpsertTokenOwner(ctx, store.EnsureTokenInput{
			Chain:           a.chain,
			ContractAddress: e.ContractAddress,
			TokenID:         e.TokenID,
			Owner:           e.To,
		}); err != nil {
			return err
		}
	} else {
		if _, err := tx.UpdateTokenOwner(ctx, a.chain, e.ContractAddress, e.TokenID, e.To); err != nil {
			return err
		}
	}

	err := tx.CreateTransfer(ctx, store.CreateTransferInput{
		Chain:           a.chain,
		ContractAddress: e.ContractAddress,
		TokenID:         e.TokenID,
		FromAddress:     e.From,
		ToAddress:       e.To,
		BlockNumber:     e.BlockNumber,
		TxHash:          e.TxHash,
		LogIndex:        e.LogIndex,
	})
	if err != nil && !errors.Is(err, domain.ErrDuplicate) {
		return err
	}

	logger.DebugCtx(ctx, "Transfer processed",
		zap.String("contract_address", e.ContractAddress),
		zap.String("token_id", e.TokenID),
		zap.Bool("replay", err != nil),
	)
	return nil
}
