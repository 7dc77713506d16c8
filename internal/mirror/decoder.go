package mirror

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/providers/starknet"
)

var selectorKinds = map[string]domain.EventKind{
	starknet.SelectorOrderCreated:   domain.EventKindOrderCreated,
	starknet.SelectorOrderFulfilled: domain.EventKindOrderFulfilled,
	starknet.SelectorOrderCancelled: domain.EventKindOrderCancelled,
	starknet.SelectorTransfer:       domain.EventKindTransfer,
}

type decodeFunc func(raw RawEvent, meta domain.EventMeta) (domain.Event, error)

var decoders = map[domain.EventKind]decodeFunc{
	domain.EventKindOrderCreated:   decodeOrderCreated,
	domain.EventKindOrderFulfilled: decodeOrderFulfilled,
	domain.EventKindOrderCancelled: decodeOrderCancelled,
	domain.EventKindTransfer:       decodeTransfer,
}

// KindOf resolves the event kind from the first key of a raw event
func KindOf(raw RawEvent) domain.EventKind {
	if len(raw.Keys) == 0 {
		return domain.EventKindUnknown
	}
	return selectorKinds[domain.NormalizeFelt(raw.Keys[0])]
}

// Decode turns a raw event into a domain event. Events that cannot be decoded are
// logged and reported as not ok.
func Decode(raw RawEvent) (domain.Event, bool) {
	event, err := DecodeEvent(raw)
	if err != nil {
		logger.Warn("Dropping undecodable event",
			zap.Error(err),
			zap.String("tx_hash", raw.TransactionHash),
			zap.Uint64("block_number", raw.BlockNumber),
			zap.Uint32("log_index", raw.LogIndex),
		)
		return nil, false
	}
	return event, true
}

// DecodeEvent is Decode with the reason for a drop
func DecodeEvent(raw RawEvent) (domain.Event, error) {
	kind := KindOf(raw)
	decode, ok := decoders[kind]
	if !ok {
		return nil, domain.ErrUnknownSelector
	}
	meta := domain.EventMeta{
		BlockNumber: raw.BlockNumber,
		TxHash:      domain.NormalizeFelt(raw.TransactionHash),
		LogIndex:    raw.LogIndex,
	}
	return decode(raw, meta)
}

// DecodeAll decodes a list of raw events, keeping their order and skipping drops
func DecodeAll(raws []RawEvent) ([]domain.Event, int) {
	events := make([]domain.Event, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		event, ok := Decode(raw)
		if !ok {
			dropped++
			continue
		}
		events = append(events, event)
	}
	return events, dropped
}

func decodeOrderCreated(raw RawEvent, meta domain.EventMeta) (domain.Event, error) {
	keys, err := feltKeys(raw, 3)
	if err != nil {
		return nil, err
	}
	return &domain.OrderCreated{
		EventMeta: meta,
		OrderHash: domain.NormalizeFelt(keys[1]),
		Offerer:   domain.NormalizeAddress(keys[2]),
	}, nil
}

func decodeOrderFulfilled(raw RawEvent, meta domain.EventMeta) (domain.Event, error) {
	keys, err := feltKeys(raw, 4)
	if err != nil {
		return nil, err
	}
	return &domain.OrderFulfilled{
		EventMeta: meta,
		OrderHash: domain.NormalizeFelt(keys[1]),
		Offerer:   domain.NormalizeAddress(keys[2]),
		Fulfiller: domain.NormalizeAddress(keys[3]),
	}, nil
}

func decodeOrderCancelled(raw RawEvent, meta domain.EventMeta) (domain.Event, error) {
	keys, err := feltKeys(raw, 3)
	if err != nil {
		return nil, err
	}
	return &domain.OrderCancelled{
		EventMeta: meta,
		OrderHash: domain.NormalizeFelt(keys[1]),
		Offerer:   domain.NormalizeAddress(keys[2]),
	}, nil
}

func decodeTransfer(raw RawEvent, meta domain.EventMeta) (domain.Event, error) {
	keys, err := feltKeys(raw, 5)
	if err != nil {
		return nil, err
	}
	if _, err := starknet.ParseFelt(raw.FromAddress); err != nil {
		return nil, fmt.Errorf("%w: contract address: %w", domain.ErrMalformedEvent, err)
	}
	tokenID, err := starknet.JoinU256(keys[3], keys[4])
	if err != nil {
		return nil, fmt.Errorf("%w: token id: %w", domain.ErrMalformedEvent, err)
	}
	return &domain.Transfer{
		EventMeta:       meta,
		ContractAddress: domain.NormalizeAddress(raw.FromAddress),
		From:            domain.NormalizeAddress(keys[1]),
		To:              domain.NormalizeAddress(keys[2]),
		TokenID:         tokenID,
	}, nil
}

// feltKeys checks that the event has at least n keys and that each of them is a felt
func feltKeys(raw RawEvent, n int) ([]string, error) {
	if len(raw.Keys) < n {
		return nil, fmt.Errorf("%w: expected %d keys, got %d", domain.ErrMalformedEvent, n, len(raw.Keys))
	}
	for i := 1; i < n; i++ {
		if _, err := starknet.ParseFelt(raw.Keys[i]); err != nil {
			return nil, fmt.Errorf("%w: key %d: %w", domain.ErrMalformedEvent, i, err)
		}
	}
	return raw.Keys, nil
}
