package mirror_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/mirror"
	"github.com/feral-file/ff-marketplace-mirror/internal/providers/starknet"
)

func rawEvent(block uint64, logIndex uint32, from string, keys ...string) mirror.RawEvent {
	return mirror.RawEvent{
		EmittedEvent: starknet.EmittedEvent{
			FromAddress:     from,
			Keys:            keys,
			BlockNumber:     block,
			TransactionHash: "0x0abc",
		},
		LogIndex: logIndex,
	}
}

func TestDecode(t *testing.T) {
	marketplace := domain.MAINNET_MARKETPLACE_CONTRACT
	collection := domain.MAINNET_COLLECTION_CONTRACT
	meta := domain.EventMeta{BlockNumber: 100, TxHash: "0xabc", LogIndex: 2}

	tests := []struct {
		name string
		raw  mirror.RawEvent
		want domain.Event
	}{
		{
			name: "order created",
			raw:  rawEvent(100, 2, marketplace, starknet.SelectorOrderCreated, "0x00FF", "0x123"),
			want: &domain.OrderCreated{
				EventMeta: meta,
				OrderHash: "0xff",
				Offerer:   "0x0000000000000000000000000000000000000000000000000000000000000123",
			},
		},
		{
			name: "order fulfilled",
			raw:  rawEvent(100, 2, marketplace, starknet.SelectorOrderFulfilled, "0xff", "0x123", "0x456"),
			want: &domain.OrderFulfilled{
				EventMeta: meta,
				OrderHash: "0xff",
				Offerer:   "0x0000000000000000000000000000000000000000000000000000000000000123",
				Fulfiller: "0x0000000000000000000000000000000000000000000000000000000000000456",
			},
		},
		{
			name: "order cancelled",
			raw:  rawEvent(100, 2, marketplace, starknet.SelectorOrderCancelled, "0xff", "0x123"),
			want: &domain.OrderCancelled{
				EventMeta: meta,
				OrderHash: "0xff",
				Offerer:   "0x0000000000000000000000000000000000000000000000000000000000000123",
			},
		},
		{
			name: "mint transfer",
			raw:  rawEvent(100, 2, "0x5e73b7be06d82beeb390a0e0d655f2c9e7cf519658e04f05d9c690ccc41da03", starknet.SelectorTransfer, "0x0", "0x789", "0x2a", "0x0"),
			want: &domain.Transfer{
				EventMeta:       meta,
				ContractAddress: collection,
				From:            domain.STARKNET_ZERO_ADDRESS,
				To:              "0x0000000000000000000000000000000000000000000000000000000000000789",
				TokenID:         "42",
			},
		},
		{
			name: "transfer with high limb",
			raw:  rawEvent(100, 2, collection, starknet.SelectorTransfer, "0x1", "0x2", "0x1", "0x1"),
			want: &domain.Transfer{
				EventMeta:       meta,
				ContractAddress: collection,
				From:            "0x0000000000000000000000000000000000000000000000000000000000000001",
				To:              "0x0000000000000000000000000000000000000000000000000000000000000002",
				TokenID:         "340282366920938463463374607431768211457",
			},
		},
		{
			name: "zero padded selector",
			raw:  rawEvent(100, 2, marketplace, "0x00"+starknet.SelectorOrderCancelled[2:], "0xff", "0x123"),
			want: &domain.OrderCancelled{
				EventMeta: meta,
				OrderHash: "0xff",
				Offerer:   "0x0000000000000000000000000000000000000000000000000000000000000123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mirror.Decode(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeEvent_Drops(t *testing.T) {
	collection := domain.MAINNET_COLLECTION_CONTRACT

	tests := []struct {
		name    string
		raw     mirror.RawEvent
		wantErr error
	}{
		{
			name:    "no keys",
			raw:     rawEvent(1, 0, collection),
			wantErr: domain.ErrUnknownSelector,
		},
		{
			name:    "unknown selector",
			raw:     rawEvent(1, 0, collection, starknet.Selector("Approval"), "0x1", "0x2", "0x3", "0x0"),
			wantErr: domain.ErrUnknownSelector,
		},
		{
			name:    "transfer with legacy data layout",
			raw:     rawEvent(1, 0, collection, starknet.SelectorTransfer),
			wantErr: domain.ErrMalformedEvent,
		},
		{
			name:    "fulfilled without fulfiller",
			raw:     rawEvent(1, 0, collection, starknet.SelectorOrderFulfilled, "0xff", "0x1"),
			wantErr: domain.ErrMalformedEvent,
		},
		{
			name:    "unparsable felt",
			raw:     rawEvent(1, 0, collection, starknet.SelectorOrderCreated, "0xzz", "0x1"),
			wantErr: domain.ErrMalformedEvent,
		},
		{
			name:    "token id limb over 128 bits",
			raw:     rawEvent(1, 0, collection, starknet.SelectorTransfer, "0x1", "0x2", "0x1"+"00000000000000000000000000000000", "0x0"),
			wantErr: domain.ErrMalformedEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mirror.DecodeEvent(tt.raw)
			assert.ErrorIs(t, err, tt.wantErr)

			_, ok := mirror.Decode(tt.raw)
			assert.False(t, ok)
		})
	}
}

func TestDecodeAll(t *testing.T) {
	collection := domain.MAINNET_COLLECTION_CONTRACT
	raws := []mirror.RawEvent{
		rawEvent(1, 0, collection, starknet.SelectorTransfer, "0x0", "0x1", "0x1", "0x0"),
		rawEvent(1, 1, collection, "0xdead"),
		rawEvent(2, 0, collection, starknet.SelectorTransfer, "0x1", "0x2", "0x1", "0x0"),
	}

	events, dropped := mirror.DecodeAll(raws)
	assert.Equal(t, 1, dropped)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].Position().BlockNumber)
	assert.Equal(t, uint64(2), events[1].Position().BlockNumber)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, domain.EventKindTransfer, mirror.KindOf(rawEvent(1, 0, "", starknet.SelectorTransfer)))
	assert.Equal(t, domain.EventKindOrderCreated, mirror.KindOf(rawEvent(1, 0, "", starknet.SelectorOrderCreated)))
	assert.Equal(t, domain.EventKindUnknown, mirror.KindOf(rawEvent(1, 0, "")))
}
