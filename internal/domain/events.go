package domain

// EventKind is the closed set of marketplace events the mirror decodes
type EventKind int

const (
	EventKindUnknown EventKind = iota
	EventKindOrderCreated
	EventKindOrderFulfilled
	EventKindOrderCancelled
	EventKindTransfer
)

// String returns the Cairo event name for the kind
func (k EventKind) String() string {
	switch k {
	case EventKindOrderCreated:
		return "OrderCreated"
	case EventKindOrderFulfilled:
		return "OrderFulfilled"
	case EventKindOrderCancelled:
		return "OrderCancelled"
	case EventKindTransfer:
		return "Transfer"
	default:
		return "Unknown"
	}
}

// EventType returns the externally visible event type for the kind
func (k EventKind) EventType() EventType {
	switch k {
	case EventKindOrderCreated:
		return EventTypeOrderCreated
	case EventKindOrderFulfilled:
		return EventTypeOrderFulfilled
	case EventKindOrderCancelled:
		return EventTypeOrderCancelled
	case EventKindTransfer:
		return EventTypeTransfer
	default:
		return ""
	}
}

// EventType is the event type delivered to webhook subscribers and the event bus
type EventType string

const (
	EventTypeOrderCreated   EventType = "ORDER_CREATED"
	EventTypeOrderFulfilled EventType = "ORDER_FULFILLED"
	EventTypeOrderCancelled EventType = "ORDER_CANCELLED"
	EventTypeTransfer       EventType = "TRANSFER"
)

// IsValidEventType checks if an event type is valid
func IsValidEventType(t EventType) bool {
	return t == EventTypeOrderCreated ||
		t == EventTypeOrderFulfilled ||
		t == EventTypeOrderCancelled ||
		t == EventTypeTransfer
}

// EventMeta locates an event on chain
type EventMeta struct {
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint32 `json:"log_index"`
}

// Position returns the event meta, satisfying Event
func (m EventMeta) Position() EventMeta {
	return m
}

// Before reports whether m sorts before o in (blockNumber, logIndex) order
func (m EventMeta) Before(o EventMeta) bool {
	if m.BlockNumber != o.BlockNumber {
		return m.BlockNumber < o.BlockNumber
	}
	return m.LogIndex < o.LogIndex
}

// Event is a decoded marketplace or collection event
type Event interface {
	Kind() EventKind
	Position() EventMeta
}

// OrderCreated is emitted when an order is registered on the marketplace
type OrderCreated struct {
	EventMeta
	OrderHash string `json:"order_hash"`
	Offerer   string `json:"offerer"`
}

func (e *OrderCreated) Kind() EventKind { return EventKindOrderCreated }

// OrderFulfilled is emitted when an order is filled
type OrderFulfilled struct {
	EventMeta
	OrderHash string `json:"order_hash"`
	Offerer   string `json:"offerer"`
	Fulfiller string `json:"fulfiller"`
}

func (e *OrderFulfilled) Kind() EventKind { return EventKindOrderFulfilled }

// OrderCancelled is emitted when the offerer cancels an order
type OrderCancelled struct {
	EventMeta
	OrderHash string `json:"order_hash"`
	Offerer   string `json:"offerer"`
}

func (e *OrderCancelled) Kind() EventKind { return EventKindOrderCancelled }

// Transfer is the ERC721 Transfer event of a collection contract
type Transfer struct {
	EventMeta
	ContractAddress string `json:"contract_address"`
	From            string `json:"from"`
	To              string `json:"to"`
	TokenID         string `json:"token_id"` // decimal u256
}

func (e *Transfer) Kind() EventKind { return EventKindTransfer }

// IsMint reports whether the transfer originates from the zero address
func (e *Transfer) IsMint() bool {
	return IsZeroAddress(e.From)
}

// EventPayload is the stable representation of an event sent to subscribers
type EventPayload struct {
	BlockNumber     string `json:"blockNumber"`
	TxHash          string `json:"txHash"`
	LogIndex        uint32 `json:"logIndex"`
	OrderHash       string `json:"orderHash,omitempty"`
	Offerer         string `json:"offerer,omitempty"`
	Fulfiller       string `json:"fulfiller,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
	From            string `json:"from,omitempty"`
	To              string `json:"to,omitempty"`
	TokenID         string `json:"tokenId,omitempty"`
}

// NewEventPayload translates a decoded event into its subscriber payload
func NewEventPayload(event Event) (EventType, EventPayload) {
	pos := event.Position()
	payload := EventPayload{
		BlockNumber: FormatBlockNumber(pos.BlockNumber),
		TxHash:      pos.TxHash,
		LogIndex:    pos.LogIndex,
	}

	switch e := event.(type) {
	case *OrderCreated:
		payload.OrderHash = e.OrderHash
		payload.Offerer = e.Offerer
	case *OrderFulfilled:
		payload.OrderHash = e.OrderHash
		payload.Offerer = e.Offerer
		payload.Fulfiller = e.Fulfiller
	case *OrderCancelled:
		payload.OrderHash = e.OrderHash
		payload.Offerer = e.Offerer
	case *Transfer:
		payload.ContractAddress = e.ContractAddress
		payload.From = e.From
		payload.To = e.To
		payload.TokenID = e.TokenID
	}

	return event.Kind().EventType(), payload
}
