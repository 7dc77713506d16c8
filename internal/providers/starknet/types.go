package starknet

import (
	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
)

// BlockID pins a range boundary to a block number
type BlockID struct {
	BlockNumber uint64 `json:"block_number"`
}

// EventFilter is the filter object of starknet_getEvents
type EventFilter struct {
	Address           string     `json:"address"`
	FromBlock         BlockID    `json:"from_block"`
	ToBlock           BlockID    `json:"to_block"`
	Keys              [][]string `json:"keys,omitempty"`
	ChunkSize         int        `json:"chunk_size"`
	ContinuationToken string     `json:"continuation_token,omitempty"`
}

// EmittedEvent is one event returned by starknet_getEvents
type EmittedEvent struct {
	FromAddress     string   `json:"from_address"`
	Keys            []string `json:"keys"`
	Data            []string `json:"data"`
	BlockHash       string   `json:"block_hash"`
	BlockNumber     uint64   `json:"block_number"`
	TransactionHash string   `json:"transaction_hash"`
}

// EventsPage is one page of starknet_getEvents
type EventsPage struct {
	Events            []EmittedEvent `json:"events"`
	ContinuationToken string         `json:"continuation_token,omitempty"`
}

// FunctionCall is the request object of starknet_call
type FunctionCall struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

// OrderStatus is the on-chain order status variant
type OrderStatus int

const (
	OrderStatusNone OrderStatus = iota
	OrderStatusCreated
	OrderStatusFilled
	OrderStatusCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusCreated:
		return "Created"
	case OrderStatusFilled:
		return "Filled"
	case OrderStatusCancelled:
		return "Cancelled"
	default:
		return "None"
	}
}

// OfferItem is the offer side of an order. Numeric fields are decimal strings.
type OfferItem struct {
	ItemType    domain.ItemType
	Token       string
	Identifier  string
	StartAmount string
	EndAmount   string
}

// ConsiderationItem is the consideration side of an order
type ConsiderationItem struct {
	OfferItem
	Recipient string
}

// OrderDetails is the result of get_order_details
type OrderDetails struct {
	Offerer       string
	Offer         OfferItem
	Consideration ConsiderationItem
	StartTime     uint64
	EndTime       uint64
	Status        OrderStatus
	Fulfiller     *string
}
