package messaging

import (
	"context"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
)

// Message is the body published for every mirrored event
type Message struct {
	Chain     domain.Chain        `json:"chain"`
	EventType domain.EventType    `json:"eventType"`
	Data      domain.EventPayload `json:"data"`
}

// NewMessage builds the message for a decoded event
func NewMessage(chain domain.Chain, event domain.Event) Message {
	eventType, payload := domain.NewEventPayload(event)
	return Message{Chain: chain, EventType: eventType, Data: payload}
}

// Publisher defines the interface for publishing mirrored events to a message broker
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishEvent publishes an applied event
	PublishEvent(ctx context.Context, chain domain.Chain, event domain.Event) error
	// Close closes the connection
	Close()
}
