package webhook

import (
	"encoding/json"
)

// Delivery request headers
const (
	HeaderEventType  = "x-event-type"
	HeaderSignature  = "x-signature"
	HeaderDeliveryID = "x-delivery-id"
)

// DeliveryBody is the JSON document POSTed to an endpoint
type DeliveryBody struct {
	// ID is the delivery id, also sent in the x-delivery-id header
	ID string `json:"id"`
	// Event is the event type (e.g., "ORDER_CREATED")
	Event string `json:"event"`
	// Data is the event payload stored on the delivery
	Data json.RawMessage `json:"data"`
}

// DeliveryResult represents the result of a webhook delivery attempt
type DeliveryResult struct {
	// Success indicates whether the endpoint answered 2xx
	Success bool
	// StatusCode is the HTTP status code returned by the webhook endpoint (0 on network errors)
	StatusCode int
	// Body is the response body, or the network error, truncated
	Body string
}
