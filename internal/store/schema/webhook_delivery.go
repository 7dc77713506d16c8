package schema

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookDelivery represents the webhook_deliveries table - one row per fanout target per event
type WebhookDelivery struct {
	// ID is the delivery id sent in the x-delivery-id header (UUID)
	ID string `gorm:"column:id;primaryKey;type:varchar(36)"`
	// EndpointID is the webhook endpoint this delivery is for
	EndpointID string `gorm:"column:endpoint_id;not null;type:varchar(36)"`
	// EventType is the type of event being delivered (e.g., "ORDER_CREATED")
	EventType string `gorm:"column:event_type;not null;type:varchar(32)"`
	// Payload is the event data delivered under the "data" key
	Payload datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	// JobID is the WEBHOOK_DELIVER job driving this delivery
	JobID string `gorm:"column:job_id;not null;type:varchar(26)"`
	// StatusCode is the HTTP status code of the last attempt
	StatusCode *int `gorm:"column:status_code"`
	// ResponseBody is the response body of the last attempt, truncated to 2000 bytes
	ResponseBody *string `gorm:"column:response_body;type:text"`
	// DeliveredAt is set once an attempt receives a 2xx response
	DeliveredAt *time.Time `gorm:"column:delivered_at;type:timestamptz"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the WebhookDelivery model
func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}
