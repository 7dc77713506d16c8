package schema

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEndpointStatus is the status of a webhook endpoint
type WebhookEndpointStatus string

const (
	// WebhookEndpointStatusActive is an endpoint receiving deliveries
	WebhookEndpointStatusActive WebhookEndpointStatus = "ACTIVE"
	// WebhookEndpointStatusDisabled is an endpoint that must not receive deliveries
	WebhookEndpointStatusDisabled WebhookEndpointStatus = "DISABLED"
)

// WebhookEndpoint represents the webhook_endpoints table - subscriber endpoints registered by tenants
type WebhookEndpoint struct {
	// ID is a unique identifier for the endpoint (UUID)
	ID string `gorm:"column:id;primaryKey;type:varchar(36)"`
	// TenantID is the owning tenant
	TenantID string `gorm:"column:tenant_id;not null;type:varchar(36)"`
	// URL is the HTTPS endpoint where webhooks will be delivered
	URL string `gorm:"column:url;not null;type:text"`
	// Secret is the secret key used for HMAC-SHA256 signature generation
	Secret string `gorm:"column:secret;not null;type:text"`
	// Events is a JSON array of event types this endpoint subscribes to
	// Example: ["ORDER_CREATED", "TRANSFER"]
	Events datatypes.JSON `gorm:"column:events;not null;type:jsonb"`
	// Status indicates whether this endpoint should receive webhooks
	Status    WebhookEndpointStatus `gorm:"column:status;not null;type:varchar(16);default:ACTIVE"`
	CreatedAt time.Time             `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time             `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the WebhookEndpoint model
func (WebhookEndpoint) TableName() string {
	return "webhook_endpoints"
}
