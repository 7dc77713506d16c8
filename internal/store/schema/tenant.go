package schema

import "time"

// TenantStatus is the account status of an API tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
)

// Tenant represents the tenants table, owned by the API service and read by webhook fanout
type Tenant struct {
	ID        string       `gorm:"column:id;primaryKey;type:varchar(36)"`
	Name      string       `gorm:"column:name;not null;type:text"`
	Status    TenantStatus `gorm:"column:status;not null;type:varchar(16);default:ACTIVE"`
	CreatedAt time.Time    `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time    `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Tenant model
func (Tenant) TableName() string {
	return "tenants"
}
