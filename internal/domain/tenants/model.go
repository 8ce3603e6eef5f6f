package tenants

import "time"

// Tenant is the billing entity: it owns subscriptions, referral codes
// and the rewards wallet. The referrer link is set at registration and
// never changes afterwards.
type Tenant struct {
	ID   uint `gorm:"primaryKey"`
	Name string

	ReferrerTenantID *uint
	ReferrerTenant   *Tenant `gorm:"foreignKey:ReferrerTenantID"`

	// Filled on the first charge created for this tenant at the gateway.
	GatewayCustomerID *string `gorm:"column:gateway_customer_id;uniqueIndex:idx_tenants_gateway_customer_id"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
