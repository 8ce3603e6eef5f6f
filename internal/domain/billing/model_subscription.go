package billing

import (
	"time"

	"gsa-hub/internal/domain/products"
	"gsa-hub/internal/domain/users"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrial    SubscriptionStatus = "trial"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPending  SubscriptionStatus = "pending"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription binds a user to a product. The (user, product) unique key is
// what makes reconciliation upserts idempotent: a replayed webhook updates
// the same row instead of creating a second one.
type Subscription struct {
	ID uint `gorm:"primaryKey"`

	UserID uint `gorm:"not null;uniqueIndex:idx_subscriptions_user_product"`
	User   *users.User

	ProductID uint `gorm:"not null;uniqueIndex:idx_subscriptions_user_product"`
	Product   *products.Product

	Status            SubscriptionStatus `gorm:"not null"`
	GatewayCustomerID *string            `gorm:"column:gateway_customer_id"`
	BillingType       *string            `gorm:"column:billing_type"`

	ActivatedAt *time.Time `gorm:"column:activated_at"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
