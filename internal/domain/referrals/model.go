package referrals

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"gsa-hub/internal/domain/products"
	"gsa-hub/internal/domain/tenants"
)

// ReferralCode is a tenant's shareable code for one product. It is generated
// on the tenant's own first paid activation of that product and is permanent:
// all future shares reuse the same code.
type ReferralCode struct {
	ID uint `gorm:"primaryKey"`

	TenantID uint `gorm:"not null;uniqueIndex:idx_referral_codes_tenant_product"`
	Tenant   *tenants.Tenant

	ProductID uint `gorm:"not null;uniqueIndex:idx_referral_codes_tenant_product"`
	Product   *products.Product

	Code string `gorm:"not null;uniqueIndex:idx_referral_codes_code"`

	CreatedAt time.Time
}

// ReferralUsage records that a (user, product) pair consumed its referral
// bonus. The unique key is the gate that keeps the Connect Rewards credit
// from ever being paid twice for the same pair. Rows are inserted once and
// never updated.
type ReferralUsage struct {
	ID uint `gorm:"primaryKey"`

	UserID    uint   `gorm:"not null;uniqueIndex:idx_referral_usages_user_product"`
	ProductID uint   `gorm:"not null;uniqueIndex:idx_referral_usages_user_product"`
	Code      string `gorm:"not null"`

	CreatedAt time.Time
}

// NewCode mints a shareable code. Short, uppercase, unambiguous enough for
// a link query parameter.
func NewCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "GSA-" + strings.ToUpper(raw[:8])
}
