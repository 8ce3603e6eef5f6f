// Package pricing holds the Connect Rewards price math. Everything here is
// pure: the same rule is used to show the estimated discount on the checkout
// screen and to cap how much wallet credit may be applied to an invoice.
package pricing

// Each active downstream referral is worth 20 percentage points of discount,
// capped at 80% of the invoice.
const (
	PercentPerReferral = 20
	MaxDiscountPercent = 80
)

// DiscountPercent maps a tenant's active referral count for a product to
// its discount percentage: min(count*20, 80).
func DiscountPercent(activeReferrals int) int {
	if activeReferrals <= 0 {
		return 0
	}
	pct := activeReferrals * PercentPerReferral
	if pct > MaxDiscountPercent {
		return MaxDiscountPercent
	}
	return pct
}

// EffectivePrice returns the discount percentage and the resulting price
// for a base price and an active referral count.
func EffectivePrice(basePrice float64, activeReferrals int) (int, float64) {
	pct := DiscountPercent(activeReferrals)
	return pct, basePrice * (1 - float64(pct)/100)
}

// WalletCap is the most wallet credit that may be applied against a single
// invoice: never more than MaxDiscountPercent of its base price.
func WalletCap(basePrice float64) float64 {
	return basePrice * float64(MaxDiscountPercent) / 100
}
