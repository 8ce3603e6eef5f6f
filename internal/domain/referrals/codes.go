package referrals

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCodeNotFound = errors.New("referrals: code not found")

// EnsureCode makes sure the (tenant, product) pair has its permanent share
// code, minting one on first call. Insert-or-ignore on the unique key, so
// concurrent activations cannot mint two codes for the same pair.
func EnsureCode(db *gorm.DB, tenantID, productID uint) error {
	rc := ReferralCode{TenantID: tenantID, ProductID: productID, Code: NewCode()}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(&rc).Error
	if err != nil {
		return fmt.Errorf("ensure referral code: %w", err)
	}
	return nil
}

// OwnerTenantID maps a share code back to the referring tenant.
func OwnerTenantID(db *gorm.DB, code string) (uint, error) {
	var rc ReferralCode
	err := db.Where("code = ?", code).First(&rc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrCodeNotFound
	}
	if err != nil {
		return 0, err
	}
	return rc.TenantID, nil
}

// ActiveReferralCount counts, for one of the tenant's products, how many
// referred users have consumed its code. This is the input to the checkout
// discount rule.
func ActiveReferralCount(db *gorm.DB, tenantID, productID uint) (int, error) {
	var count int64
	err := db.Model(&ReferralUsage{}).
		Joins("JOIN referral_codes ON referral_codes.code = referral_usages.code").
		Where("referral_codes.tenant_id = ? AND referral_usages.product_id = ?", tenantID, productID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
