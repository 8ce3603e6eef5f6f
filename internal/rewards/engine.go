// Package rewards is the Connect Rewards credit engine: when a referred
// user's payment for a product is confirmed, the referring tenant's wallet
// earns a percentage of it. The engine runs after subscription activation
// has committed and is strictly best-effort from the caller's point of
// view: its failures alert operators but never revoke paid access.
package rewards

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gsa-hub/internal/domain/referrals"
	"gsa-hub/internal/domain/wallet"
)

// Payment describes the confirmed payment a credit is computed from. The
// bonus is a reward rate on the GROSS value the customer paid, not on the
// gateway's net-of-fees figure.
type Payment struct {
	ReferralCode string
	ProductID    uint
	GrossValue   float64
	ChargeID     string
}

type Engine struct {
	db          *gorm.DB
	percentRate float64
	log         *zap.Logger
}

func NewEngine(db *gorm.DB, percentRate float64, log *zap.Logger) *Engine {
	return &Engine{db: db, percentRate: percentRate, log: log}
}

// CreditForPayment credits the referring tenant for one confirmed payment.
// The caller guarantees it fires at most once per (user, product) pair: it
// is only invoked when the referral usage row was newly created.
func (e *Engine) CreditForPayment(ctx context.Context, p Payment) error {
	tenantID, err := referrals.OwnerTenantID(e.db.WithContext(ctx), p.ReferralCode)
	if err != nil {
		if errors.Is(err, referrals.ErrCodeNotFound) {
			// A user carrying a code that was deleted or never existed; the
			// usage row is already consumed, so just surface it.
			e.log.Warn("referral code has no owner, skipping credit",
				zap.String("code", p.ReferralCode),
				zap.String("charge_id", p.ChargeID),
			)
			return nil
		}
		return fmt.Errorf("rewards: resolve code owner: %w", err)
	}

	bonus := p.GrossValue * e.percentRate / 100
	if bonus <= 0 {
		return nil
	}

	productID := p.ProductID
	desc := fmt.Sprintf("Connect Rewards: indicação paga (cobrança %s)", p.ChargeID)
	entry, err := wallet.Credit(e.db.WithContext(ctx), tenantID, bonus, wallet.EntryTypeEarned, desc, &productID)
	if err != nil {
		return fmt.Errorf("rewards: credit wallet: %w", err)
	}

	// The referrer's own code for this product must exist so the reward is
	// shareable onward; first credit mints it if activation never did.
	if err := referrals.EnsureCode(e.db.WithContext(ctx), tenantID, p.ProductID); err != nil {
		return fmt.Errorf("rewards: ensure referrer code: %w", err)
	}

	e.log.Info("referral credit applied",
		zap.Uint("referrer_tenant_id", tenantID),
		zap.Float64("amount", bonus),
		zap.Float64("balance_after", entry.BalanceAfter),
		zap.String("charge_id", p.ChargeID),
	)
	return nil
}
