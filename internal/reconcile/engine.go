// Package reconcile turns asynchronous gateway payment notifications into
// durable, exactly-once internal state: invoice paid, subscription active,
// referral bonus consumed. Duplicate and out-of-order deliveries are the
// normal case here, not the exception.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gsa-hub/internal/domain/billing"
	"gsa-hub/internal/domain/referrals"
	"gsa-hub/internal/domain/users"
	"gsa-hub/internal/rewards"
)

// Outcome says what a delivery actually did, mostly for logging and tests.
type Outcome string

const (
	OutcomeActivated  Outcome = "activated"  // first confirmation, subscription activated
	OutcomeDuplicate  Outcome = "duplicate"  // charge already paid, no-op
	OutcomeIgnored    Outcome = "ignored"    // event kind does not activate
	OutcomeUnresolved Outcome = "unresolved" // parked for manual follow-up
)

type Engine struct {
	db      *gorm.DB
	rewards *rewards.Engine
	log     *zap.Logger
}

func NewEngine(db *gorm.DB, rewardsEngine *rewards.Engine, log *zap.Logger) *Engine {
	return &Engine{db: db, rewards: rewardsEngine, log: log}
}

// ProcessPayment handles one webhook delivery. Business-level failures
// (unknown charge, unresolvable payer) return OutcomeUnresolved with a nil
// error so the gate can still acknowledge the gateway; a non-nil error
// means a store failure the operator must see.
func (e *Engine) ProcessPayment(ctx context.Context, event PaymentEvent) (Outcome, error) {
	log := e.log.With(
		zap.String("event", event.Event),
		zap.String("charge_id", event.Payment.ID),
	)

	if !event.Confirmed() {
		if event.Event == EventPaymentCreated {
			return e.markPending(ctx, event, log)
		}
		log.Info("ignoring unhandled payment event")
		return OutcomeIgnored, nil
	}

	// Invoices are created at checkout, never here. A charge we have no row
	// for is parked, not guessed at.
	var invoice billing.PaymentInvoice
	err := e.db.WithContext(ctx).Where("asaas_id = ?", event.Payment.ID).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("charge has no local invoice, parking event")
		return OutcomeUnresolved, nil
	}
	if err != nil {
		return OutcomeUnresolved, fmt.Errorf("reconcile: load invoice: %w", err)
	}

	res := ResolveIdentity(e.db.WithContext(ctx), event.Payment, invoice.ProductID)
	switch res.State {
	case Ambiguous:
		log.Warn("payer identity ambiguous, parking event")
		return OutcomeUnresolved, nil
	case NotFound:
		log.Warn("payer identity not found, parking event")
		return OutcomeUnresolved, nil
	}

	var user users.User
	if err := e.db.WithContext(ctx).First(&user, res.UserID).Error; err != nil {
		log.Warn("resolved user missing from store, parking event", zap.Uint("user_id", res.UserID))
		return OutcomeUnresolved, nil
	}

	// Phase 1, must succeed: claim the charge and activate access.
	applied := false
	usageCreated := false
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		applied, txErr = tryMarkPaid(tx, event)
		if txErr != nil {
			return txErr
		}
		if !applied {
			return nil
		}

		if txErr = activateSubscription(tx, res.UserID, res.ProductID, event); txErr != nil {
			return txErr
		}

		if user.ReferredByCode != nil && *user.ReferredByCode != "" {
			usageCreated, txErr = consumeReferral(tx, res.UserID, res.ProductID, *user.ReferredByCode)
			if txErr != nil {
				return txErr
			}
		}

		// The paying tenant's own share code for this product is minted on
		// its first paid activation.
		return referrals.EnsureCode(tx, user.TenantID, res.ProductID)
	})
	if err != nil {
		// The customer paid; a failure here must reach operators loudly.
		log.Error("subscription activation failed", zap.Error(err))
		return OutcomeUnresolved, fmt.Errorf("reconcile: activate: %w", err)
	}
	if !applied {
		log.Info("charge already paid, duplicate delivery")
		return OutcomeDuplicate, nil
	}

	log.Info("subscription activated",
		zap.Uint("user_id", res.UserID),
		zap.Uint("product_id", res.ProductID),
		zap.Bool("referral_usage_created", usageCreated),
	)

	// Phase 2, best effort: the referral credit. The activation above stays
	// committed no matter what happens here; the customer paid and keeps
	// access regardless of rewards bookkeeping.
	if usageCreated {
		err := e.rewards.CreditForPayment(ctx, rewards.Payment{
			ReferralCode: *user.ReferredByCode,
			ProductID:    res.ProductID,
			GrossValue:   event.Payment.Value,
			ChargeID:     event.Payment.ID,
		})
		if err != nil {
			log.Error("referral credit failed, activation kept", zap.Error(err))
		}
	}

	return OutcomeActivated, nil
}

// tryMarkPaid is the idempotency claim: one guarded UPDATE that only the
// first delivery for a charge can win. Concurrent duplicates serialize on
// the invoice row; the loser sees zero rows affected and stops.
func tryMarkPaid(tx *gorm.DB, event PaymentEvent) (bool, error) {
	now := time.Now()
	res := tx.Model(&billing.PaymentInvoice{}).
		Where("asaas_id = ? AND status <> ?", event.Payment.ID, billing.InvoiceStatusPaid).
		Updates(map[string]interface{}{
			"status":    billing.InvoiceStatusPaid,
			"paid_at":   now,
			"net_value": event.Payment.NetValue,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark paid: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func activateSubscription(tx *gorm.DB, userID, productID uint, event PaymentEvent) error {
	now := time.Now()
	sub := billing.Subscription{
		UserID:      userID,
		ProductID:   productID,
		Status:      billing.SubscriptionStatusActive,
		ActivatedAt: &now,
	}
	if event.Payment.Customer != "" {
		sub.GatewayCustomerID = &event.Payment.Customer
	}
	if event.Payment.BillingType != "" {
		sub.BillingType = &event.Payment.BillingType
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":              billing.SubscriptionStatusActive,
			"gateway_customer_id": sub.GatewayCustomerID,
			"billing_type":        sub.BillingType,
			"activated_at":        now,
			"updated_at":          now,
		}),
	}).Create(&sub).Error
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// consumeReferral inserts the (user, product) usage row with
// insert-or-ignore semantics. Only the insert that actually lands triggers
// a credit, which is what keeps the bonus single-use.
func consumeReferral(tx *gorm.DB, userID, productID uint, code string) (bool, error) {
	usage := referrals.ReferralUsage{UserID: userID, ProductID: productID, Code: code}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(&usage)
	if res.Error != nil {
		return false, fmt.Errorf("consume referral: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// markPending advances a created invoice to pending. Guarded so a late or
// replayed PAYMENT_CREATED can never touch a paid invoice.
func (e *Engine) markPending(ctx context.Context, event PaymentEvent, log *zap.Logger) (Outcome, error) {
	res := e.db.WithContext(ctx).Model(&billing.PaymentInvoice{}).
		Where("asaas_id = ? AND status = ?", event.Payment.ID, billing.InvoiceStatusCreated).
		Update("status", billing.InvoiceStatusPending)
	if res.Error != nil {
		return OutcomeUnresolved, fmt.Errorf("reconcile: mark pending: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		log.Info("payment created event without created invoice, ignoring")
	}
	return OutcomeIgnored, nil
}
