package wallet

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInsufficientBalance = errors.New("wallet: insufficient balance")

// Credit adds amount to the tenant's wallet and appends the matching ledger
// entry, as one transaction. The balance update is a single upserted
// increment executed in the store, so concurrent credits to the same tenant
// serialize on the wallet row and never lose updates.
func Credit(db *gorm.DB, tenantID uint, amount float64, entryType EntryType, description string, productID *uint) (Entry, error) {
	if amount <= 0 {
		return Entry{}, fmt.Errorf("wallet: credit amount must be positive, got %v", amount)
	}
	return apply(db, tenantID, amount, entryType, description, productID)
}

// Debit removes amount from the tenant's wallet. The guarded decrement
// fails (no-op, ErrInsufficientBalance) when the balance would go negative,
// so two concurrent debits cannot both spend the same credit.
func Debit(db *gorm.DB, tenantID uint, amount float64, entryType EntryType, description string, productID *uint) (Entry, error) {
	if amount <= 0 {
		return Entry{}, fmt.Errorf("wallet: debit amount must be positive, got %v", amount)
	}
	return apply(db, tenantID, -amount, entryType, description, productID)
}

func apply(db *gorm.DB, tenantID uint, delta float64, entryType EntryType, description string, productID *uint) (Entry, error) {
	var entry Entry

	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		if delta >= 0 {
			// Insert-or-increment keyed by tenant_id; the row lock taken by
			// the update is what serializes concurrent credits.
			res := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "tenant_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"balance":    gorm.Expr("balance + ?", delta),
					"updated_at": now,
				}),
			}).Create(&Wallet{TenantID: tenantID, Balance: delta, UpdatedAt: now})
			if res.Error != nil {
				return res.Error
			}
		} else {
			res := tx.Model(&Wallet{}).
				Where("tenant_id = ? AND balance >= ?", tenantID, -delta).
				Updates(map[string]interface{}{
					"balance":    gorm.Expr("balance + ?", delta),
					"updated_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientBalance
			}
		}

		var w Wallet
		if err := tx.Where("tenant_id = ?", tenantID).First(&w).Error; err != nil {
			return err
		}

		entry = Entry{
			TenantID:     tenantID,
			Amount:       delta,
			BalanceAfter: w.Balance,
			Type:         entryType,
			Description:  description,
			ProductID:    productID,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Balance reads the tenant's current balance; tenants with no wallet row
// yet simply have zero.
func Balance(db *gorm.DB, tenantID uint) (float64, error) {
	var w Wallet
	err := db.Where("tenant_id = ?", tenantID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}
