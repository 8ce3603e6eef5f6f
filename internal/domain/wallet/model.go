package wallet

import (
	"time"

	"gsa-hub/internal/domain/products"
	"gsa-hub/internal/domain/tenants"
)

type EntryType string

const (
	EntryTypeEarned      EntryType = "earned"
	EntryTypeReceived    EntryType = "received"
	EntryTypeUsed        EntryType = "used"
	EntryTypeTransferred EntryType = "transferred"
)

// Wallet holds a tenant's current Connect Rewards balance. The balance is
// derived state: it only ever changes in the same transaction that appends
// the matching Entry, via an atomic increment on the row.
type Wallet struct {
	TenantID uint `gorm:"primaryKey;autoIncrement:false"`
	Tenant   *tenants.Tenant

	Balance   float64
	UpdatedAt time.Time
}

// Entry is one append-only ledger line. Amount is signed (credits positive,
// debits negative); BalanceAfter snapshots the wallet balance as of this
// entry in application order.
type Entry struct {
	ID uint `gorm:"primaryKey"`

	TenantID uint `gorm:"not null;index"`
	Tenant   *tenants.Tenant

	Amount       float64
	BalanceAfter float64 `gorm:"column:balance_after"`
	Type         EntryType
	Description  string

	ProductID *uint `gorm:"column:product_id"`
	Product   *products.Product

	CreatedAt time.Time
}

func (Entry) TableName() string { return "wallet_entries" }
