package billing

import (
	"time"

	"gsa-hub/internal/domain/products"
	"gsa-hub/internal/domain/users"
)

type InvoiceStatus string

const (
	InvoiceStatusCreated InvoiceStatus = "created"
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// PaymentInvoice mirrors a gateway charge locally. The row is inserted at
// checkout time, before any webhook can arrive, and the unique gateway id
// is the deduplication key for webhook replays. Status only ever moves
// forward (created -> pending -> paid); paid is terminal.
type PaymentInvoice struct {
	ID      uint   `gorm:"primaryKey"`
	AsaasID string `gorm:"column:asaas_id;not null;uniqueIndex:idx_payment_invoices_asaas_id"`

	UserID uint `gorm:"not null;index"`
	User   *users.User

	ProductID uint `gorm:"not null"`
	Product   *products.Product

	// Amount is what we charged (after referral discount and wallet
	// credit); NetValue is what the gateway reports net of its fees.
	Amount      float64
	NetValue    *float64 `gorm:"column:net_value"`
	Status      InvoiceStatus
	BillingType string
	Description string

	PaidAt    *time.Time `gorm:"column:paid_at"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
