package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gsa-hub/internal/domain/billing"
	"gsa-hub/internal/domain/tenants"
	"gsa-hub/internal/domain/users"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

type AdminTenant struct {
	ID                uint    `json:"id"`
	Name              string  `json:"name"`
	ReferrerTenantID  *uint   `json:"referrer_tenant_id,omitempty"`
	GatewayCustomerID *string `json:"gateway_customer_id,omitempty"`
	UserCount         int64   `json:"user_count"`
	CreatedAt         string  `json:"created_at"`
}

type AdminPayment struct {
	ID        uint     `json:"id"`
	AsaasID   string   `json:"asaas_id"`
	Email     string   `json:"email"`
	Product   string   `json:"product"`
	Amount    float64  `json:"amount"`
	NetValue  *float64 `json:"net_value,omitempty"`
	Status    string   `json:"status"`
	PaidAt    *string  `json:"paid_at,omitempty"`
	CreatedAt string   `json:"created_at"`
}

type AdminStats struct {
	TotalTenants  int64   `json:"total_tenants"`
	TotalUsers    int64   `json:"total_users"`
	PaidInvoices  int64   `json:"paid_invoices"`
	TotalRevenue  float64 `json:"total_revenue"`
	RecentRevenue float64 `json:"recent_revenue"`
}

// Dashboard is GET /admin/dashboard: headline numbers for the financial
// overview page.
func (h *Handler) Dashboard(c *gin.Context) {
	var stats AdminStats

	h.DB.Model(&tenants.Tenant{}).Count(&stats.TotalTenants)
	h.DB.Model(&users.User{}).Count(&stats.TotalUsers)

	paid := h.DB.Model(&billing.PaymentInvoice{}).Where("status = ?", billing.InvoiceStatusPaid)
	paid.Count(&stats.PaidInvoices)

	h.DB.Model(&billing.PaymentInvoice{}).
		Where("status = ?", billing.InvoiceStatusPaid).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.TotalRevenue)

	monthAgo := time.Now().AddDate(0, -1, 0)
	h.DB.Model(&billing.PaymentInvoice{}).
		Where("status = ? AND paid_at >= ?", billing.InvoiceStatusPaid, monthAgo).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.RecentRevenue)

	c.JSON(http.StatusOK, stats)
}

// ListTenants is GET /admin/tenants.
func (h *Handler) ListTenants(c *gin.Context) {
	var all []tenants.Tenant
	if err := h.DB.Order("created_at DESC").Find(&all).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tenants"})
		return
	}

	out := make([]AdminTenant, 0, len(all))
	for _, t := range all {
		var userCount int64
		h.DB.Model(&users.User{}).Where("tenant_id = ?", t.ID).Count(&userCount)
		out = append(out, AdminTenant{
			ID:                t.ID,
			Name:              t.Name,
			ReferrerTenantID:  t.ReferrerTenantID,
			GatewayCustomerID: t.GatewayCustomerID,
			UserCount:         userCount,
			CreatedAt:         t.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, out)
}

// ListPayments is GET /admin/payments: every gateway charge we mirror,
// newest first.
func (h *Handler) ListPayments(c *gin.Context) {
	var invoices []billing.PaymentInvoice
	if err := h.DB.
		Preload("User").
		Preload("Product").
		Order("created_at DESC").
		Limit(500).
		Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	out := make([]AdminPayment, 0, len(invoices))
	for _, inv := range invoices {
		p := AdminPayment{
			ID:        inv.ID,
			AsaasID:   inv.AsaasID,
			Amount:    inv.Amount,
			NetValue:  inv.NetValue,
			Status:    string(inv.Status),
			CreatedAt: inv.CreatedAt.Format(time.RFC3339),
		}
		if inv.User != nil {
			p.Email = inv.User.Email
		}
		if inv.Product != nil {
			p.Product = inv.Product.Name
		}
		if inv.PaidAt != nil {
			s := inv.PaidAt.Format(time.RFC3339)
			p.PaidAt = &s
		}
		out = append(out, p)
	}
	c.JSON(http.StatusOK, out)
}
