package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	billingdomain "gsa-hub/internal/domain/billing"
)

// PaymentHistory is GET /payments: the caller's gateway charges, newest
// first.
func (h *Handler) PaymentHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var invoices []billingdomain.PaymentInvoice
	if err := h.DB.
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	c.JSON(http.StatusOK, invoices)
}

// Licenses is GET /licenses: the caller's subscriptions with status, the
// backing data of the licenses dashboard.
func (h *Handler) Licenses(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var subs []billingdomain.Subscription
	if err := h.DB.
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load licenses"})
		return
	}

	c.JSON(http.StatusOK, subs)
}
