// Package wallet exposes the Connect Rewards wallet: current balance,
// earned/used totals and the ledger history behind them.
package wallet

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	walletdomain "gsa-hub/internal/domain/wallet"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

type walletSummary struct {
	Balance     float64 `json:"balance"`
	TotalEarned float64 `json:"total_earned"`
	TotalUsed   float64 `json:"total_used"`
}

// Summary is GET /wallet. Totals are computed from the ledger, the balance
// from the wallet row; the two always agree because they only ever change
// together.
func (h *Handler) Summary(c *gin.Context) {
	tenantID := c.GetUint("tenant_id")
	if tenantID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	balance, err := walletdomain.Balance(h.DB, tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wallet"})
		return
	}

	var earned, used float64
	row := h.DB.Model(&walletdomain.Entry{}).
		Select(
			"COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS earned, "+
				"COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS used",
		).
		Where("tenant_id = ?", tenantID).
		Row()
	if err := row.Scan(&earned, &used); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wallet totals"})
		return
	}

	c.JSON(http.StatusOK, walletSummary{
		Balance:     balance,
		TotalEarned: earned,
		TotalUsed:   used,
	})
}

// History is GET /wallet/history: the append-only ledger, newest first.
func (h *Handler) History(c *gin.Context) {
	tenantID := c.GetUint("tenant_id")
	if tenantID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var entries []walletdomain.Entry
	if err := h.DB.
		Preload("Product").
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(200).
		Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wallet history"})
		return
	}

	c.JSON(http.StatusOK, entries)
}
