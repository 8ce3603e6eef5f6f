// Package referrals serves the Connect Rewards dashboard: the tenant's
// share codes, how many referred users consumed each, and the discount the
// tenant currently earns from them.
package referrals

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gsa-hub/config"
	referraldomain "gsa-hub/internal/domain/referrals"
	"gsa-hub/internal/domain/users"
	"gsa-hub/internal/domain/wallet"
	"gsa-hub/internal/pricing"
)

type Handler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewHandler(db *gorm.DB, cfg *config.Config) *Handler {
	return &Handler{DB: db, Cfg: cfg}
}

type codeRow struct {
	Code            string  `json:"code"`
	ProductID       uint    `json:"product_id"`
	ProductName     string  `json:"product_name"`
	ShareURL        string  `json:"share_url"`
	ActiveReferrals int     `json:"active_referrals"`
	DiscountPercent int     `json:"discount_percent"`
	TotalEarned     float64 `json:"total_earned"`
}

// MyCodes is GET /referrals/codes.
func (h *Handler) MyCodes(c *gin.Context) {
	tenantID := c.GetUint("tenant_id")
	if tenantID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var codes []referraldomain.ReferralCode
	if err := h.DB.Preload("Product").Where("tenant_id = ?", tenantID).Find(&codes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load referral codes"})
		return
	}

	rows := make([]codeRow, 0, len(codes))
	for _, rc := range codes {
		count, err := referraldomain.ActiveReferralCount(h.DB, tenantID, rc.ProductID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count referrals"})
			return
		}

		var earned float64
		if err := h.DB.Model(&wallet.Entry{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("tenant_id = ? AND product_id = ? AND amount > 0", tenantID, rc.ProductID).
			Scan(&earned).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load earnings"})
			return
		}

		row := codeRow{
			Code:            rc.Code,
			ProductID:       rc.ProductID,
			ShareURL:        fmt.Sprintf("%s/register?ref=%s", h.Cfg.AppURL, rc.Code),
			ActiveReferrals: count,
			DiscountPercent: pricing.DiscountPercent(count),
			TotalEarned:     earned,
		}
		if rc.Product != nil {
			row.ProductName = rc.Product.Name
		}
		rows = append(rows, row)
	}

	c.JSON(http.StatusOK, rows)
}

type referredRow struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	ProductID uint   `json:"product_id"`
	Status    string `json:"status"`
}

// MyReferred is GET /referrals/referred: users who registered under one of
// the tenant's codes, with whether their bonus was already consumed.
func (h *Handler) MyReferred(c *gin.Context) {
	tenantID := c.GetUint("tenant_id")
	if tenantID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var codes []referraldomain.ReferralCode
	if err := h.DB.Where("tenant_id = ?", tenantID).Find(&codes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load referral codes"})
		return
	}
	if len(codes) == 0 {
		c.JSON(http.StatusOK, []referredRow{})
		return
	}

	codeStrings := make([]string, 0, len(codes))
	for _, rc := range codes {
		codeStrings = append(codeStrings, rc.Code)
	}

	var referred []users.User
	if err := h.DB.Where("referred_by_code IN ?", codeStrings).Find(&referred).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load referred users"})
		return
	}

	userIDs := make([]uint, 0, len(referred))
	for _, u := range referred {
		userIDs = append(userIDs, u.ID)
	}
	var usages []referraldomain.ReferralUsage
	if err := h.DB.Where("user_id IN ?", userIDs).Find(&usages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load referral usages"})
		return
	}
	usagesByUser := make(map[uint][]referraldomain.ReferralUsage, len(usages))
	for _, usage := range usages {
		usagesByUser[usage.UserID] = append(usagesByUser[usage.UserID], usage)
	}

	rows := make([]referredRow, 0, len(referred))
	for _, u := range referred {
		consumed := usagesByUser[u.ID]
		if len(consumed) == 0 {
			rows = append(rows, referredRow{Name: u.Name, Email: u.Email, Status: "pending"})
			continue
		}
		for _, usage := range consumed {
			rows = append(rows, referredRow{
				Name:      u.Name,
				Email:     u.Email,
				ProductID: usage.ProductID,
				Status:    "active",
			})
		}
	}

	c.JSON(http.StatusOK, rows)
}
