package billing

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "gsa-hub/internal/domain/billing"
	"gsa-hub/internal/domain/products"
	"gsa-hub/internal/domain/referrals"
	"gsa-hub/internal/domain/tenants"
	"gsa-hub/internal/domain/users"
	"gsa-hub/internal/domain/wallet"
	"gsa-hub/internal/infra/asaas"
	"gsa-hub/internal/pricing"
)

// Asaas rejects charges below this value, so wallet credit never takes an
// invoice under it.
const minChargeValue = 5.0

// CreateCheckout is POST /checkout: price the activation server-side,
// create the gateway charge and mirror it locally. The invoice row written
// here is what the webhook later reconciles against.
func (h *Handler) CreateCheckout(c *gin.Context) {
	var body struct {
		ProductID    uint    `json:"productId" binding:"required"`
		ProductName  string  `json:"productName"`
		ProductPrice float64 `json:"productPrice"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid productId"})
		return
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var user users.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}
	if user.CpfCnpj == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Complete seu perfil com CPF/CNPJ antes de pagar."})
		return
	}

	var product products.Product
	if err := h.DB.First(&product, body.ProductID).Error; err != nil || !product.Active {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown product"})
		return
	}

	// Price is never taken from the client. Base price, then the Connect
	// Rewards discount from the tenant's active referrals, then wallet
	// credit up to the cap.
	refCount, err := referrals.ActiveReferralCount(h.DB, user.TenantID, product.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute discount"})
		return
	}
	discountPct, price := pricing.EffectivePrice(product.PriceMonthly, refCount)
	// The gateway rejects charges under the minimum, so a heavily discounted
	// cheap product still prices at the floor.
	if price < minChargeValue {
		price = minChargeValue
	}

	balance, err := wallet.Balance(h.DB, user.TenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read wallet"})
		return
	}
	credit := math.Min(balance, math.Min(pricing.WalletCap(product.PriceMonthly), price))
	if price-credit < minChargeValue {
		credit = math.Max(0, price-minChargeValue)
	}
	credit = round2(credit)
	finalPrice := round2(price - credit)

	customerID, err := h.ensureGatewayCustomer(c, &user)
	if err != nil {
		h.Log.Error("gateway customer lookup failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Erro na conexão com o gateway de pagamento."})
		return
	}

	charge, err := h.Gateway.CreateCharge(c.Request.Context(), asaas.ChargeParams{
		Customer:          customerID,
		BillingType:       "UNDEFINED",
		Value:             finalPrice,
		DueDate:           time.Now().AddDate(0, 0, h.Cfg.ChargeDueDays).Format("2006-01-02"),
		Description:       fmt.Sprintf("GSA HUB - Ativação %s", product.Name),
		ExternalReference: fmt.Sprintf("%d|%d", product.ID, user.ID),
	})
	if err != nil {
		h.Log.Error("charge creation failed",
			zap.Uint("user_id", user.ID),
			zap.Uint("product_id", product.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Não foi possível gerar a fatura."})
		return
	}

	// Local state only after the gateway confirmed the charge: the invoice
	// mirror and the wallet debit land together or not at all.
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		invoice := billingdomain.PaymentInvoice{
			AsaasID:     charge.ID,
			UserID:      user.ID,
			ProductID:   product.ID,
			Amount:      finalPrice,
			Status:      billingdomain.InvoiceStatusCreated,
			BillingType: charge.BillingType,
			Description: fmt.Sprintf("GSA HUB - Ativação %s", product.Name),
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		if credit > 0 {
			pid := product.ID
			desc := fmt.Sprintf("Abatimento em fatura %s (%s)", charge.ID, product.Name)
			if _, err := wallet.Debit(tx, user.TenantID, credit, wallet.EntryTypeUsed, desc, &pid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.Log.Error("failed to record invoice after charge creation",
			zap.String("charge_id", charge.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record invoice"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkoutUrl":     charge.InvoiceURL,
		"amount":          finalPrice,
		"discountPercent": discountPct,
		"walletCredit":    credit,
	})
}

// ensureGatewayCustomer finds or creates the Asaas customer for the user's
// document and persists its id on the tenant the first time.
func (h *Handler) ensureGatewayCustomer(c *gin.Context, user *users.User) (string, error) {
	var tenant tenants.Tenant
	if err := h.DB.First(&tenant, user.TenantID).Error; err != nil {
		return "", fmt.Errorf("load tenant: %w", err)
	}
	if tenant.GatewayCustomerID != nil && *tenant.GatewayCustomerID != "" {
		return *tenant.GatewayCustomerID, nil
	}

	ctx := c.Request.Context()
	cus, err := h.Gateway.FindCustomerByCpfCnpj(ctx, user.CpfCnpj)
	if err != nil {
		return "", err
	}
	if cus == nil {
		cus, err = h.Gateway.CreateCustomer(ctx, user.Name, user.Email, user.CpfCnpj)
		if err != nil {
			return "", err
		}
	}

	if err := h.DB.Model(&tenants.Tenant{}).
		Where("id = ?", tenant.ID).
		Update("gateway_customer_id", cus.ID).Error; err != nil {
		return "", fmt.Errorf("store gateway customer: %w", err)
	}
	return cus.ID, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
