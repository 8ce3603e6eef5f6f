package asaaswebhook

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gsa-hub/database"
	"gsa-hub/internal/domain/billing"
	"gsa-hub/internal/domain/products"
	"gsa-hub/internal/domain/referrals"
	"gsa-hub/internal/domain/tenants"
	"gsa-hub/internal/domain/users"
	"gsa-hub/internal/domain/wallet"
	"gsa-hub/internal/reconcile"
	"gsa-hub/internal/rewards"
)

const testToken = "whsec-test"

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	log := zap.NewNop()
	engine := reconcile.NewEngine(db, rewards.NewEngine(db, 20, log), log)
	handler := NewHandler(testToken, engine, log)

	r := gin.New()
	r.POST("/webhooks/asaas", handler.Handle)
	return r, db
}

func post(r *gin.Engine, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/asaas", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("asaas-access-token", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// seedPaidSetup creates a referred buyer with a created invoice for the
// given charge and returns the confirmed-payment webhook body for it.
func seedPaidSetup(t *testing.T, db *gorm.DB, chargeID string) string {
	t.Helper()

	product := products.Product{Slug: "crm", Name: "GSA CRM", PriceMonthly: 100, Active: true}
	require.NoError(t, db.Create(&product).Error)

	referrer := tenants.Tenant{Name: "Referrer Co"}
	require.NoError(t, db.Create(&referrer).Error)
	code := "GSA-REF00001"
	require.NoError(t, db.Create(&referrals.ReferralCode{
		TenantID: referrer.ID, ProductID: product.ID, Code: code,
	}).Error)

	buyerTenant := tenants.Tenant{Name: "Buyer Co", ReferrerTenantID: &referrer.ID}
	require.NoError(t, db.Create(&buyerTenant).Error)
	buyer := users.User{
		TenantID:       buyerTenant.ID,
		Name:           "Buyer",
		Email:          "buyer@example.com",
		CpfCnpj:        "99988877766",
		Role:           "user",
		ReferredByCode: &code,
	}
	require.NoError(t, db.Create(&buyer).Error)

	require.NoError(t, db.Create(&billing.PaymentInvoice{
		AsaasID:   chargeID,
		UserID:    buyer.ID,
		ProductID: product.ID,
		Amount:    100,
		Status:    billing.InvoiceStatusCreated,
	}).Error)

	return fmt.Sprintf(`{
		"event": "PAYMENT_RECEIVED",
		"payment": {
			"id": %q,
			"value": 100,
			"netValue": 95,
			"customer": "cus_123",
			"externalReference": "%d|%d",
			"billingType": "PIX"
		}
	}`, chargeID, product.ID, buyer.ID)
}

func countMutations(db *gorm.DB) (subs, usages, entries int64) {
	db.Model(&billing.Subscription{}).Count(&subs)
	db.Model(&referrals.ReferralUsage{}).Count(&usages)
	db.Model(&wallet.Entry{}).Count(&entries)
	return
}

func TestWebhookRejectsMissingToken(t *testing.T) {
	r, db := newTestRouter(t)
	body := seedPaidSetup(t, db, "pay_1")

	w := post(r, "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	subs, usages, entries := countMutations(db)
	assert.Zero(t, subs)
	assert.Zero(t, usages)
	assert.Zero(t, entries)
}

func TestWebhookRejectsWrongToken(t *testing.T) {
	r, db := newTestRouter(t)
	body := seedPaidSetup(t, db, "pay_1")

	w := post(r, "wrong-token", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	subs, _, _ := countMutations(db)
	assert.Zero(t, subs)
}

func TestWebhookConfirmedPaymentActivates(t *testing.T) {
	r, db := newTestRouter(t)
	body := seedPaidSetup(t, db, "pay_1")

	w := post(r, testToken, body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received": true}`, w.Body.String())

	var invoice billing.PaymentInvoice
	require.NoError(t, db.Where("asaas_id = ?", "pay_1").First(&invoice).Error)
	assert.Equal(t, billing.InvoiceStatusPaid, invoice.Status)

	subs, usages, entries := countMutations(db)
	assert.EqualValues(t, 1, subs)
	assert.EqualValues(t, 1, usages)
	assert.EqualValues(t, 1, entries)
}

func TestWebhookRedeliveryIsAcknowledgedWithoutDoubleApply(t *testing.T) {
	r, db := newTestRouter(t)
	body := seedPaidSetup(t, db, "pay_1")

	for i := 0; i < 3; i++ {
		w := post(r, testToken, body)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	subs, usages, entries := countMutations(db)
	assert.EqualValues(t, 1, subs)
	assert.EqualValues(t, 1, usages)
	assert.EqualValues(t, 1, entries)
}

func TestWebhookMalformedBodyIsAcknowledged(t *testing.T) {
	r, db := newTestRouter(t)

	w := post(r, testToken, `{"event": "PAYMENT_RECEIVED", "payment":`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received": true}`, w.Body.String())

	w = post(r, testToken, `{"event": "PAYMENT_RECEIVED", "payment": {}}`)
	assert.Equal(t, http.StatusOK, w.Code)

	subs, _, _ := countMutations(db)
	assert.Zero(t, subs)
}

func TestWebhookUnknownChargeIsAcknowledgedAndParked(t *testing.T) {
	r, db := newTestRouter(t)

	w := post(r, testToken, `{"event": "PAYMENT_RECEIVED", "payment": {"id": "pay_ghost", "value": 100}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received": true}`, w.Body.String())

	subs, _, _ := countMutations(db)
	assert.Zero(t, subs)
}

func TestWebhookAmbiguousPayerIsParkedWithoutMutation(t *testing.T) {
	r, db := newTestRouter(t)
	seedPaidSetup(t, db, "pay_1")

	// A second user shares the buyer's document; without the composite
	// reference the payer cannot be pinned down.
	require.NoError(t, db.Create(&users.User{
		TenantID: 1, Name: "Twin", Email: "twin@example.com", CpfCnpj: "99988877766", Role: "user",
	}).Error)

	body := `{
		"event": "PAYMENT_RECEIVED",
		"payment": {"id": "pay_1", "value": 100, "cpfCnpj": "99988877766"}
	}`
	w := post(r, testToken, body)
	assert.Equal(t, http.StatusOK, w.Code)

	subs, usages, entries := countMutations(db)
	assert.Zero(t, subs)
	assert.Zero(t, usages)
	assert.Zero(t, entries)

	var invoice billing.PaymentInvoice
	require.NoError(t, db.Where("asaas_id = ?", "pay_1").First(&invoice).Error)
	assert.Equal(t, billing.InvoiceStatusCreated, invoice.Status)
}
