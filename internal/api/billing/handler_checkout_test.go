package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gsa-hub/config"
	"gsa-hub/database"
	billingdomain "gsa-hub/internal/domain/billing"
	"gsa-hub/internal/domain/products"
	"gsa-hub/internal/domain/referrals"
	"gsa-hub/internal/domain/tenants"
	"gsa-hub/internal/domain/users"
	"gsa-hub/internal/domain/wallet"
	"gsa-hub/internal/infra/asaas"
)

// fakeGateway records calls and answers from memory, standing in for Asaas.
type fakeGateway struct {
	customers    map[string]*asaas.Customer
	created      []asaas.ChargeParams
	chargeErr    error
	nextChargeID string
	findCalls    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{customers: map[string]*asaas.Customer{}, nextChargeID: "pay_fake_1"}
}

func (f *fakeGateway) FindCustomerByCpfCnpj(_ context.Context, cpfCnpj string) (*asaas.Customer, error) {
	f.findCalls++
	return f.customers[cpfCnpj], nil
}

func (f *fakeGateway) CreateCustomer(_ context.Context, name, email, cpfCnpj string) (*asaas.Customer, error) {
	cus := &asaas.Customer{ID: "cus_" + cpfCnpj, Name: name, Email: email, CpfCnpj: cpfCnpj}
	f.customers[cpfCnpj] = cus
	return cus, nil
}

func (f *fakeGateway) CreateCharge(_ context.Context, params asaas.ChargeParams) (*asaas.Charge, error) {
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	f.created = append(f.created, params)
	return &asaas.Charge{
		ID:          f.nextChargeID,
		Status:      "PENDING",
		Value:       params.Value,
		InvoiceURL:  "https://asaas.test/i/" + f.nextChargeID,
		BillingType: params.BillingType,
	}, nil
}

type checkoutEnv struct {
	router  *gin.Engine
	db      *gorm.DB
	gateway *fakeGateway
	user    users.User
	tenant  tenants.Tenant
	product products.Product
}

func newCheckoutEnv(t *testing.T) *checkoutEnv {
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

	tenant := tenants.Tenant{Name: "Buyer Co"}
	require.NoError(t, db.Create(&tenant).Error)
	user := users.User{
		TenantID: tenant.ID, Name: "Buyer", Email: "buyer@example.com",
		CpfCnpj: "99988877766", Role: "user",
	}
	require.NoError(t, db.Create(&user).Error)
	product := products.Product{Slug: "crm", Name: "GSA CRM", PriceMonthly: 100, Active: true}
	require.NoError(t, db.Create(&product).Error)

	gateway := newFakeGateway()
	cfg := &config.Config{ChargeDueDays: 3}
	handler := NewHandler(db, cfg, gateway, zap.NewNop())

	r := gin.New()
	r.POST("/checkout", func(c *gin.Context) {
		c.Set("user_id", user.ID)
		handler.CreateCheckout(c)
	})

	return &checkoutEnv{router: r, db: db, gateway: gateway, user: user, tenant: tenant, product: product}
}

func (env *checkoutEnv) post(t *testing.T, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *checkoutEnv) response(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCheckoutCreatesChargeAndInvoice(t *testing.T) {
	env := newCheckoutEnv(t)

	w := env.post(t, map[string]interface{}{"productId": env.product.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	out := env.response(t, w)
	assert.Equal(t, "https://asaas.test/i/pay_fake_1", out["checkoutUrl"])
	assert.Equal(t, 100.0, out["amount"])
	assert.Equal(t, 0.0, out["discountPercent"])
	assert.Equal(t, 0.0, out["walletCredit"])

	require.Len(t, env.gateway.created, 1)
	params := env.gateway.created[0]
	assert.Equal(t, "UNDEFINED", params.BillingType)
	assert.Equal(t, fmt.Sprintf("%d|%d", env.product.ID, env.user.ID), params.ExternalReference)
	assert.Contains(t, params.Description, env.product.Name)

	var invoice billingdomain.PaymentInvoice
	require.NoError(t, env.db.Where("asaas_id = ?", "pay_fake_1").First(&invoice).Error)
	assert.Equal(t, billingdomain.InvoiceStatusCreated, invoice.Status)
	assert.Equal(t, 100.0, invoice.Amount)
	assert.Equal(t, env.user.ID, invoice.UserID)
	assert.Equal(t, env.product.ID, invoice.ProductID)
}

func TestCheckoutRequiresDocumentBeforeGateway(t *testing.T) {
	env := newCheckoutEnv(t)
	require.NoError(t, env.db.Model(&users.User{}).
		Where("id = ?", env.user.ID).
		Update("cpf_cnpj", "").Error)

	w := env.post(t, map[string]interface{}{"productId": env.product.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CPF/CNPJ")
	assert.Empty(t, env.gateway.created)
}

func TestCheckoutRejectsInactiveProduct(t *testing.T) {
	env := newCheckoutEnv(t)
	require.NoError(t, env.db.Model(&products.Product{}).
		Where("id = ?", env.product.ID).
		Update("active", false).Error)

	w := env.post(t, map[string]interface{}{"productId": env.product.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.gateway.created)
}

func TestCheckoutIgnoresClientSuppliedPrice(t *testing.T) {
	env := newCheckoutEnv(t)

	w := env.post(t, map[string]interface{}{
		"productId":    env.product.ID,
		"productPrice": 1.0,
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, env.gateway.created, 1)
	assert.Equal(t, 100.0, env.gateway.created[0].Value)
}

func TestCheckoutAppliesReferralDiscount(t *testing.T) {
	env := newCheckoutEnv(t)

	// Two paid referrals under the buyer tenant's code: 40% off.
	require.NoError(t, env.db.Create(&referrals.ReferralCode{
		TenantID: env.tenant.ID, ProductID: env.product.ID, Code: "GSA-MYCODE01",
	}).Error)
	for _, uid := range []uint{101, 102} {
		require.NoError(t, env.db.Create(&referrals.ReferralUsage{
			UserID: uid, ProductID: env.product.ID, Code: "GSA-MYCODE01",
		}).Error)
	}

	w := env.post(t, map[string]interface{}{"productId": env.product.ID})
	require.Equal(t, http.StatusOK, w.Code)

	out := env.response(t, w)
	assert.Equal(t, 40.0, out["discountPercent"])
	assert.Equal(t, 60.0, out["amount"])
}

func TestCheckoutAppliesWalletCreditAndDebitsIt(t *testing.T) {
	env := newCheckoutEnv(t)
	_, err := wallet.Credit(env.db, env.tenant.ID, 30, wallet.EntryTypeEarned, "seed", nil)
	require.NoError(t, err)

	w := env.post(t, map[string]interface{}{"productId": env.product.ID})
	require.Equal(t, http.StatusOK, w.Code)

	out := env.response(t, w)
	assert.Equal(t, 30.0, out["walletCredit"])
	assert.Equal(t, 70.0, out["amount"])
	require.Len(t, env.gateway.created, 1)
	assert.Equal(t, 70.0, env.gateway.created[0].Value)

	balance, err := wallet.Balance(env.db, env.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, balance)

	var debit wallet.Entry
	require.NoError(t, env.db.Where("tenant_id = ? AND type = ?", env.tenant.ID, wallet.EntryTypeUsed).
		First(&debit).Error)
	assert.Equal(t, -30.0, debit.Amount)
}

func TestCheckoutWalletCreditCappedAtEightyPercent(t *testing.T) {
	env := newCheckoutEnv(t)
	_, err := wallet.Credit(env.db, env.tenant.ID, 500, wallet.EntryTypeEarned, "seed", nil)
	require.NoError(t, err)

	w := env.post(t, map[string]interface{}{"productId": env.product.ID})
	require.Equal(t, http.StatusOK, w.Code)

	out := env.response(t, w)
	assert.Equal(t, 80.0, out["walletCredit"])
	assert.Equal(t, 20.0, out["amount"])

	balance, err := wallet.Balance(env.db, env.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 420.0, balance)
}

func TestCheckoutNeverChargesBelowGatewayMinimum(t *testing.T) {
	env := newCheckoutEnv(t)

	// Four paid referrals reach the 80% discount cap: base 100 prices at 20.
	require.NoError(t, env.db.Create(&referrals.ReferralCode{
		TenantID: env.tenant.ID, ProductID: env.product.ID, Code: "GSA-MYCODE01",
	}).Error)
	for _, uid := range []uint{101, 102, 103, 104} {
		require.NoError(t, env.db.Create(&referrals.ReferralUsage{
			UserID: uid, ProductID: env.product.ID, Code: "GSA-MYCODE01",
		}).Error)
	}
	_, err := wallet.Credit(env.db, env.tenant.ID, 500, wallet.EntryTypeEarned, "seed", nil)
	require.NoError(t, err)

	w := env.post(t, map[string]interface{}{"productId": env.product.ID})
	require.Equal(t, http.StatusOK, w.Code)

	// Credit is floored so the charge stays at the gateway minimum.
	out := env.response(t, w)
	assert.Equal(t, 15.0, out["walletCredit"])
	assert.Equal(t, 5.0, out["amount"])
	require.Len(t, env.gateway.created, 1)
	assert.Equal(t, 5.0, env.gateway.created[0].Value)
}

func TestCheckoutDiscountedPriceFlooredAtGatewayMinimum(t *testing.T) {
	env := newCheckoutEnv(t)

	// A cheap product at the 80% discount cap would price at R$4, below
	// what the gateway accepts.
	cheap := products.Product{Slug: "lite", Name: "GSA Lite", PriceMonthly: 20, Active: true}
	require.NoError(t, env.db.Create(&cheap).Error)
	require.NoError(t, env.db.Create(&referrals.ReferralCode{
		TenantID: env.tenant.ID, ProductID: cheap.ID, Code: "GSA-MYCODE02",
	}).Error)
	for _, uid := range []uint{101, 102, 103, 104} {
		require.NoError(t, env.db.Create(&referrals.ReferralUsage{
			UserID: uid, ProductID: cheap.ID, Code: "GSA-MYCODE02",
		}).Error)
	}

	w := env.post(t, map[string]interface{}{"productId": cheap.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	out := env.response(t, w)
	assert.Equal(t, 80.0, out["discountPercent"])
	assert.Equal(t, 5.0, out["amount"])
	require.Len(t, env.gateway.created, 1)
	assert.Equal(t, 5.0, env.gateway.created[0].Value)
}

func TestCheckoutGatewayCustomerIsCachedOnTenant(t *testing.T) {
	env := newCheckoutEnv(t)

	w := env.post(t, map[string]interface{}{"productId": env.product.ID})
	require.Equal(t, http.StatusOK, w.Code)

	var tenant tenants.Tenant
	require.NoError(t, env.db.First(&tenant, env.tenant.ID).Error)
	require.NotNil(t, tenant.GatewayCustomerID)
	assert.Equal(t, "cus_99988877766", *tenant.GatewayCustomerID)

	// Second checkout reuses the stored id without touching the customer API.
	env.gateway.nextChargeID = "pay_fake_2"
	w = env.post(t, map[string]interface{}{"productId": env.product.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.gateway.findCalls)
}

func TestCheckoutGatewayFailureLeavesNoLocalState(t *testing.T) {
	env := newCheckoutEnv(t)
	_, err := wallet.Credit(env.db, env.tenant.ID, 30, wallet.EntryTypeEarned, "seed", nil)
	require.NoError(t, err)
	env.gateway.chargeErr = fmt.Errorf("asaas: request failed with status 500")

	w := env.post(t, map[string]interface{}{"productId": env.product.ID})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var invoiceCount int64
	env.db.Model(&billingdomain.PaymentInvoice{}).Count(&invoiceCount)
	assert.Zero(t, invoiceCount)

	// The wallet was not debited for a charge that never existed.
	balance, err := wallet.Balance(env.db, env.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, balance)
}
