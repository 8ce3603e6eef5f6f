package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gsa-hub/config"
	adminapi "gsa-hub/internal/api/admin"
	"gsa-hub/internal/api/asaaswebhook"
	authapi "gsa-hub/internal/api/auth"
	billingapi "gsa-hub/internal/api/billing"
	productsapi "gsa-hub/internal/api/products"
	referralsapi "gsa-hub/internal/api/referrals"
	walletapi "gsa-hub/internal/api/wallet"
	"gsa-hub/internal/app/http/middleware"
	"gsa-hub/internal/infra/asaas"
	"gsa-hub/internal/reconcile"
	"gsa-hub/internal/rewards"
)

func Register(r *gin.Engine, db *gorm.DB, cfg *config.Config, log *zap.Logger) {
	gateway := asaas.NewClient(cfg.AsaasAPIURL, cfg.AsaasAPIKey)
	rewardsEngine := rewards.NewEngine(db, cfg.ReferralRewardPercent, log)
	reconcileEngine := reconcile.NewEngine(db, rewardsEngine, log)

	webhook := asaaswebhook.NewHandler(cfg.AsaasWebhookToken, reconcileEngine, log)
	authH := authapi.NewHandler(db, cfg, log)
	billingH := billingapi.NewHandler(db, cfg, gateway, log)
	productsH := productsapi.NewHandler(db)
	referralsH := referralsapi.NewHandler(db, cfg)
	walletH := walletapi.NewHandler(db)
	adminH := adminapi.NewHandler(db)

	// The webhook stays outside the sanitizer: its body must reach the
	// gate byte-for-byte.
	r.POST("/webhooks/asaas", webhook.Handle)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeInput())
	public.POST("/register", authH.Register)
	public.POST("/login", authH.Login)

	r.GET("/auth/google", authH.GoogleStart)
	r.GET("/auth/google/callback", authH.GoogleCallback)

	r.GET("/products", productsH.List)
	r.GET("/products/:slug", productsH.GetBySlug)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.Auth(cfg.JWTSecret), middleware.SanitizeInput())
	auth.GET("/me", authH.Me)
	auth.POST("/checkout", billingH.CreateCheckout)
	auth.GET("/payments", billingH.PaymentHistory)
	auth.GET("/licenses", billingH.Licenses)
	auth.GET("/referrals/codes", referralsH.MyCodes)
	auth.GET("/referrals/referred", referralsH.MyReferred)
	auth.GET("/wallet", walletH.Summary)
	auth.GET("/wallet/history", walletH.History)

	// Launching a system requires an active license for it.
	launch := auth.Group("/")
	launch.Use(middleware.RequireActiveSubscription(db))
	launch.GET("/products/:slug/launch", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"product_id": c.GetUint("product_id"), "access": "granted"})
	})

	// Admin
	admin := r.Group("/admin")
	admin.Use(middleware.Auth(cfg.JWTSecret), middleware.RequireRole("admin"), middleware.SanitizeInput())
	admin.GET("/dashboard", adminH.Dashboard)
	admin.GET("/tenants", adminH.ListTenants)
	admin.GET("/payments", adminH.ListPayments)
	admin.POST("/products", productsH.Create)
	admin.PUT("/products/:slug", productsH.Update)
}
