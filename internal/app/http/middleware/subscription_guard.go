package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gsa-hub/internal/domain/billing"
	"gsa-hub/internal/domain/products"
)

// RequireActiveSubscription gates product launch routes: the caller must
// hold an active subscription for the product named by the :slug param.
func RequireActiveSubscription(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var product products.Product
		if err := db.Where("slug = ?", c.Param("slug")).First(&product).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}

		var sub billing.Subscription
		err := db.Where("user_id = ? AND product_id = ?", userID, product.ID).First(&sub).Error
		if err != nil || sub.Status != billing.SubscriptionStatusActive {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "Subscription not active for this product",
			})
			return
		}

		c.Set("product_id", product.ID)
		c.Next()
	}
}
