package products

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	productdomain "gsa-hub/internal/domain/products"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

// List is GET /products: the active catalog, storefront order.
func (h *Handler) List(c *gin.Context) {
	var items []productdomain.Product
	if err := h.DB.Where("active = ?", true).Order("name").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load products"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetBySlug is GET /products/:slug.
func (h *Handler) GetBySlug(c *gin.Context) {
	var item productdomain.Product
	if err := h.DB.Where("slug = ?", c.Param("slug")).First(&item).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

type productInput struct {
	Slug         string  `json:"slug" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	PriceMonthly float64 `json:"price_monthly" binding:"required"`
	TrialDays    int     `json:"trial_days"`
	Active       *bool   `json:"active"`
	Features     string  `json:"features"`
}

// Create is POST /admin/products.
func (h *Handler) Create(c *gin.Context) {
	var input productInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := productdomain.Product{
		Slug:         input.Slug,
		Name:         input.Name,
		Description:  input.Description,
		PriceMonthly: input.PriceMonthly,
		TrialDays:    input.TrialDays,
		Active:       true,
		Features:     input.Features,
	}
	if input.Active != nil {
		item.Active = *input.Active
	}

	if err := h.DB.Create(&item).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Slug may already exist"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// Update is PUT /admin/products/:slug.
func (h *Handler) Update(c *gin.Context) {
	var item productdomain.Product
	if err := h.DB.Where("slug = ?", c.Param("slug")).First(&item).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	var input productInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{
		"name":          input.Name,
		"description":   input.Description,
		"price_monthly": input.PriceMonthly,
		"trial_days":    input.TrialDays,
		"features":      input.Features,
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}

	if err := h.DB.Model(&item).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}
	c.JSON(http.StatusOK, item)
}
