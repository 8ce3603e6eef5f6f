package products

import "time"

// Product is a sellable GSA system. Edited only through the admin API.
type Product struct {
	ID           uint   `gorm:"primaryKey"`
	Slug         string `gorm:"not null;uniqueIndex:idx_products_slug"`
	Name         string `gorm:"not null"`
	Description  string
	PriceMonthly float64 `gorm:"column:price_monthly;not null"`
	TrialDays    int     `gorm:"column:trial_days;default:0"`
	Active       bool    `gorm:"default:true"`

	// Newline-separated feature bullets, rendered by the storefront.
	Features string

	CreatedAt time.Time
	UpdatedAt time.Time
}
