package database

import (
	"fmt"
	"log"

	"gsa-hub/internal/domain/billing"
	"gsa-hub/internal/domain/products"
	"gsa-hub/internal/domain/referrals"
	"gsa-hub/internal/domain/tenants"
	"gsa-hub/internal/domain/users"
	"gsa-hub/internal/domain/wallet"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Init(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatal("AutoMigrate error:", err)
	}

	fmt.Println("Connected and migrated successfully")
	return db
}

// Migrate is separate from Init so tests can run the same schema
// against an in-memory store.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&tenants.Tenant{},
		&users.User{},
		&products.Product{},

		&billing.PaymentInvoice{},
		&billing.Subscription{},

		&referrals.ReferralCode{},
		&referrals.ReferralUsage{},

		&wallet.Wallet{},
		&wallet.Entry{},
	)
}
