package users

import (
	"time"

	"gsa-hub/internal/domain/tenants"
)

type User struct {
	ID       uint `gorm:"primaryKey"`
	TenantID uint `gorm:"not null;index"`
	Tenant   *tenants.Tenant

	Name         string
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password     *string `gorm:""`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub"`
	CpfCnpj      string  `gorm:"column:cpf_cnpj"`
	Role         string

	// The referral code this user registered under. Immutable; a nil value
	// means the user was not referred and payments never produce a credit.
	ReferredByCode *string `gorm:"column:referred_by_code"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}
