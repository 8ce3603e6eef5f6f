package billing

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gsa-hub/config"
	"gsa-hub/internal/infra/asaas"
)

// Gateway is the slice of the Asaas client that checkout needs; tests swap
// in a fake instead of a live gateway.
type Gateway interface {
	FindCustomerByCpfCnpj(ctx context.Context, cpfCnpj string) (*asaas.Customer, error)
	CreateCustomer(ctx context.Context, name, email, cpfCnpj string) (*asaas.Customer, error)
	CreateCharge(ctx context.Context, params asaas.ChargeParams) (*asaas.Charge, error)
}

type Handler struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Gateway Gateway
	Log     *zap.Logger
}

func NewHandler(db *gorm.DB, cfg *config.Config, gateway Gateway, log *zap.Logger) *Handler {
	return &Handler{DB: db, Cfg: cfg, Gateway: gateway, Log: log}
}
