package in

import (
	"context"
	"time"

	"sales_server/core/domain"

	"github.com/google/uuid"
)

// BusinessService manages a tenant's profile, catalog and leads on behalf of
// one of its users.
type BusinessService interface {
	GetBusiness(ctx context.Context, userID uuid.UUID) (*BusinessView, error)
	UpdateBusiness(ctx context.Context, userID uuid.UUID, req *UpdateBusinessRequest) (*BusinessView, error)

	ListProducts(ctx context.Context, userID uuid.UUID) ([]domain.Product, error)
	CreateProduct(ctx context.Context, userID uuid.UUID, input *domain.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, userID uuid.UUID, productID int64, input *domain.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, userID uuid.UUID, productID int64) error

	ListLeads(ctx context.Context, userID uuid.UUID) ([]domain.Lead, error)

	CreateAccount(ctx context.Context, req *CreateAccountRequest) (*domain.Business, *domain.User, error)
}

// BusinessView is a business with its decoded configuration.
type BusinessView struct {
	ID        int64                  `json:"id"`
	Name      string                 `json:"name"`
	Config    *domain.BusinessConfig `json:"config"`
	Catalog   []domain.Product       `json:"catalog"`
	CreatedAt time.Time              `json:"created_at"`
}

type UpdateBusinessRequest struct {
	Name   *string `json:"name"`
	Config *string `json:"config"`
}

// CreateAccountRequest opens a business with its owner.
type CreateAccountRequest struct {
	BusinessName string
	Config       string
	FullName     string
	Email        string
}

// TokenService exposes the ledger to account holders and operators.
type TokenService interface {
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.TokenTransaction, error)
	Grant(ctx context.Context, userID uuid.UUID, amount int64, detail string) (int64, error)
}
