package out

import (
	"context"

	"sales_server/core/domain"

	"github.com/google/uuid"
)

// ProductRepository defines the outbound port for persisted catalog rows.
type ProductRepository interface {
	ListByBusiness(ctx context.Context, businessID int64) ([]domain.Product, error)
	GetByID(ctx context.Context, businessID, id int64) (*domain.Product, error)
	Create(ctx context.Context, businessID int64, input *domain.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, businessID, id int64, input *domain.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, businessID, id int64) error
}

// BusinessRepository defines the outbound port for tenants.
type BusinessRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Business, error)
	Create(ctx context.Context, name, config string) (*domain.Business, error)
	Update(ctx context.Context, id int64, name, config string) (*domain.Business, error)
}

// ChatHistoryRepository stores chat turns and serves the memory window.
type ChatHistoryRepository interface {
	// RecentExchanges returns up to count exchanges, most recent first.
	RecentExchanges(ctx context.Context, businessID int64, count int) ([]domain.Exchange, error)
	// DeleteExceptMostRecent removes all but the keep most recent exchanges.
	DeleteExceptMostRecent(ctx context.Context, businessID int64, keep int) (int64, error)

	Save(ctx context.Context, record *domain.ChatRecord) error
	ListByBusiness(ctx context.Context, businessID int64, limit int) ([]domain.ChatRecord, error)
	ClearBusiness(ctx context.Context, businessID int64) (int64, error)
}

// Ledger is the token-credit balance and transaction log.
//
// Debit must be atomic per user row: the balance check and the decrement
// happen in one statement so a single message is never charged twice and a
// balance never goes negative.
type Ledger interface {
	Debit(ctx context.Context, userID uuid.UUID, amount int64, txType, detail string) (int64, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int64, txType, detail string) (int64, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.TokenTransaction, error)
}

// LeadRepository is the lead sink.
type LeadRepository interface {
	// SaveWithCharge debits cost tokens from the lead owner and stores the
	// lead in one transaction. Returns domain.ErrInsufficientTokens when the
	// balance is short; nothing is stored in that case.
	SaveWithCharge(ctx context.Context, lead *domain.Lead, cost int64) error
	ListByBusiness(ctx context.Context, businessID int64) ([]domain.Lead, error)
}

// UserRepository resolves authenticated accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}
