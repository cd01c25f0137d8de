package business

import (
	"context"
	"errors"

	"sales_server/core/domain"
	"sales_server/core/port/in"
	"sales_server/core/port/out"
	"sales_server/pkg/apperr"
	"sales_server/pkg/logger"

	"github.com/google/uuid"
)

const (
	DefaultTransactionLimit = 20
	MaxTransactionLimit     = 100
)

// TokenService exposes the ledger.
type TokenService struct {
	ledger out.Ledger
}

var _ in.TokenService = (*TokenService)(nil)

func NewTokenService(ledger out.Ledger) *TokenService {
	return &TokenService{ledger: ledger}
}

func (s *TokenService) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return 0, ledgerError("get balance", err)
	}
	return balance, nil
}

func (s *TokenService) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.TokenTransaction, error) {
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	if limit > MaxTransactionLimit {
		limit = MaxTransactionLimit
	}
	txs, err := s.ledger.Transactions(ctx, userID, limit)
	if err != nil {
		return nil, ledgerError("list transactions", err)
	}
	return txs, nil
}

// Grant credits amount tokens to the user.
func (s *TokenService) Grant(ctx context.Context, userID uuid.UUID, amount int64, detail string) (int64, error) {
	if amount <= 0 {
		return 0, apperr.InvalidInput("amount", "must be positive")
	}
	if detail == "" {
		detail = "Token grant"
	}
	balance, err := s.ledger.Credit(ctx, userID, amount, domain.TxGrant, detail)
	if err != nil {
		return 0, ledgerError("grant tokens", err)
	}
	logger.WithField("user_id", userID).Info("[TokenService.Grant] granted %d tokens, balance %d", amount, balance)
	return balance, nil
}

func ledgerError(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperr.NotFound("user")
	}
	return apperr.DatabaseError(op, err)
}
