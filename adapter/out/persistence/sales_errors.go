package persistence

import (
	"errors"
	"strings"

	"sales_server/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common persistence errors
var (
	ErrNotFound     = domain.ErrNotFound
	ErrDuplicate    = domain.ErrDuplicate
	ErrInvalidInput = errors.New("invalid input")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
