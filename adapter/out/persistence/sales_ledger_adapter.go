package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sales_server/core/domain"
	"sales_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LedgerAdapter implements out.Ledger on the users.tokens column and the
// token_transactions log.
type LedgerAdapter struct {
	db *sqlx.DB
}

var _ out.Ledger = (*LedgerAdapter)(nil)

func NewLedgerAdapter(db *sqlx.DB) *LedgerAdapter {
	return &LedgerAdapter{db: db}
}

type transactionRow struct {
	ID        int64     `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Amount    int64     `db:"amount"`
	Type      string    `db:"type"`
	Detail    string    `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}

// Debit takes amount tokens from the user and returns the new balance.
func (a *LedgerAdapter) Debit(ctx context.Context, userID uuid.UUID, amount int64, txType, detail string) (int64, error) {
	var balance int64
	err := a.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		balance, err = debitTx(ctx, tx, userID, amount, txType, detail)
		return err
	})
	return balance, err
}

// Credit adds amount tokens to the user and returns the new balance.
func (a *LedgerAdapter) Credit(ctx context.Context, userID uuid.UUID, amount int64, txType, detail string) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: negative credit", ErrInvalidInput)
	}

	var balance int64
	err := a.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE users SET tokens = tokens + ? WHERE id = ?`), amount, userID)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return ErrNotFound
		}
		if err := logTx(ctx, tx, userID, amount, txType, detail); err != nil {
			return err
		}
		return tx.GetContext(ctx, &balance, tx.Rebind(`SELECT tokens FROM users WHERE id = ?`), userID)
	})
	return balance, err
}

// Balance returns the current token balance.
func (a *LedgerAdapter) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := a.db.GetContext(ctx, &balance, a.db.Rebind(`SELECT tokens FROM users WHERE id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return balance, err
}

// Transactions lists the newest ledger movements of a user.
func (a *LedgerAdapter) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.TokenTransaction, error) {
	query := a.db.Rebind(`
		SELECT id, user_id, amount, type, detail, created_at
		FROM token_transactions
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?`)

	var rows []transactionRow
	if err := a.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, err
	}

	txs := make([]domain.TokenTransaction, len(rows))
	for i, r := range rows {
		txs[i] = domain.TokenTransaction{
			ID:        r.ID,
			UserID:    r.UserID,
			Amount:    r.Amount,
			Type:      r.Type,
			Detail:    r.Detail,
			CreatedAt: r.CreatedAt,
		}
	}
	return txs, nil
}

func (a *LedgerAdapter) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return withTx(ctx, a.db, fn)
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// debitTx decrements the balance only when it covers amount. The check and
// the decrement are one statement, so concurrent debits cannot overdraw.
func debitTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, txType, detail string) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: negative debit", ErrInvalidInput)
	}

	result, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE users SET tokens = tokens - ? WHERE id = ? AND tokens >= ?`),
		amount, userID, amount)
	if err != nil {
		return 0, err
	}

	var balance int64
	if rows, _ := result.RowsAffected(); rows == 0 {
		err := tx.GetContext(ctx, &balance, tx.Rebind(`SELECT tokens FROM users WHERE id = ?`), userID)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, err
		}
		return balance, domain.ErrInsufficientTokens
	}

	if amount > 0 {
		if err := logTx(ctx, tx, userID, -amount, txType, detail); err != nil {
			return 0, err
		}
	}
	if err := tx.GetContext(ctx, &balance, tx.Rebind(`SELECT tokens FROM users WHERE id = ?`), userID); err != nil {
		return 0, err
	}
	return balance, nil
}

func logTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int64, txType, detail string) error {
	_, err := tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO token_transactions (user_id, amount, type, detail, created_at) VALUES (?, ?, ?, ?, ?)`),
		userID, amount, txType, detail, time.Now().UTC())
	return err
}
