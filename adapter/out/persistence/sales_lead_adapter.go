package persistence

import (
	"context"
	"time"

	"sales_server/core/domain"
	"sales_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LeadAdapter implements out.LeadRepository.
type LeadAdapter struct {
	db *sqlx.DB
}

var _ out.LeadRepository = (*LeadAdapter)(nil)

func NewLeadAdapter(db *sqlx.DB) *LeadAdapter {
	return &LeadAdapter{db: db}
}

type leadRow struct {
	ID         int64     `db:"id"`
	UserID     uuid.UUID `db:"user_id"`
	BusinessID int64     `db:"business_id"`
	Name       string    `db:"name"`
	Email      string    `db:"email"`
	Phone      string    `db:"phone"`
	Message    string    `db:"message"`
	CreatedAt  time.Time `db:"created_at"`
}

// SaveWithCharge debits the lead owner and stores the lead atomically.
func (a *LeadAdapter) SaveWithCharge(ctx context.Context, lead *domain.Lead, cost int64) error {
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	return withTx(ctx, a.db, func(tx *sqlx.Tx) error {
		if _, err := debitTx(ctx, tx, lead.UserID, cost, domain.TxLeadCapture, "Lead captured: "+lead.Name); err != nil {
			return err
		}

		query := tx.Rebind(`
			INSERT INTO leads (user_id, business_id, name, email, phone, message, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id`)

		return tx.QueryRowxContext(ctx, query,
			lead.UserID,
			lead.BusinessID,
			lead.Name,
			lead.Email,
			lead.Phone,
			lead.Message,
			lead.CreatedAt,
		).Scan(&lead.ID)
	})
}

// ListByBusiness returns the leads of a business, newest first.
func (a *LeadAdapter) ListByBusiness(ctx context.Context, businessID int64) ([]domain.Lead, error) {
	query := a.db.Rebind(`
		SELECT id, user_id, business_id, name, email, phone, message, created_at
		FROM leads
		WHERE business_id = ?
		ORDER BY id DESC`)

	var rows []leadRow
	if err := a.db.SelectContext(ctx, &rows, query, businessID); err != nil {
		return nil, err
	}

	leads := make([]domain.Lead, len(rows))
	for i, r := range rows {
		leads[i] = domain.Lead{
			ID:         r.ID,
			UserID:     r.UserID,
			BusinessID: r.BusinessID,
			Name:       r.Name,
			Email:      r.Email,
			Phone:      r.Phone,
			Message:    r.Message,
			CreatedAt:  r.CreatedAt,
		}
	}
	return leads, nil
}
