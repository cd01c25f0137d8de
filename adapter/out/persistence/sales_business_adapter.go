package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sales_server/core/domain"
	"sales_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// BusinessAdapter implements out.BusinessRepository.
type BusinessAdapter struct {
	db *sqlx.DB
}

var _ out.BusinessRepository = (*BusinessAdapter)(nil)

func NewBusinessAdapter(db *sqlx.DB) *BusinessAdapter {
	return &BusinessAdapter{db: db}
}

type businessRow struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Config    string    `db:"config"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *businessRow) toDomain() *domain.Business {
	return &domain.Business{
		ID:        r.ID,
		Name:      r.Name,
		Config:    r.Config,
		CreatedAt: r.CreatedAt,
	}
}

func (a *BusinessAdapter) GetByID(ctx context.Context, id int64) (*domain.Business, error) {
	query := a.db.Rebind(`SELECT id, name, config, created_at FROM businesses WHERE id = ?`)

	var row businessRow
	if err := a.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (a *BusinessAdapter) Create(ctx context.Context, name, config string) (*domain.Business, error) {
	query := a.db.Rebind(`INSERT INTO businesses (name, config, created_at) VALUES (?, ?, ?) RETURNING id`)

	var id int64
	if err := a.db.QueryRowxContext(ctx, query, name, config, time.Now().UTC()).Scan(&id); err != nil {
		return nil, err
	}
	return a.GetByID(ctx, id)
}

func (a *BusinessAdapter) Update(ctx context.Context, id int64, name, config string) (*domain.Business, error) {
	query := a.db.Rebind(`UPDATE businesses SET name = ?, config = ? WHERE id = ?`)

	result, err := a.db.ExecContext(ctx, query, name, config, id)
	if err != nil {
		return nil, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, ErrNotFound
	}
	return a.GetByID(ctx, id)
}

// UserAdapter implements out.UserRepository.
type UserAdapter struct {
	db *sqlx.DB
}

var _ out.UserRepository = (*UserAdapter)(nil)

func NewUserAdapter(db *sqlx.DB) *UserAdapter {
	return &UserAdapter{db: db}
}

func (a *UserAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := a.db.Rebind(`SELECT id, business_id, fullname, email, tokens, created_at FROM users WHERE id = ?`)

	var user domain.User
	if err := a.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts a user. A zero ID is replaced by a new random one.
func (a *UserAdapter) Create(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := a.db.Rebind(`
		INSERT INTO users (id, business_id, fullname, email, tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := a.db.ExecContext(ctx, query,
		user.ID, user.BusinessID, user.FullName, user.Email, user.Tokens, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
