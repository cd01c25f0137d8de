// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sales_server/core/domain"
	"sales_server/core/port/out"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ProductAdapter implements out.ProductRepository.
type ProductAdapter struct {
	db *sqlx.DB
}

var _ out.ProductRepository = (*ProductAdapter)(nil)

// NewProductAdapter creates a new ProductAdapter.
func NewProductAdapter(db *sqlx.DB) *ProductAdapter {
	return &ProductAdapter{db: db}
}

// productRow represents the database row for products.
type productRow struct {
	ID          int64           `db:"id"`
	BusinessID  int64           `db:"business_id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Price       sql.NullFloat64 `db:"price"`
	ImageURL    string          `db:"image_url"`
	VideoURL    string          `db:"video_url"`
	Gallery     pq.StringArray  `db:"gallery"`
	Tags        string          `db:"tags"`
	URL         string          `db:"url"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (r *productRow) toDomain() domain.Product {
	p := domain.Product{
		ID:          r.ID,
		BusinessID:  r.BusinessID,
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		VideoURL:    r.VideoURL,
		Tags:        r.Tags,
		URL:         r.URL,
		Source:      domain.SourceDatabase,
		CreatedAt:   r.CreatedAt,
	}
	if r.Price.Valid {
		price := r.Price.Float64
		p.Price = &price
	}
	if len(r.Gallery) > 0 {
		p.Gallery = []string(r.Gallery)
	}
	return p
}

const productColumns = `id, business_id, name, description, price, image_url, video_url, gallery, tags, url, created_at`

// ListByBusiness returns the persisted catalog in insertion order.
func (a *ProductAdapter) ListByBusiness(ctx context.Context, businessID int64) ([]domain.Product, error) {
	query := a.db.Rebind(`SELECT ` + productColumns + ` FROM products WHERE business_id = ? ORDER BY id`)

	var rows []productRow
	if err := a.db.SelectContext(ctx, &rows, query, businessID); err != nil {
		return nil, err
	}

	products := make([]domain.Product, len(rows))
	for i := range rows {
		products[i] = rows[i].toDomain()
	}
	return products, nil
}

// GetByID gets a product of a business.
func (a *ProductAdapter) GetByID(ctx context.Context, businessID, id int64) (*domain.Product, error) {
	query := a.db.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ? AND business_id = ?`)

	var row productRow
	if err := a.db.GetContext(ctx, &row, query, id, businessID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p := row.toDomain()
	return &p, nil
}

// Create inserts a product.
func (a *ProductAdapter) Create(ctx context.Context, businessID int64, input *domain.ProductInput) (*domain.Product, error) {
	query := a.db.Rebind(`
		INSERT INTO products (business_id, name, description, price, image_url, video_url, gallery, tags, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	now := time.Now().UTC()
	var id int64
	err := a.db.QueryRowxContext(ctx, query,
		businessID,
		input.Name,
		input.Description,
		nullFloat(input.Price),
		input.ImageURL,
		input.VideoURL,
		pq.StringArray(nonNil(input.Gallery)),
		input.Tags,
		input.URL,
		now,
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	return a.GetByID(ctx, businessID, id)
}

// Update replaces the writable fields of a product.
func (a *ProductAdapter) Update(ctx context.Context, businessID, id int64, input *domain.ProductInput) (*domain.Product, error) {
	query := a.db.Rebind(`
		UPDATE products
		SET name = ?, description = ?, price = ?, image_url = ?, video_url = ?, gallery = ?, tags = ?, url = ?
		WHERE id = ? AND business_id = ?`)

	result, err := a.db.ExecContext(ctx, query,
		input.Name,
		input.Description,
		nullFloat(input.Price),
		input.ImageURL,
		input.VideoURL,
		pq.StringArray(nonNil(input.Gallery)),
		input.Tags,
		input.URL,
		id,
		businessID,
	)
	if err != nil {
		return nil, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, ErrNotFound
	}

	return a.GetByID(ctx, businessID, id)
}

// Delete removes a product.
func (a *ProductAdapter) Delete(ctx context.Context, businessID, id int64) error {
	query := a.db.Rebind(`DELETE FROM products WHERE id = ? AND business_id = ?`)

	result, err := a.db.ExecContext(ctx, query, id, businessID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
