package persistence

import (
	"context"
	"time"

	"sales_server/core/domain"
	"sales_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ChatHistoryAdapter implements out.ChatHistoryRepository.
type ChatHistoryAdapter struct {
	db *sqlx.DB
}

var _ out.ChatHistoryRepository = (*ChatHistoryAdapter)(nil)

func NewChatHistoryAdapter(db *sqlx.DB) *ChatHistoryAdapter {
	return &ChatHistoryAdapter{db: db}
}

type chatRow struct {
	ID         int64     `db:"id"`
	UserID     uuid.UUID `db:"user_id"`
	BusinessID int64     `db:"business_id"`
	Message    string    `db:"message"`
	Response   string    `db:"response"`
	Emotion    string    `db:"emotion"`
	SalesStage string    `db:"sales_stage"`
	IsSale     bool      `db:"is_sale"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r *chatRow) toDomain() domain.ChatRecord {
	return domain.ChatRecord{
		ID:         r.ID,
		UserID:     r.UserID,
		BusinessID: r.BusinessID,
		Message:    r.Message,
		Response:   r.Response,
		Emotion:    domain.Emotion(r.Emotion),
		SalesStage: domain.SalesStage(r.SalesStage),
		IsSale:     r.IsSale,
		CreatedAt:  r.CreatedAt,
	}
}

// RecentExchanges returns up to count exchanges, most recent first.
func (a *ChatHistoryAdapter) RecentExchanges(ctx context.Context, businessID int64, count int) ([]domain.Exchange, error) {
	query := a.db.Rebind(`
		SELECT id, message, response FROM chats
		WHERE business_id = ?
		ORDER BY id DESC
		LIMIT ?`)

	var exchanges []domain.Exchange
	if err := a.db.SelectContext(ctx, &exchanges, query, businessID, count); err != nil {
		return nil, err
	}
	return exchanges, nil
}

// DeleteExceptMostRecent keeps the keep newest chats of a business.
func (a *ChatHistoryAdapter) DeleteExceptMostRecent(ctx context.Context, businessID int64, keep int) (int64, error) {
	query := a.db.Rebind(`
		DELETE FROM chats
		WHERE business_id = ?
		AND id NOT IN (
			SELECT id FROM chats WHERE business_id = ? ORDER BY id DESC LIMIT ?
		)`)

	result, err := a.db.ExecContext(ctx, query, businessID, businessID, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Save inserts a chat turn and fills its ID and timestamp.
func (a *ChatHistoryAdapter) Save(ctx context.Context, record *domain.ChatRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	emotion := record.Emotion
	if emotion == "" {
		emotion = domain.EmotionNeutral
	}
	stage := record.SalesStage
	if stage == "" {
		stage = domain.StageRapportBuilding
	}

	query := a.db.Rebind(`
		INSERT INTO chats (user_id, business_id, message, response, emotion, sales_stage, is_sale, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	return a.db.QueryRowxContext(ctx, query,
		record.UserID,
		record.BusinessID,
		record.Message,
		record.Response,
		string(emotion),
		string(stage),
		record.IsSale,
		record.CreatedAt,
	).Scan(&record.ID)
}

// ListByBusiness returns up to limit chats, newest first.
func (a *ChatHistoryAdapter) ListByBusiness(ctx context.Context, businessID int64, limit int) ([]domain.ChatRecord, error) {
	query := a.db.Rebind(`
		SELECT id, user_id, business_id, message, response, emotion, sales_stage, is_sale, created_at
		FROM chats
		WHERE business_id = ?
		ORDER BY id DESC
		LIMIT ?`)

	var rows []chatRow
	if err := a.db.SelectContext(ctx, &rows, query, businessID, limit); err != nil {
		return nil, err
	}

	records := make([]domain.ChatRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].toDomain()
	}
	return records, nil
}

// ClearBusiness deletes every chat of a business.
func (a *ChatHistoryAdapter) ClearBusiness(ctx context.Context, businessID int64) (int64, error) {
	result, err := a.db.ExecContext(ctx, a.db.Rebind(`DELETE FROM chats WHERE business_id = ?`), businessID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
