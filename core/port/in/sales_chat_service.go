package in

import (
	"context"

	"sales_server/core/domain"

	"github.com/google/uuid"
)

// ChatService runs one chat turn through classification, matching, memory
// and the language model.
type ChatService interface {
	HandleMessage(ctx context.Context, req *ChatRequest) (*ChatReply, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ChatRecord, error)
	ClearHistory(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ChatRequest is one inbound customer message.
type ChatRequest struct {
	UserID   uuid.UUID `json:"-"`
	Message  string    `json:"message"`
	DemoMode bool      `json:"demo_mode"`
}

// ChatReply is the outcome of a chat turn.
type ChatReply struct {
	Response         string                  `json:"response"`
	Emotion          domain.Emotion          `json:"emotion"`
	Tone             domain.Tone             `json:"tone"`
	SalesStage       domain.SalesStage       `json:"sales_stage"`
	MatchedProduct   *domain.ProductSummary  `json:"matched_product,omitempty"`
	Products         []domain.ProductSummary `json:"products,omitempty"`
	VisualURL        string                  `json:"visual_url,omitempty"`
	ShowContact      bool                    `json:"show_contact"`
	ContactWhatsApp  string                  `json:"contact_whatsapp,omitempty"`
	ContactPhone     string                  `json:"contact_phone,omitempty"`
	CleanupPerformed bool                    `json:"cleanup_performed"`
	Fallback         bool                    `json:"fallback"`
	TokensRemaining  *int64                  `json:"tokens_remaining,omitempty"`
}
