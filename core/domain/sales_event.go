package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types published after a chat turn.
const (
	EventLeadCaptured = "lead.captured"
	EventReadyToBuy   = "chat.ready_to_buy"
)

// Event is a notification for downstream consumers (CRM sync, owner alerts).
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	BusinessID int64          `json:"business_id"`
	UserID     uuid.UUID      `json:"user_id"`
	Payload    map[string]any `json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType string, businessID int64, userID uuid.UUID, payload map[string]any) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		BusinessID: businessID,
		UserID:     userID,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}
}
