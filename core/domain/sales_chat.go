package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientTokens is returned by the ledger when a balance is short.
	ErrInsufficientTokens = errors.New("insufficient tokens")
	// ErrNotFound is returned by repositories for missing rows.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned by repositories when a unique key is taken.
	ErrDuplicate = errors.New("duplicate entry")
)

// Speaker identifies who said a memory line.
type Speaker string

const (
	SpeakerCustomer  Speaker = "Customer"
	SpeakerAssistant Speaker = "You"
)

// MemoryEntry is one chronological line of conversation memory.
type MemoryEntry struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// String renders the entry the way it is fed to the model.
func (e MemoryEntry) String() string {
	return string(e.Speaker) + ": " + e.Text
}

// Exchange is a stored message/response pair.
type Exchange struct {
	ID       int64  `db:"id"`
	Message  string `db:"message"`
	Response string `db:"response"`
}

// ChatRecord is a persisted chat turn.
type ChatRecord struct {
	ID         int64      `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	BusinessID int64      `json:"business_id"`
	Message    string     `json:"message"`
	Response   string     `json:"response"`
	Emotion    Emotion    `json:"emotion"`
	SalesStage SalesStage `json:"sales_stage"`
	IsSale     bool       `json:"is_sale"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PromptRole is the role of a message sent to the language model.
type PromptRole string

const (
	RoleSystem    PromptRole = "system"
	RoleAssistant PromptRole = "assistant"
	RoleUser      PromptRole = "user"
)

// PromptMessage is one message of the outbound prompt.
type PromptMessage struct {
	Role    PromptRole `json:"role"`
	Content string     `json:"content"`
}

// Lead is a captured prospect.
type Lead struct {
	ID         int64     `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	BusinessID int64     `json:"business_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// TokenTransaction is one ledger movement. Debits are negative.
type TokenTransaction struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Amount    int64     `json:"amount"`
	Type      string    `json:"type"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Ledger transaction types.
const (
	TxChat        = "chat"
	TxLeadCapture = "lead_capture"
	TxPurchase    = "purchase"
	TxGrant       = "grant"
)
