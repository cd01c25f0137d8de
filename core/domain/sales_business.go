package domain

import (
	"time"

	"github.com/google/uuid"
)

// Business is a tenant. Config holds the raw JSON configuration document.
type Business struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Config    string    `json:"config,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BusinessConfig is the decoded configuration document of a business.
type BusinessConfig struct {
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	WhatsApp          string    `json:"whatsapp,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	EnableLeadCapture bool      `json:"enable_lead_capture"`
	Products          []Product `json:"products,omitempty"`
}

// Contact returns the configured contact channels.
func (c BusinessConfig) Contact() ContactInfo {
	return ContactInfo{WhatsApp: c.WhatsApp, Phone: c.Phone}
}

// ContactInfo holds the channels disclosed to buyers.
type ContactInfo struct {
	WhatsApp string `json:"whatsapp,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// IsEmpty reports whether no channel is configured.
func (c ContactInfo) IsEmpty() bool {
	return c.WhatsApp == "" && c.Phone == ""
}

// User is an authenticated account. Tokens is the ledger balance.
type User struct {
	ID         uuid.UUID `json:"id" db:"id"`
	BusinessID int64     `json:"business_id" db:"business_id"`
	FullName   string    `json:"fullname" db:"fullname"`
	Email      string    `json:"email" db:"email"`
	Tokens     int64     `json:"tokens" db:"tokens"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// FirstName returns the first word of the user's full name.
func (u *User) FirstName() string {
	for i, r := range u.FullName {
		if r == ' ' {
			return u.FullName[:i]
		}
	}
	return u.FullName
}
