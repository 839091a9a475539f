package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an out-of-band system message delivered to a recipient
// scope (a user room or a role room). It is created by an administrative or
// system action and mutated only by a read acknowledgment.
type Notification struct {
	ID             uuid.UUID `json:"id" db:"id"`
	RecipientScope string    `json:"recipientScope" db:"recipient_scope"`
	Title          string    `json:"title" db:"title"`
	Content        string    `json:"content" db:"content"`
	Category       string    `json:"category" db:"category"`
	IsRead         bool      `json:"isRead" db:"is_read"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
