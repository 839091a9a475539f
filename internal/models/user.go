package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal identity record the engine needs: enough to resolve
// role-room membership. Account management lives elsewhere.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
