package models

import "time"

// BalanceRecord is the single mutable balance owned by one user.
type BalanceRecord struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"ownerId" db:"user_id"`
	Value       Amount    `json:"value" db:"value_cents"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
