package models

import "time"

// Account is a bank account owned by one user.
type Account struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Branch    string    `json:"branch" db:"branch"`
	Account   string    `json:"account" db:"account"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type CardType string

const (
	CardTypePhysical CardType = "physical"
	CardTypeVirtual  CardType = "virtual"
)

// Card is a payment card linked to an account. The full number and the CVV
// never leave the store; Number holds the last four digits only.
type Card struct {
	ID        string    `json:"id" db:"id"`
	Type      CardType  `json:"type" db:"type"`
	Number    string    `json:"number" db:"number"`
	AccountID string    `json:"accountId" db:"account_id"`
	UserID    string    `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// MaskCardNumber keeps the last four digits of a card number.
func MaskCardNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}
