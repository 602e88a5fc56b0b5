package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// Flip returns the opposite movement type.
func (t TransactionType) Flip() TransactionType {
	if t == TransactionTypeCredit {
		return TransactionTypeDebit
	}
	return TransactionTypeCredit
}

func (t TransactionType) Valid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

// TypeForValue derives the movement type from the sign of value.
func TypeForValue(value decimal.Decimal) TransactionType {
	if value.IsNegative() {
		return TransactionTypeDebit
	}
	return TransactionTypeCredit
}

// Transaction is one posted balance movement. Value is always the magnitude;
// Type carries the direction. BalanceIDDestination is set only for transfers.
type Transaction struct {
	ID                   string          `json:"id" db:"id"`
	Type                 TransactionType `json:"type" db:"type"`
	Value                Amount          `json:"value" db:"value_cents"`
	Description          string          `json:"description" db:"description"`
	AccountID            string          `json:"accountId" db:"account_id"`
	BalanceIDSource      string          `json:"balanceIdSource" db:"balance_id_source"`
	BalanceIDDestination *string         `json:"balanceIdDestination,omitempty" db:"balance_id_destination"`
	ReversedFromID       *string         `json:"reversedFromId,omitempty" db:"reversed_from_id"`
	CreatedAt            time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time       `json:"updatedAt" db:"updated_at"`
}

// IsTransfer reports whether the movement touched two balances.
func (t *Transaction) IsTransfer() bool {
	return t.BalanceIDDestination != nil
}
