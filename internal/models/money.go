package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MaxValueCents bounds a single amount to what fits a NUMERIC(14,2) column.
const MaxValueCents int64 = 99_999_999_999_999

// maxCentsDigits bounds the integer digits of an amount before it is scaled to cents.
const maxCentsDigits = 13

var (
	ErrInvalidAmount    = errors.New("amount must have at most two decimal places")
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// Amount is a currency value rendered with two fractional digits.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// MarshalJSON renders the amount as a quoted fixed-point string ("100.00").
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.StringFixed(2) + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

func (a Amount) String() string {
	return a.StringFixed(2)
}

// Cents returns the amount in integer minor units.
func (a Amount) Cents() (int64, error) {
	return ToCents(a.Decimal)
}

// ToCents converts a decimal amount into integer minor units, preserving sign.
// The exponent is bounded against the coefficient width before any shift, so
// inputs such as 1e2000000000 never expand into huge integers.
func ToCents(d decimal.Decimal) (int64, error) {
	coefficient := d.Coefficient()
	if coefficient.Sign() == 0 {
		return 0, nil
	}
	digits := int64(len(coefficient.Abs(coefficient).String()))
	exponent := int64(d.Exponent())
	if digits+exponent > maxCentsDigits {
		return 0, ErrAmountOutOfRange
	}
	if exponent < -2 && -exponent-2 >= digits {
		return 0, ErrInvalidAmount
	}

	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, ErrInvalidAmount
	}
	if shifted.Abs().GreaterThan(decimal.NewFromInt(MaxValueCents)) {
		return 0, ErrAmountOutOfRange
	}
	return shifted.IntPart(), nil
}

// FromCents converts integer minor units back into an amount.
func FromCents(cents int64) Amount {
	return Amount{Decimal: decimal.New(cents, -2)}
}
