package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCents(t *testing.T) {
	tests := []struct {
		value string
		want  int64
		err   error
	}{
		{"100", 10000, nil},
		{"100.5", 10050, nil},
		{"-0.01", -1, nil},
		{"999999999999.99", 99_999_999_999_999, nil},
		{"1.005", 0, ErrInvalidAmount},
		{"1000000000000", 0, ErrAmountOutOfRange},
		{"1.500", 150, nil},
		{"12.3400000", 1234, nil},
		{"0e-2000000000", 0, nil},
		{"1e2000000000", 0, ErrAmountOutOfRange},
		{"-1e2000000000", 0, ErrAmountOutOfRange},
		{"-1e-2000000000", 0, ErrInvalidAmount},
		{"123e-5", 0, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cents, err := ToCents(decimal.RequireFromString(tt.value))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cents)
		})
	}
}

func TestAmount_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Balance Amount `json:"balance"`
	}{FromCents(10000)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":"100.00"}`, string(data))

	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`12.3`), &a))
	assert.Equal(t, "12.30", a.String())

	require.NoError(t, json.Unmarshal([]byte(`"7"`), &a))
	assert.Equal(t, "7.00", a.String())
}

func TestTransactionType(t *testing.T) {
	assert.Equal(t, TransactionTypeDebit, TypeForValue(decimal.NewFromInt(-1)))
	assert.Equal(t, TransactionTypeCredit, TypeForValue(decimal.NewFromInt(1)))
	assert.Equal(t, TransactionTypeCredit, TransactionTypeDebit.Flip())
	assert.Equal(t, TransactionTypeDebit, TransactionTypeCredit.Flip())
	assert.True(t, TransactionTypeDebit.Valid())
	assert.False(t, TransactionType("refund").Valid())
}

func TestMaskCardNumber(t *testing.T) {
	assert.Equal(t, "1111", MaskCardNumber("4111111111111111"))
	assert.Equal(t, "123", MaskCardNumber("123"))
}
