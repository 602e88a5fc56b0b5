package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestStruct struct {
	Name    string `validate:"required,min=2"`
	Branch  string `validate:"required,branch"`
	Account string `validate:"required,account_number"`
	CVV     string `validate:"required,len=3,digits"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		valid := TestStruct{
			Name:    "John Doe",
			Branch:  "001",
			Account: "1234567-8",
			CVV:     "123",
		}

		err := vh.ValidateStruct(&valid)
		assert.NoError(t, err)
	})

	t.Run("invalid struct - every field fails", func(t *testing.T) {
		invalid := TestStruct{
			Name:    "J",
			Branch:  "01",
			Account: "12345678",
			CVV:     "12a",
		}

		err := vh.ValidateStruct(&invalid)
		require.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		require.True(t, ok)
		assert.Len(t, validationErrors, 4)
	})

	t.Run("custom tags", func(t *testing.T) {
		tests := []struct {
			name    string
			account string
			branch  string
			tag     string
		}{
			{"branch with letters", "1234567-8", "0a1", "branch"},
			{"account without dash", "12345678", "001", "account_number"},
			{"account with short suffix", "123456-78", "001", "account_number"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := vh.ValidateStruct(&TestStruct{Name: "Ana", Branch: tt.branch, Account: tt.account, CVV: "123"})
				require.Error(t, err)

				validationErrors, ok := err.(validator.ValidationErrors)
				require.True(t, ok)
				require.Len(t, validationErrors, 1)
				assert.Equal(t, tt.tag, validationErrors[0].Tag())
			})
		}
	})
}

func TestValidationDetail(t *testing.T) {
	vh := NewValidationHelper()

	err := vh.ValidateStruct(&TestStruct{Name: "Ana", Branch: "001", Account: "1234567-8"})
	detail := ValidationDetail(err)
	assert.Equal(t, map[string]string{"CVV": "Field Validation Failed on 'required' tag"}, detail)

	assert.Nil(t, ValidationDetail(errors.New("plain")))
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without detail", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "request.body.invalid", http.StatusBadRequest, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "request.body.invalid", response.Message)
		assert.Nil(t, response.Detail)
		assert.NotContains(t, w.Body.String(), "detail")
	})

	t.Run("error response with detail", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "request.validation.failed", http.StatusBadRequest, map[string]string{"Value": "required"})

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, map[string]string{"Value": "required"}, response.Detail)
	})
}

func TestSendServiceError(t *testing.T) {
	t.Run("coded error keeps its code and detail", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendServiceError(w, insufficientBalance("transactions.create.nok"), "transactions.create.error")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "transactions.create.nok", response.Message)
		assert.Equal(t, "BALANCE_NEGATIVE", response.Detail["code"])
	})

	t.Run("unknown error hides store text", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendServiceError(w, errors.New(`pq: relation "balances" does not exist`), "transactions.create.error")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "balances")
		assert.Contains(t, w.Body.String(), "transactions.create.error")
	})
}

func TestSendJSON(t *testing.T) {
	w := httptest.NewRecorder()

	SendJSON(w, http.StatusCreated, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
