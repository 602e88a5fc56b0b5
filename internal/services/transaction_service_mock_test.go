package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	balanceColumns = []string{"id", "user_id", "value_cents", "description", "created_at", "updated_at"}
	logColumns     = []string{"id", "type", "value_cents", "description", "account_id", "balance_id_source",
		"balance_id_destination", "reversed_from_id", "created_at", "updated_at"}
)

func newMockEngine(t *testing.T) (*TransactionService, sqlmock.Sqlmock) {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	resolver := new(MockAccountResolver)
	resolver.On("ResolveOwner", mock.Anything, "acc-1").Return("user-1", nil)
	return NewTransactionService(db, resolver, nil), dbMock
}

// expectOwnBalance queues the get-or-create of user-1's balance holding cents.
func expectOwnBalance(dbMock sqlmock.Sqlmock, cents int64) {
	now := time.Now()
	dbMock.ExpectExec(`INSERT INTO balances`).
		WithArgs(sqlmock.AnyArg(), "user-1", initialBalanceDescription, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	dbMock.ExpectQuery(`FROM balances WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(balanceColumns).AddRow("bal-1", "user-1", cents, initialBalanceDescription, now, now))
}

func debitInput(value string) CreateTransactionInput {
	return CreateTransactionInput{
		AccountID:    "acc-1",
		ActingUserID: "user-1",
		Value:        decimal.RequireFromString(value),
		Description:  "groceries",
	}
}

func TestTransactionService_CreateTransaction_StoreRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("debit update matching no row is insufficient balance", func(t *testing.T) {
		engine, dbMock := newMockEngine(t)

		dbMock.ExpectBegin()
		expectOwnBalance(dbMock, 10000)
		dbMock.ExpectExec(`INSERT INTO transactions`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbMock.ExpectExec(`UPDATE balances SET value_cents = value_cents - \$1, updated_at = \$2 WHERE id = \$3 AND value_cents >= \$1`).
			WithArgs(int64(3000), sqlmock.AnyArg(), "bal-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		dbMock.ExpectRollback()

		_, err := engine.CreateTransaction(ctx, debitInput("-30.00"))
		assertCode(t, err, ErrInsufficientBalance, "transactions.create.nok")
		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "BALANCE_NEGATIVE", svcErr.Detail["code"])
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("check violation is a constraint violation", func(t *testing.T) {
		engine, dbMock := newMockEngine(t)

		dbMock.ExpectBegin()
		expectOwnBalance(dbMock, 10000)
		dbMock.ExpectExec(`INSERT INTO transactions`).
			WillReturnError(&pq.Error{Code: "23514", Message: "violates check constraint"})
		dbMock.ExpectRollback()

		_, err := engine.CreateTransaction(ctx, debitInput("-30.00"))
		assertCode(t, err, ErrConstraintViolation, "transactions.create.nok")
		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "BALANCE_NEGATIVE", svcErr.Detail["code"])
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("serialization failure is a conflict", func(t *testing.T) {
		engine, dbMock := newMockEngine(t)

		dbMock.ExpectBegin()
		expectOwnBalance(dbMock, 10000)
		dbMock.ExpectExec(`INSERT INTO transactions`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbMock.ExpectExec(`UPDATE balances SET value_cents = value_cents - \$1`).
			WithArgs(int64(3000), sqlmock.AnyArg(), "bal-1").
			WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})
		dbMock.ExpectRollback()

		_, err := engine.CreateTransaction(ctx, debitInput("-30.00"))
		assertCode(t, err, ErrConflict, "transactions.create.conflict")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("low balance stops before any write", func(t *testing.T) {
		engine, dbMock := newMockEngine(t)

		dbMock.ExpectBegin()
		expectOwnBalance(dbMock, 1000)
		dbMock.ExpectRollback()

		_, err := engine.CreateTransaction(ctx, debitInput("-30.00"))
		assertCode(t, err, ErrInsufficientBalance, "transactions.create.nok")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestTransactionService_ReverseTransaction_DuplicateInsert(t *testing.T) {
	engine, dbMock := newMockEngine(t)
	now := time.Now()

	dbMock.ExpectBegin()
	dbMock.ExpectQuery(`FROM transactions WHERE id = \$1`).
		WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows(logColumns).
			AddRow("tx-1", "credit", int64(5000), "salary", "acc-1", "bal-1", nil, nil, now, now))
	dbMock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM transactions WHERE reversed_from_id = \$1\)`).
		WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	dbMock.ExpectQuery(`FROM balances WHERE id = \$1`).
		WithArgs("bal-1").
		WillReturnRows(sqlmock.NewRows(balanceColumns).AddRow("bal-1", "user-1", int64(10000), initialBalanceDescription, now, now))
	dbMock.ExpectExec(`INSERT INTO transactions`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	dbMock.ExpectRollback()

	_, err := engine.ReverseTransaction(context.Background(), ReverseInput{AccountID: "acc-1", TransactionID: "tx-1"})
	assertCode(t, err, ErrAlreadyReversed, "transactions.reverse.already")
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTransactionService_DeleteTransaction_ReversedRow(t *testing.T) {
	engine, dbMock := newMockEngine(t)
	now := time.Now()

	dbMock.ExpectBegin()
	dbMock.ExpectQuery(`FROM transactions WHERE id = \$1`).
		WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows(logColumns).
			AddRow("tx-1", "credit", int64(5000), "salary", "acc-1", "bal-1", nil, nil, now, now))
	dbMock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	dbMock.ExpectRollback()

	err := engine.DeleteTransaction(context.Background(), "tx-1")
	assertCode(t, err, ErrConflict, "transactions.delete.reversed")
	assert.NoError(t, dbMock.ExpectationsWereMet())
}
