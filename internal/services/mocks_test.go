package services

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/bankledger/backend/internal/database"
	"github.com/bankledger/backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAccountResolver struct {
	mock.Mock
}

func (m *MockAccountResolver) ResolveOwner(ctx context.Context, accountID string) (string, error) {
	args := m.Called(ctx, accountID)
	return args.String(0), args.Error(1)
}

type MockComplianceChecker struct {
	mock.Mock
}

func (m *MockComplianceChecker) ValidateDocument(ctx context.Context, document string) error {
	args := m.Called(ctx, document)
	return args.Error(0)
}

// openTestDB returns a migrated in-memory SQLite database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), &database.DBConfig{
		Driver:      database.DriverSQLite,
		DSN:         "file::memory:?_foreign_keys=on",
		PingTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

type ledgerFixture struct {
	db       *sql.DB
	engine   *TransactionService
	accounts *AccountService
	seq      int
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	db := openTestDB(t)
	accounts := NewAccountService(db)
	return &ledgerFixture{
		db:       db,
		engine:   NewTransactionService(db, accounts, database.TxOptions(database.DriverSQLite)),
		accounts: accounts,
	}
}

// holder inserts a user without a balance and opens one account for it.
func (f *ledgerFixture) holder(t *testing.T, name string) (userID, accountID string) {
	t.Helper()
	f.seq++

	userID = uuid.NewString()
	now := time.Now().UTC()
	_, err := f.db.Exec(`INSERT INTO users (id, name, document, password, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
		userID, name, fmt.Sprintf("%011d", f.seq), "unused", now)
	require.NoError(t, err)

	account, err := f.accounts.Create(context.Background(), userID, AccountInput{
		Branch:  "001",
		Account: fmt.Sprintf("%07d-%d", f.seq, f.seq%10),
	})
	require.NoError(t, err)
	return userID, account.ID
}

func (f *ledgerFixture) post(t *testing.T, userID, accountID, value string) *models.Transaction {
	t.Helper()
	tx, err := f.engine.CreateTransaction(context.Background(), CreateTransactionInput{
		AccountID:    accountID,
		ActingUserID: userID,
		Value:        decimal.RequireFromString(value),
		Description:  "seed " + value,
	})
	require.NoError(t, err)
	return tx
}

func (f *ledgerFixture) balance(t *testing.T, accountID string) string {
	t.Helper()
	amount, err := f.engine.GetBalance(context.Background(), accountID)
	require.NoError(t, err)
	return amount.String()
}

func (f *ledgerFixture) countTransactions(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&n))
	return n
}
