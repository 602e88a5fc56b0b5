package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bankledger/backend/internal/models"
	"github.com/google/uuid"
)

const initialBalanceDescription = "Initial balance"

var (
	errBalanceTooLow   = errors.New("balance too low")
	errBalanceNotFound = errors.New("balance not found")
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	queryInsertBalanceIfAbsent = `
		INSERT INTO balances (id, user_id, value_cents, description, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4, $4)
		ON CONFLICT (user_id) DO NOTHING`

	queryBalanceByOwner = `
		SELECT id, user_id, value_cents, description, created_at, updated_at
		FROM balances
		WHERE user_id = $1`

	queryBalanceByID = `
		SELECT id, user_id, value_cents, description, created_at, updated_at
		FROM balances
		WHERE id = $1`

	queryDebitBalance = `
		UPDATE balances
		SET value_cents = value_cents - $1, updated_at = $2
		WHERE id = $3 AND value_cents >= $1`

	queryCreditBalance = `
		UPDATE balances
		SET value_cents = value_cents + $1, updated_at = $2
		WHERE id = $3`

	queryInsertTransaction = `
		INSERT INTO transactions
		(id, type, value_cents, description, account_id, balance_id_source, balance_id_destination, reversed_from_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`

	transactionColumns = `id, type, value_cents, description, account_id, balance_id_source,
		balance_id_destination, reversed_from_id, created_at, updated_at`

	queryTransactionByID = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	queryReversalExists = `SELECT EXISTS(SELECT 1 FROM transactions WHERE reversed_from_id = $1)`

	queryUpdateTransactionDescription = `
		UPDATE transactions SET description = $1, updated_at = $2 WHERE id = $3`

	queryDeleteTransaction = `DELETE FROM transactions WHERE id = $1`
)

// LedgerService owns the balances and transactions tables: the balance store
// and the transaction log. Methods taking a *sql.Tx run inside the caller's
// atomic unit.
type LedgerService struct {
	db *sql.DB
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{db: db}
}

// balanceDelta is a relative change to one balance, in minor units.
type balanceDelta struct {
	balanceID string
	cents     int64
}

// GetOrCreateBalanceTx returns the owner's balance, inserting a zero balance
// first when none exists. Concurrent callers for the same owner converge on
// one row through the unique user_id constraint.
func (s *LedgerService) GetOrCreateBalanceTx(ctx context.Context, tx *sql.Tx, ownerID string) (*models.BalanceRecord, error) {
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, queryInsertBalanceIfAbsent, uuid.NewString(), ownerID, initialBalanceDescription, now); err != nil {
		return nil, fmt.Errorf("failed to create balance for %s: %w", ownerID, err)
	}

	balance, err := scanBalance(tx.QueryRowContext(ctx, queryBalanceByOwner, ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to load balance for %s: %w", ownerID, err)
	}
	return balance, nil
}

// BalanceByOwner reads the owner's balance without creating it.
func (s *LedgerService) BalanceByOwner(ctx context.Context, ownerID string) (*models.BalanceRecord, error) {
	balance, err := scanBalance(s.db.QueryRowContext(ctx, queryBalanceByOwner, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errBalanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load balance for %s: %w", ownerID, err)
	}
	return balance, nil
}

func (s *LedgerService) BalanceByIDTx(ctx context.Context, tx *sql.Tx, balanceID string) (*models.BalanceRecord, error) {
	balance, err := scanBalance(tx.QueryRowContext(ctx, queryBalanceByID, balanceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errBalanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load balance %s: %w", balanceID, err)
	}
	return balance, nil
}

// DebitBalanceTx atomically decrements a balance by cents. It never reads the
// balance first: the conditional update and the non-negative check constraint
// reject any decrement that would overdraw, reported as errBalanceTooLow.
func (s *LedgerService) DebitBalanceTx(ctx context.Context, tx *sql.Tx, balanceID string, cents int64) error {
	result, err := tx.ExecContext(ctx, queryDebitBalance, cents, time.Now().UTC(), balanceID)
	if err != nil {
		if classifyStoreError(err) == violationCheck {
			return errBalanceTooLow
		}
		return fmt.Errorf("failed to debit balance %s: %w", balanceID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errBalanceTooLow
	}
	return nil
}

// CreditBalanceTx atomically increments a balance by cents.
func (s *LedgerService) CreditBalanceTx(ctx context.Context, tx *sql.Tx, balanceID string, cents int64) error {
	result, err := tx.ExecContext(ctx, queryCreditBalance, cents, time.Now().UTC(), balanceID)
	if err != nil {
		return fmt.Errorf("failed to credit balance %s: %w", balanceID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("failed to credit balance %s: %w", balanceID, errBalanceNotFound)
	}
	return nil
}

// ApplyDeltasTx applies several relative balance changes in balance id order,
// so two transfers touching the same pair of balances lock them in the same order.
func (s *LedgerService) ApplyDeltasTx(ctx context.Context, tx *sql.Tx, deltas ...balanceDelta) error {
	ordered := make([]balanceDelta, len(deltas))
	copy(ordered, deltas)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].balanceID < ordered[j].balanceID
	})

	for _, d := range ordered {
		var err error
		switch {
		case d.cents < 0:
			err = s.DebitBalanceTx(ctx, tx, d.balanceID, -d.cents)
		case d.cents > 0:
			err = s.CreditBalanceTx(ctx, tx, d.balanceID, d.cents)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// InsertTransactionTx appends t to the transaction log. t.ID and timestamps
// are assigned here.
func (s *LedgerService) InsertTransactionTx(ctx context.Context, tx *sql.Tx, t *models.Transaction) error {
	cents, err := t.Value.Cents()
	if err != nil {
		return fmt.Errorf("invalid transaction value %s: %w", t.Value, err)
	}

	t.ID = uuid.NewString()
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	_, err = tx.ExecContext(ctx, queryInsertTransaction,
		t.ID, string(t.Type), cents, t.Description, t.AccountID,
		t.BalanceIDSource, nullString(t.BalanceIDDestination), nullString(t.ReversedFromID), now)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *LedgerService) TransactionByIDTx(ctx context.Context, tx *sql.Tx, id string) (*models.Transaction, error) {
	return s.transactionByID(ctx, tx, id)
}

func (s *LedgerService) TransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	return s.transactionByID(ctx, s.db, id)
}

func (s *LedgerService) transactionByID(ctx context.Context, q dbtx, id string) (*models.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx, queryTransactionByID, id))
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ReversalExistsTx reports whether a reversal of originalID was already posted.
func (s *LedgerService) ReversalExistsTx(ctx context.Context, tx *sql.Tx, originalID string) (bool, error) {
	var exists bool
	if err := tx.QueryRowContext(ctx, queryReversalExists, originalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check reversal of %s: %w", originalID, err)
	}
	return exists, nil
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	AccountID string
	Type      models.TransactionType
}

// ListTransactions returns one page of the log, newest first, and the total
// number of rows matching filter.
func (s *LedgerService) ListTransactions(ctx context.Context, filter TransactionFilter, page Page) ([]models.Transaction, int, error) {
	var conditions []string
	var args []any
	argIndex := 1

	if filter.AccountID != "" {
		conditions = append(conditions, fmt.Sprintf("account_id = $%d", argIndex))
		args = append(args, filter.AccountID)
		argIndex++
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, string(filter.Type))
		argIndex++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := "SELECT " + transactionColumns + " FROM transactions" + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, page.Limit, page.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, total, nil
}

// UpdateTransactionDescription is the only in-place edit the log allows.
func (s *LedgerService) UpdateTransactionDescription(ctx context.Context, id, description string) (*models.Transaction, error) {
	result, err := s.db.ExecContext(ctx, queryUpdateTransactionDescription, description, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	} else if n == 0 {
		return nil, sql.ErrNoRows
	}
	return s.TransactionByID(ctx, id)
}

func (s *LedgerService) DeleteTransactionTx(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := tx.ExecContext(ctx, queryDeleteTransaction, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	} else if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (*models.BalanceRecord, error) {
	var b models.BalanceRecord
	var cents int64
	if err := row.Scan(&b.ID, &b.OwnerID, &cents, &b.Description, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Value = models.FromCents(cents)
	return &b, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var txType string
	var cents int64
	var destination, reversedFrom sql.NullString
	err := row.Scan(&t.ID, &txType, &cents, &t.Description, &t.AccountID, &t.BalanceIDSource,
		&destination, &reversedFrom, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Type = models.TransactionType(txType)
	t.Value = models.FromCents(cents)
	if destination.Valid {
		t.BalanceIDDestination = &destination.String
	}
	if reversedFrom.Valid {
		t.ReversedFromID = &reversedFrom.String
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
