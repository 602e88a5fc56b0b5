package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bankledger/backend/internal/audit"
	"github.com/bankledger/backend/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxDescriptionLength = 255

// AccountResolver maps an account id to the id of the user owning it.
// Implementations return ErrNotFound when the account does not exist.
type AccountResolver interface {
	ResolveOwner(ctx context.Context, accountID string) (string, error)
}

// TransactionService is the transaction engine. Every movement it posts
// inserts a log row and applies its balance deltas in one database transaction.
type TransactionService struct {
	db        *sql.DB
	ledger    *LedgerService
	accounts  AccountResolver
	audit     *audit.Logger
	txOptions *sql.TxOptions
}

func NewTransactionService(db *sql.DB, accounts AccountResolver, txOptions *sql.TxOptions) *TransactionService {
	return &TransactionService{
		db:        db,
		ledger:    NewLedgerService(db),
		accounts:  accounts,
		audit:     audit.NewLogger(),
		txOptions: txOptions,
	}
}

type CreateTransactionInput struct {
	AccountID    string
	ActingUserID string
	Value        decimal.Decimal
	Description  string
	Type         models.TransactionType
}

type TransferInput struct {
	AccountID         string
	SenderUserID      string
	ReceiverAccountID string
	Value             decimal.Decimal
	Description       string
	Type              models.TransactionType
}

type ReverseInput struct {
	AccountID     string
	TransactionID string
}

// CreateTransaction posts a credit (value > 0) or a debit (value < 0) against
// the acting user's balance.
func (s *TransactionService) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*models.Transaction, error) {
	const op = "transactions.create"

	cents, txType, err := s.normalizeValue(op, in.Value, in.Type)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.ResolveOwner(ctx, in.AccountID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrNotFound, op+".account.notfound")
		}
		return nil, fmt.Errorf("failed to resolve account %s: %w", in.AccountID, err)
	}

	var posted *models.Transaction
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		balance, err := s.ledger.GetOrCreateBalanceTx(ctx, tx, in.ActingUserID)
		if err != nil {
			return err
		}

		amount := models.FromCents(cents)
		delta := cents
		if txType == models.TransactionTypeDebit {
			if balance.Value.LessThan(amount.Decimal) {
				return insufficientBalance(op + ".nok")
			}
			delta = -cents
		}

		t := &models.Transaction{
			Type:            txType,
			Value:           amount,
			Description:     in.Description,
			AccountID:       in.AccountID,
			BalanceIDSource: balance.ID,
		}
		if err := s.ledger.InsertTransactionTx(ctx, tx, t); err != nil {
			return err
		}
		if err := s.ledger.ApplyDeltasTx(ctx, tx, balanceDelta{balanceID: balance.ID, cents: delta}); err != nil {
			return err
		}

		posted, err = s.ledger.TransactionByIDTx(ctx, tx, t.ID)
		return err
	})
	if err != nil {
		return nil, s.fail(op, in.AccountID, op+".nok", err)
	}

	s.audit.LogTransaction(posted)
	return posted, nil
}

// CreateTransfer moves |value| from the sender's balance to the balance of
// the user owning ReceiverAccountID.
func (s *TransactionService) CreateTransfer(ctx context.Context, in TransferInput) (*models.Transaction, error) {
	const op = "transactions.transfer"

	cents, txType, err := s.normalizeValue(op, in.Value, in.Type)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.ResolveOwner(ctx, in.AccountID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrNotFound, op+".account.notfound")
		}
		return nil, fmt.Errorf("failed to resolve account %s: %w", in.AccountID, err)
	}

	receiverID, err := s.accounts.ResolveOwner(ctx, in.ReceiverAccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrNotFound, op+".receiverAccount.notfound")
		}
		return nil, fmt.Errorf("failed to resolve receiver account %s: %w", in.ReceiverAccountID, err)
	}
	if receiverID == in.SenderUserID {
		return nil, newError(ErrValidation, op+".same")
	}

	var posted *models.Transaction
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		sender, receiver, err := s.balancePair(ctx, tx, in.SenderUserID, receiverID)
		if err != nil {
			return err
		}

		amount := models.FromCents(cents)
		if sender.Value.LessThan(amount.Decimal) {
			return insufficientBalance(op + ".nok")
		}

		t := &models.Transaction{
			Type:                 txType,
			Value:                amount,
			Description:          in.Description,
			AccountID:            in.AccountID,
			BalanceIDSource:      sender.ID,
			BalanceIDDestination: &receiver.ID,
		}
		if err := s.ledger.InsertTransactionTx(ctx, tx, t); err != nil {
			return err
		}
		err = s.ledger.ApplyDeltasTx(ctx, tx,
			balanceDelta{balanceID: sender.ID, cents: -cents},
			balanceDelta{balanceID: receiver.ID, cents: cents},
		)
		if err != nil {
			return err
		}

		posted, err = s.ledger.TransactionByIDTx(ctx, tx, t.ID)
		return err
	})
	if err != nil {
		return nil, s.fail(op, in.AccountID, op+".nok", err)
	}

	s.audit.LogTransfer(posted)
	return posted, nil
}

// ReverseTransaction posts the inverse of a transaction. A transaction can be
// reversed at most once.
func (s *TransactionService) ReverseTransaction(ctx context.Context, in ReverseInput) (*models.Transaction, error) {
	const op = "transactions.reverse"

	var posted *models.Transaction
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		original, err := s.ledger.TransactionByIDTx(ctx, tx, in.TransactionID)
		if errors.Is(err, sql.ErrNoRows) {
			return newError(ErrNotFound, op+".notfound")
		}
		if err != nil {
			return fmt.Errorf("failed to load transaction %s: %w", in.TransactionID, err)
		}
		if original.AccountID != in.AccountID {
			return newError(ErrNotFound, op+".notfound")
		}
		if original.ReversedFromID != nil {
			return newError(ErrValidation, op+".reversal")
		}

		reversed, err := s.ledger.ReversalExistsTx(ctx, tx, original.ID)
		if err != nil {
			return err
		}
		if reversed {
			return newError(ErrAlreadyReversed, op+".already")
		}

		cents, err := original.Value.Cents()
		if err != nil {
			return fmt.Errorf("invalid stored value on %s: %w", original.ID, err)
		}

		// The balance losing money must hold the full amount.
		var deltas []balanceDelta
		var payer string
		switch {
		case original.IsTransfer():
			payer = *original.BalanceIDDestination
			deltas = []balanceDelta{{balanceID: payer, cents: -cents}, {balanceID: original.BalanceIDSource, cents: cents}}
		case original.Type == models.TransactionTypeCredit:
			payer = original.BalanceIDSource
			deltas = []balanceDelta{{balanceID: payer, cents: -cents}}
		default:
			deltas = []balanceDelta{{balanceID: original.BalanceIDSource, cents: cents}}
		}

		if payer != "" {
			balance, err := s.ledger.BalanceByIDTx(ctx, tx, payer)
			if err != nil {
				return err
			}
			if balance.Value.LessThan(original.Value.Decimal) {
				return insufficientBalance(op + ".nobalance")
			}
		}

		reversal := &models.Transaction{
			Type:                 original.Type.Flip(),
			Value:                original.Value,
			Description:          reversalDescription(original),
			AccountID:            in.AccountID,
			BalanceIDSource:      original.BalanceIDSource,
			BalanceIDDestination: original.BalanceIDDestination,
			ReversedFromID:       &original.ID,
		}
		if err := s.ledger.InsertTransactionTx(ctx, tx, reversal); err != nil {
			if classifyStoreError(err) == violationUnique {
				return newError(ErrAlreadyReversed, op+".already").wrap(err)
			}
			return err
		}
		if err := s.ledger.ApplyDeltasTx(ctx, tx, deltas...); err != nil {
			return err
		}

		posted, err = s.ledger.TransactionByIDTx(ctx, tx, reversal.ID)
		return err
	})
	if err != nil {
		return nil, s.fail(op, in.AccountID, op+".nobalance", err)
	}

	s.audit.LogReversal(posted)
	return posted, nil
}

func reversalDescription(original *models.Transaction) string {
	description := []rune(fmt.Sprintf("Reversal of %s: %s", original.ID, original.Description))
	if len(description) > maxDescriptionLength {
		description = description[:maxDescriptionLength]
	}
	return string(description)
}

// GetBalance returns the current balance of the user owning accountID.
// It never creates a balance.
func (s *TransactionService) GetBalance(ctx context.Context, accountID string) (models.Amount, error) {
	const op = "transactions.balance"

	ownerID, err := s.accounts.ResolveOwner(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Amount{}, newError(ErrNotFound, op+".account.notfound")
		}
		return models.Amount{}, fmt.Errorf("failed to resolve account %s: %w", accountID, err)
	}

	balance, err := s.ledger.BalanceByOwner(ctx, ownerID)
	if errors.Is(err, errBalanceNotFound) {
		return models.Amount{}, newError(ErrNotFound, op+".notfound")
	}
	if err != nil {
		return models.Amount{}, err
	}
	return balance.Value, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	t, err := s.ledger.TransactionByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "transactions.show.notfound")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", id, err)
	}
	return t, nil
}

// ListTransactions pages through the log of one account, newest first.
func (s *TransactionService) ListTransactions(ctx context.Context, accountID string, txType models.TransactionType, page Page) ([]models.Transaction, PageMeta, error) {
	if txType != "" && !txType.Valid() {
		return nil, PageMeta{}, newError(ErrValidation, "transactions.index.type.invalid")
	}

	transactions, total, err := s.ledger.ListTransactions(ctx, TransactionFilter{AccountID: accountID, Type: txType}, page)
	if err != nil {
		return nil, PageMeta{}, err
	}
	return transactions, MakeMeta(total, page.Page, page.Limit), nil
}

// UpdateTransaction changes the description of a posted transaction.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id, description string) (*models.Transaction, error) {
	t, err := s.ledger.UpdateTransactionDescription(ctx, id, description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "transactions.update.notfound")
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTransaction removes a log row. Balances are left untouched, so a row
// that reverses another, or has been reversed, is kept.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	const op = "transactions.delete"

	return s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := s.ledger.TransactionByIDTx(ctx, tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return newError(ErrNotFound, op+".notfound")
		}
		if err != nil {
			return fmt.Errorf("failed to load transaction %s: %w", id, err)
		}
		if t.ReversedFromID != nil {
			return newError(ErrConflict, op+".reversed")
		}

		reversed, err := s.ledger.ReversalExistsTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if reversed {
			return newError(ErrConflict, op+".reversed")
		}

		err = s.ledger.DeleteTransactionTx(ctx, tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return newError(ErrNotFound, op+".notfound")
		}
		return err
	})
}

// normalizeValue converts value to minor units and derives the movement type
// from its sign. A requested type disagreeing with the sign is overridden.
func (s *TransactionService) normalizeValue(op string, value decimal.Decimal, requested models.TransactionType) (int64, models.TransactionType, error) {
	if value.IsZero() {
		return 0, "", newError(ErrValidation, op+".value.zero")
	}

	cents, err := models.ToCents(value.Abs())
	if err != nil {
		return 0, "", newError(ErrValidation, op+".value.invalid").wrap(err)
	}

	derived := models.TypeForValue(value)
	if requested != "" && requested != derived {
		zap.L().Warn("transaction type overridden by value sign",
			zap.String("operation", op),
			zap.String("requested", string(requested)),
			zap.String("derived", string(derived)),
			zap.String("value", value.String()),
		)
	}
	return cents, derived, nil
}

// balancePair get-or-creates the balances of two owners in owner id order.
func (s *TransactionService) balancePair(ctx context.Context, tx *sql.Tx, senderID, receiverID string) (*models.BalanceRecord, *models.BalanceRecord, error) {
	first, second := senderID, receiverID
	if second < first {
		first, second = second, first
	}

	a, err := s.ledger.GetOrCreateBalanceTx(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.ledger.GetOrCreateBalanceTx(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}

	if a.OwnerID == senderID {
		return a, b, nil
	}
	return b, a, nil
}

func (s *TransactionService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, s.txOptions)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// fail turns a failed atomic unit into a coded service error and records it.
func (s *TransactionService) fail(op, accountID, nokCode string, err error) error {
	var svcErr *Error
	switch {
	case errors.As(err, &svcErr):
	case errors.Is(err, errBalanceTooLow):
		svcErr = insufficientBalance(nokCode).wrap(err)
	default:
		switch classifyStoreError(err) {
		case violationCheck:
			svcErr = newError(ErrConstraintViolation, nokCode).wrap(err)
			svcErr.Detail = insufficientBalance(nokCode).Detail
		case violationContention:
			svcErr = newError(ErrConflict, op+".conflict").wrap(err)
		}
	}

	s.audit.LogError(op, accountID, err)
	if svcErr != nil {
		return svcErr
	}
	zap.L().Error("ledger operation failed", zap.String("operation", op), zap.String("account_id", accountID), zap.Error(err))
	return err
}
