package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bankledger/backend/internal/models"
	"github.com/google/uuid"
)

const accountColumns = `id, user_id, branch, account, created_at, updated_at`

type AccountService struct {
	db *sql.DB
}

func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{db: db}
}

type AccountInput struct {
	Branch  string `json:"branch" validate:"required,branch"`
	Account string `json:"account" validate:"required,account_number"`
}

// ResolveOwner returns the id of the user owning accountID, or ErrNotFound.
func (s *AccountService) ResolveOwner(ctx context.Context, accountID string) (string, error) {
	var ownerID string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM accounts WHERE id = $1`, accountID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve owner of account %s: %w", accountID, err)
	}
	return ownerID, nil
}

func (s *AccountService) Create(ctx context.Context, userID string, in AccountInput) (*models.Account, error) {
	now := time.Now().UTC()
	account := &models.Account{
		ID:        uuid.NewString(),
		UserID:    userID,
		Branch:    in.Branch,
		Account:   in.Account,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES ($1, $2, $3, $4, $5, $5)`,
		account.ID, account.UserID, account.Branch, account.Account, now)
	if err != nil {
		switch classifyStoreError(err) {
		case violationUnique:
			return nil, newError(ErrConflict, "account.create.exists").wrap(err)
		case violationForeignKey:
			return nil, newError(ErrNotFound, "account.create.user.notfound").wrap(err)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "account.show.notfound")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", id, err)
	}
	return account, nil
}

// List pages through the accounts owned by userID.
func (s *AccountService) List(ctx context.Context, userID string, page Page) ([]models.Account, PageMeta, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, PageMeta{}, fmt.Errorf("failed to count accounts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		userID, page.Limit, page.Offset)
	if err != nil {
		return nil, PageMeta{}, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, PageMeta{}, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, PageMeta{}, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, MakeMeta(total, page.Page, page.Limit), nil
}

func (s *AccountService) Update(ctx context.Context, id string, in AccountInput) (*models.Account, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET branch = $1, account = $2, updated_at = $3 WHERE id = $4`,
		in.Branch, in.Account, time.Now().UTC(), id)
	if err != nil {
		if classifyStoreError(err) == violationUnique {
			return nil, newError(ErrConflict, "account.update.exists").wrap(err)
		}
		return nil, fmt.Errorf("failed to update account %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	} else if n == 0 {
		return nil, newError(ErrNotFound, "account.update.notfound")
	}
	return s.Get(ctx, id)
}

func (s *AccountService) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	} else if n == 0 {
		return newError(ErrNotFound, "account.delete.notfound")
	}
	return nil
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.UserID, &a.Branch, &a.Account, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
