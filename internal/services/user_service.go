package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bankledger/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userColumns = `id, name, document, created_at, updated_at`

var documentReplacer = strings.NewReplacer(".", "", "-", "")

// CreateUserRequest represents the user registration payload
// @Description User registration structure
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100" example:"Maria Silva"`
	Document string `json:"document" validate:"required,max=14" example:"123.456.789-09"`
	Password string `json:"password" validate:"required,min=6,max=72" example:"secret123"`
}

type UpdateUserRequest struct {
	Name     string `json:"name" validate:"omitempty,min=2,max=100"`
	Password string `json:"password" validate:"omitempty,min=6,max=72"`
}

type UserService struct {
	db         *sql.DB
	compliance ComplianceChecker
}

// NewUserService builds the user directory. compliance may be nil, in which
// case documents are only checked for shape.
func NewUserService(db *sql.DB, compliance ComplianceChecker) *UserService {
	return &UserService{db: db, compliance: compliance}
}

// NormalizeDocument strips CPF punctuation.
func NormalizeDocument(document string) string {
	return documentReplacer.Replace(strings.TrimSpace(document))
}

// Create registers a user together with an empty balance.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	document := NormalizeDocument(req.Document)
	if len(document) != 11 || !digitsRegex.MatchString(document) {
		return nil, newError(ErrValidation, "user.create.document.invalid")
	}

	if s.compliance != nil {
		if err := s.compliance.ValidateDocument(ctx, document); err != nil {
			return nil, err
		}
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Document:  document,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, name, document, password, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
		user.ID, user.Name, user.Document, hashed, now)
	if err != nil {
		if classifyStoreError(err) == violationUnique {
			return nil, newError(ErrConflict, "user.create.exists").wrap(err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := NewLedgerService(s.db).GetOrCreateBalanceTx(ctx, tx, user.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user: %w", err)
	}

	zap.L().Info("User created", zap.String("user_id", user.ID))
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "user.show.notfound")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, page Page) ([]models.User, PageMeta, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, PageMeta{}, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, PageMeta{}, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, PageMeta{}, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, PageMeta{}, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, MakeMeta(total, page.Page, page.Limit), nil
}

// Update changes the name and, when given, the password of a user.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrNotFound, "user.update.notfound")
		}
		return nil, err
	}

	name := current.Name
	if req.Name != "" {
		name = req.Name
	}
	now := time.Now().UTC()

	if req.Password != "" {
		hashed, err := hashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `UPDATE users SET name = $1, password = $2, updated_at = $3 WHERE id = $4`,
			name, hashed, now, id)
		if err != nil {
			return nil, fmt.Errorf("failed to update user %s: %w", id, err)
		}
	} else {
		_, err = s.db.ExecContext(ctx, `UPDATE users SET name = $1, updated_at = $2 WHERE id = $3`, name, now, id)
		if err != nil {
			return nil, fmt.Errorf("failed to update user %s: %w", id, err)
		}
	}

	return s.Get(ctx, id)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	} else if n == 0 {
		return newError(ErrNotFound, "user.delete.notfound")
	}
	return nil
}

// credentialsByDocument returns the user id and password hash for a document.
func (s *UserService) credentialsByDocument(ctx context.Context, document string) (string, string, error) {
	var id, hashed string
	err := s.db.QueryRowContext(ctx, `SELECT id, password FROM users WHERE document = $1`, NormalizeDocument(document)).
		Scan(&id, &hashed)
	if err != nil {
		return "", "", err
	}
	return id, hashed, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Document, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
