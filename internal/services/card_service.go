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

const cardColumns = `id, type, number, account_id, user_id, created_at, updated_at`

// CardService manages the payment cards linked to accounts. An account holds
// at most one physical card.
type CardService struct {
	db *sql.DB
}

func NewCardService(db *sql.DB) *CardService {
	return &CardService{db: db}
}

type CardInput struct {
	Type   models.CardType `json:"type" validate:"required,oneof=physical virtual"`
	Number string          `json:"number" validate:"required,min=13,max=19,digits"`
	CVV    string          `json:"cvv" validate:"required,len=3,digits"`
}

type CardUpdateInput struct {
	Type models.CardType `json:"type" validate:"required,oneof=physical virtual"`
}

func (s *CardService) Create(ctx context.Context, userID, accountID string, in CardInput) (*models.Card, error) {
	now := time.Now().UTC()
	card := &models.Card{
		ID:        uuid.NewString(),
		Type:      in.Type,
		Number:    models.MaskCardNumber(in.Number),
		AccountID: accountID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cards (id, type, number, cvv, account_id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		card.ID, string(card.Type), in.Number, in.CVV, accountID, userID, now)
	if err != nil {
		switch classifyStoreError(err) {
		case violationUnique:
			return nil, newError(ErrConflict, "card.create.physical.exists").wrap(err)
		case violationForeignKey:
			return nil, newError(ErrNotFound, "card.create.account.notfound").wrap(err)
		}
		return nil, fmt.Errorf("failed to create card: %w", err)
	}
	return card, nil
}

func (s *CardService) Get(ctx context.Context, id string) (*models.Card, error) {
	card, err := scanCard(s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "card.show.notfound")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load card %s: %w", id, err)
	}
	return card, nil
}

// ListByAccount pages through the cards of one account.
func (s *CardService) ListByAccount(ctx context.Context, accountID string, page Page) ([]models.Card, PageMeta, error) {
	return s.list(ctx, "account_id", accountID, page)
}

// ListByUser pages through every card owned by userID.
func (s *CardService) ListByUser(ctx context.Context, userID string, page Page) ([]models.Card, PageMeta, error) {
	return s.list(ctx, "user_id", userID, page)
}

func (s *CardService) list(ctx context.Context, column, value string, page Page) ([]models.Card, PageMeta, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards WHERE `+column+` = $1`, value).Scan(&total); err != nil {
		return nil, PageMeta{}, fmt.Errorf("failed to count cards: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE `+column+` = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		value, page.Limit, page.Offset)
	if err != nil {
		return nil, PageMeta{}, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := []models.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, PageMeta{}, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, PageMeta{}, fmt.Errorf("error iterating card rows: %w", err)
	}
	return cards, MakeMeta(total, page.Page, page.Limit), nil
}

func (s *CardService) Update(ctx context.Context, id string, in CardUpdateInput) (*models.Card, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE cards SET type = $1, updated_at = $2 WHERE id = $3`,
		string(in.Type), time.Now().UTC(), id)
	if err != nil {
		if classifyStoreError(err) == violationUnique {
			return nil, newError(ErrConflict, "card.update.physical.exists").wrap(err)
		}
		return nil, fmt.Errorf("failed to update card %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	} else if n == 0 {
		return nil, newError(ErrNotFound, "card.update.notfound")
	}
	return s.Get(ctx, id)
}

func (s *CardService) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	} else if n == 0 {
		return newError(ErrNotFound, "card.delete.notfound")
	}
	return nil
}

func scanCard(row rowScanner) (*models.Card, error) {
	var c models.Card
	var cardType, number string
	if err := row.Scan(&c.ID, &cardType, &number, &c.AccountID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Type = models.CardType(cardType)
	c.Number = models.MaskCardNumber(number)
	return &c, nil
}
