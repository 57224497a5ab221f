package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/minho-cho/card-billing-backend/internal/domain/card"
	domainerrors "github.com/minho-cho/card-billing-backend/internal/domain/errors"
)

// CardRepository implements card persistence using PostgreSQL
type CardRepository struct {
	db *ConnectionPool
}

// NewCardRepository creates a new PostgreSQL card repository
func NewCardRepository(db *ConnectionPool) *CardRepository {
	return &CardRepository{db: db}
}

// Create inserts a new card
func (r *CardRepository) Create(ctx context.Context, c *card.Card) error {
	query := `
		INSERT INTO cards (
			id, card_no, user_id, product_type, card_status,
			issue_date, expire_date, card_alias, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		c.ID, c.CardNo, c.UserID, mapProductToEnum(c.Product), mapCardStatusToEnum(c.Status),
		c.IssueDate, c.ExpireDate, c.Alias, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// GetByID retrieves a card by its ID
func (r *CardRepository) GetByID(ctx context.Context, id uuid.UUID) (*card.Card, error) {
	query := selectCard + ` WHERE id = $1`

	c, err := scanCard(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return c, nil
}

// GetByCardNo retrieves a card by its card number
func (r *CardRepository) GetByCardNo(ctx context.Context, cardNo string) (*card.Card, error) {
	query := selectCard + ` WHERE card_no = $1`

	c, err := scanCard(r.db.Pool().QueryRow(ctx, query, cardNo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return c, nil
}

// Update persists card status and alias changes
func (r *CardRepository) Update(ctx context.Context, c *card.Card) error {
	query := `
		UPDATE cards
		SET card_status = $2, card_alias = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		c.ID, mapCardStatusToEnum(c.Status), c.Alias, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.ErrCardNotFound
	}
	return nil
}

// ListBillable pages through cards eligible for a monthly bill: not closed and
// owned by an active user. Keyset-paginated by card ID.
func (r *CardRepository) ListBillable(ctx context.Context, afterID uuid.UUID, limit int) ([]*card.Card, error) {
	query := `
		SELECT c.id, c.card_no, c.user_id, c.product_type, c.card_status,
		       c.issue_date, c.expire_date, c.card_alias, c.created_at, c.updated_at
		FROM cards c
		JOIN card_users u ON u.id = c.user_id
		WHERE c.card_status != 'closed' AND u.status = 'active' AND c.id > $1
		ORDER BY c.id
		LIMIT $2
	`

	rows, err := r.db.Pool().Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list billable cards: %w", err)
	}
	defer rows.Close()

	var cards []*card.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

const selectCard = `
	SELECT id, card_no, user_id, product_type, card_status,
	       issue_date, expire_date, card_alias, created_at, updated_at
	FROM cards
`

func scanCard(row rowScanner) (*card.Card, error) {
	var c card.Card
	var productStr, statusStr string

	err := row.Scan(
		&c.ID, &c.CardNo, &c.UserID, &productStr, &statusStr,
		&c.IssueDate, &c.ExpireDate, &c.Alias, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Product = mapEnumToProduct(productStr)
	c.Status = mapEnumToCardStatus(statusStr)
	return &c, nil
}

func mapCardStatusToEnum(status card.Status) string {
	switch status {
	case card.StatusNormal:
		return "normal"
	case card.StatusLost:
		return "lost"
	case card.StatusStopped:
		return "stopped"
	case card.StatusFlagged:
		return "flagged"
	case card.StatusClosed:
		return "closed"
	default:
		return "normal"
	}
}

func mapEnumToCardStatus(enum string) card.Status {
	switch enum {
	case "normal":
		return card.StatusNormal
	case "lost":
		return card.StatusLost
	case "stopped":
		return card.StatusStopped
	case "flagged":
		return card.StatusFlagged
	case "closed":
		return card.StatusClosed
	default:
		return card.StatusNormal
	}
}

func mapProductToEnum(product card.ProductType) string {
	switch product {
	case card.ProductCredit:
		return "credit"
	case card.ProductDebit:
		return "debit"
	case card.ProductPrepaid:
		return "prepaid"
	default:
		return "credit"
	}
}

func mapEnumToProduct(enum string) card.ProductType {
	switch enum {
	case "credit":
		return card.ProductCredit
	case "debit":
		return card.ProductDebit
	case "prepaid":
		return card.ProductPrepaid
	default:
		return card.ProductCredit
	}
}
