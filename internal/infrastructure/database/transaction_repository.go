package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainerrors "github.com/minho-cho/card-billing-backend/internal/domain/errors"
	"github.com/minho-cho/card-billing-backend/internal/domain/transaction"
)

// TransactionRepository implements transaction persistence using PostgreSQL.
// Transactions are recorded by the ingestion flow before the ledger ever sees
// them; the ledger reads them, it never writes them.
type TransactionRepository struct {
	db *ConnectionPool
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(db *ConnectionPool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new transaction record
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	query := `
		INSERT INTO card_transactions (
			id, transaction_no, card_id, occurred_at, merchant_name,
			merchant_reg_no, amount, tran_type, category, memo, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		t.ID, t.TransactionNo, t.CardID, t.OccurredAt, t.MerchantName,
		t.MerchantRegNo, t.Amount, mapKindToEnum(t.Kind), mapCategoryToEnum(t.Category),
		t.Memo, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT id, transaction_no, card_id, occurred_at, merchant_name,
		       merchant_reg_no, amount, tran_type, category, memo, created_at
		FROM card_transactions
		WHERE id = $1
	`

	var t transaction.Transaction
	var kindStr, categoryStr string

	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&t.ID, &t.TransactionNo, &t.CardID, &t.OccurredAt, &t.MerchantName,
		&t.MerchantRegNo, &t.Amount, &kindStr, &categoryStr, &t.Memo, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.NewNotFoundError("transaction")
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	t.Kind = mapEnumToKind(kindStr)
	t.Category = mapEnumToCategory(categoryStr)
	return &t, nil
}

func mapKindToEnum(kind transaction.Kind) string {
	if kind == transaction.KindCancel {
		return "cancel"
	}
	return "approval"
}

func mapEnumToKind(enum string) transaction.Kind {
	if enum == "cancel" {
		return transaction.KindCancel
	}
	return transaction.KindApproval
}

func mapCategoryToEnum(category transaction.Category) string {
	return category.String()
}

func mapEnumToCategory(enum string) transaction.Category {
	switch enum {
	case "fuel":
		return transaction.CategoryFuel
	case "toll":
		return transaction.CategoryToll
	case "parking":
		return transaction.CategoryParking
	case "maintenance":
		return transaction.CategoryMaintenance
	case "shopping":
		return transaction.CategoryShopping
	case "food":
		return transaction.CategoryFood
	default:
		return transaction.CategoryOthers
	}
}
