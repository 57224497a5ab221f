package fixtures

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/minho-cho/card-billing-backend/internal/domain/transaction"
)

// TransactionBuilder builds test Transaction entities
type TransactionBuilder struct {
	t          *testing.T
	cardID     uuid.UUID
	occurredAt time.Time
	merchant   string
	amount     decimal.Decimal
	kind       transaction.Kind
	category   transaction.Category
}

// NewTransactionBuilder creates a new TransactionBuilder with defaults
func NewTransactionBuilder(t *testing.T) *TransactionBuilder {
	t.Helper()
	cardID, err := uuid.NewRandom()
	require.NoError(t, err)

	return &TransactionBuilder{
		t:          t,
		cardID:     cardID,
		occurredAt: time.Date(2024, 7, 15, 12, 30, 0, 0, time.UTC),
		merchant:   "Starbucks Yeoksam",
		amount:     decimal.NewFromInt(4500),
		kind:       transaction.KindApproval,
		category:   transaction.CategoryFood,
	}
}

// WithCardID sets the card the transaction belongs to
func (b *TransactionBuilder) WithCardID(cardID uuid.UUID) *TransactionBuilder {
	b.cardID = cardID
	return b
}

// WithOccurredAt sets the transaction time
func (b *TransactionBuilder) WithOccurredAt(at time.Time) *TransactionBuilder {
	b.occurredAt = at
	return b
}

// WithMerchant sets the merchant name
func (b *TransactionBuilder) WithMerchant(name string) *TransactionBuilder {
	b.merchant = name
	return b
}

// WithAmount sets the amount
func (b *TransactionBuilder) WithAmount(amount decimal.Decimal) *TransactionBuilder {
	b.amount = amount
	return b
}

// AsCancellation flips the transaction into a cancellation of the given amount
func (b *TransactionBuilder) AsCancellation(amount decimal.Decimal) *TransactionBuilder {
	b.kind = transaction.KindCancel
	b.amount = amount.Neg()
	return b
}

// Build creates the Transaction entity
func (b *TransactionBuilder) Build() *transaction.Transaction {
	txn, err := transaction.New(
		"TXN"+uuid.New().String()[:8],
		b.cardID,
		b.occurredAt,
		b.merchant,
		b.amount,
		b.kind,
		b.category,
	)
	require.NoError(b.t, err)
	return txn
}
