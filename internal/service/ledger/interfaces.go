package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minho-cho/card-billing-backend/internal/domain/bill"
	"github.com/minho-cho/card-billing-backend/internal/domain/card"
	"github.com/minho-cho/card-billing-backend/internal/domain/values"
)

// Service is the single authority for bill existence and totals
type Service interface {
	// FindOrCreateActive returns the card's ACTIVE bill for the charge month,
	// opening one if necessary. An ACTIVE bill from a different month is left
	// untouched and a fresh bill is opened.
	FindOrCreateActive(ctx context.Context, c *card.Card, month values.ChargeMonth) (*bill.Bill, error)

	// CreateIfAbsent opens a bill for the card and month unless one already
	// exists. Idempotent: the already-exists case is a successful no-op.
	CreateIfAbsent(ctx context.Context, c *card.Card, month values.ChargeMonth) error

	// AppendLineItem persists the item and folds its amount into the bill's
	// running total in a single unit of work.
	AppendLineItem(ctx context.Context, b *bill.Bill, item *bill.LineItem) error

	// RecomputeTotal re-derives the total strictly from the bill's line items
	RecomputeTotal(ctx context.Context, b *bill.Bill) error

	// Close recomputes the total and freezes the bill. Closing an
	// already-closed bill is a no-op.
	Close(ctx context.Context, b *bill.Bill) error
}

// BillRepository persists bills and their line items
type BillRepository interface {
	Create(ctx context.Context, b *bill.Bill) error

	// CreateIfAbsent inserts the bill unless one exists for the same card,
	// charge month and settlement sequence. Returns false when it existed.
	CreateIfAbsent(ctx context.Context, b *bill.Bill) (bool, error)

	// FindActiveByCard returns the card's ACTIVE bill regardless of month,
	// or a not-found error when there is none
	FindActiveByCard(ctx context.Context, cardID uuid.UUID) (*bill.Bill, error)

	FindByCardAndMonth(ctx context.Context, cardID uuid.UUID, month values.ChargeMonth) (*bill.Bill, error)

	// MaxSettlementSeqNo returns the highest settlement sequence already
	// issued for the card and month, or "" when no bill exists yet
	MaxSettlementSeqNo(ctx context.Context, cardID uuid.UUID, month values.ChargeMonth) (string, error)

	// AppendLineItem inserts the line item and increments the owning bill's
	// running total within one storage transaction
	AppendLineItem(ctx context.Context, item *bill.LineItem) error

	// SumLineItems returns the sum of the bill's line item amounts
	SumLineItems(ctx context.Context, billID uuid.UUID) (decimal.Decimal, error)

	// SetTotal overwrites the bill's running total
	SetTotal(ctx context.Context, billID uuid.UUID, total decimal.Decimal) error

	// Close freezes the bill in one storage transaction: the guarded status
	// flip and the line-item sum it persists are serialized against
	// concurrent appends. Returns the frozen total, or ErrBillAlreadyClosed
	// when the bill was no longer ACTIVE.
	Close(ctx context.Context, b *bill.Bill) (decimal.Decimal, error)
}
