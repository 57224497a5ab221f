package posting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/minho-cho/card-billing-backend/internal/domain/card"
	"github.com/minho-cho/card-billing-backend/internal/domain/transaction"
)

// Service converts authorized transactions into line items on the card's
// currently active bill
type Service interface {
	// Post lands the transaction on the active bill of its processing month.
	// Errors propagate to the caller.
	Post(ctx context.Context, txn *transaction.Transaction) error

	// PostSafely posts the transaction as an independent unit of work:
	// failures are logged and counted, never surfaced. The transaction record
	// itself stays valid regardless of the posting outcome.
	PostSafely(ctx context.Context, txn *transaction.Transaction)
}

// CardRepository resolves the card a transaction references
type CardRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*card.Card, error)
}

// MetricsCollector records posting outcomes
type MetricsCollector interface {
	RecordPosting(succeeded bool)
}

// Clock supplies the processing time that determines the charge month
type Clock interface {
	Now() time.Time
}
