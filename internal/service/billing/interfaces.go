package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/minho-cho/card-billing-backend/internal/domain/bill"
	"github.com/minho-cho/card-billing-backend/internal/domain/card"
	"github.com/minho-cho/card-billing-backend/internal/domain/values"
)

// BatchResult aggregates the outcome of a bulk open or close run
type BatchResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Total returns the number of entities the batch attempted
func (r BatchResult) Total() int {
	return r.Succeeded + r.Failed
}

// Scheduler orchestrates the monthly bill lifecycle over the card population
type Scheduler interface {
	// Start registers the monthly open/close jobs and begins ticking
	Start() error

	// Stop halts scheduling; in-flight runs complete
	Stop()

	// CreateBillsManually opens bills for every billable card for the target
	// month. Per-card failures are isolated and counted.
	CreateBillsManually(ctx context.Context, targetMonth values.ChargeMonth) (BatchResult, error)

	// CloseBillsManually closes every still-ACTIVE bill of the target month.
	// Per-bill failures are isolated and counted.
	CloseBillsManually(ctx context.Context, targetMonth values.ChargeMonth) (BatchResult, error)
}

// CardRepository pages through the billable card population: cards that are
// not closed and belong to an active user
type CardRepository interface {
	ListBillable(ctx context.Context, afterID uuid.UUID, limit int) ([]*card.Card, error)
}

// BillRepository pages through bills still ACTIVE for a charge month
type BillRepository interface {
	ListActiveByMonth(ctx context.Context, month values.ChargeMonth, afterID uuid.UUID, limit int) ([]*bill.Bill, error)
}

// MetricsCollector records batch outcomes
type MetricsCollector interface {
	RecordBatch(step string, result BatchResult)
}

// Clock supplies the current time for deriving the open/close months
type Clock interface {
	Now() time.Time
}
