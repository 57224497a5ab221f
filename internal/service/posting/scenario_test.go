package posting

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/minho-cho/card-billing-backend/internal/domain/bill"
	"github.com/minho-cho/card-billing-backend/internal/domain/errors"
	"github.com/minho-cho/card-billing-backend/internal/domain/values"
	"github.com/minho-cho/card-billing-backend/internal/service/ledger"
	"github.com/minho-cho/card-billing-backend/internal/testutil/fixtures"
)

// memBillRepo is an in-memory ledger.BillRepository used to exercise the
// posting flow against the real ledger service.
type memBillRepo struct {
	bills map[uuid.UUID]*bill.Bill
	items map[uuid.UUID][]*bill.LineItem
}

func newMemBillRepo() *memBillRepo {
	return &memBillRepo{
		bills: make(map[uuid.UUID]*bill.Bill),
		items: make(map[uuid.UUID][]*bill.LineItem),
	}
}

func (r *memBillRepo) Create(_ context.Context, b *bill.Bill) error {
	cp := *b
	r.bills[b.ID] = &cp
	return nil
}

func (r *memBillRepo) CreateIfAbsent(_ context.Context, b *bill.Bill) (bool, error) {
	for _, existing := range r.bills {
		if existing.CardID == b.CardID && existing.ChargeMonth.Equal(b.ChargeMonth) &&
			existing.SettlementSeqNo == b.SettlementSeqNo {
			return false, nil
		}
	}
	cp := *b
	r.bills[b.ID] = &cp
	return true, nil
}

func (r *memBillRepo) FindActiveByCard(_ context.Context, cardID uuid.UUID) (*bill.Bill, error) {
	var found *bill.Bill
	for _, b := range r.bills {
		if b.CardID == cardID && b.Status == bill.StatusActive {
			if found == nil || b.ChargeMonth.String() > found.ChargeMonth.String() {
				found = b
			}
		}
	}
	if found == nil {
		return nil, errors.ErrBillNotFound
	}
	cp := *found
	return &cp, nil
}

func (r *memBillRepo) FindByCardAndMonth(_ context.Context, cardID uuid.UUID, month values.ChargeMonth) (*bill.Bill, error) {
	for _, b := range r.bills {
		if b.CardID == cardID && b.ChargeMonth.Equal(month) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, errors.ErrBillNotFound
}

func (r *memBillRepo) MaxSettlementSeqNo(_ context.Context, cardID uuid.UUID, month values.ChargeMonth) (string, error) {
	max := ""
	for _, b := range r.bills {
		if b.CardID == cardID && b.ChargeMonth.Equal(month) && b.SettlementSeqNo > max {
			max = b.SettlementSeqNo
		}
	}
	return max, nil
}

func (r *memBillRepo) AppendLineItem(_ context.Context, item *bill.LineItem) error {
	b, ok := r.bills[item.BillID]
	if !ok || b.Status != bill.StatusActive {
		return errors.ErrBillAlreadyClosed
	}
	r.items[item.BillID] = append(r.items[item.BillID], item)
	b.ChargeAmt = b.ChargeAmt.Add(item.PaidAmt)
	return nil
}

func (r *memBillRepo) SumLineItems(_ context.Context, billID uuid.UUID) (decimal.Decimal, error) {
	return bill.SumAmounts(r.items[billID]), nil
}

func (r *memBillRepo) SetTotal(_ context.Context, billID uuid.UUID, total decimal.Decimal) error {
	r.bills[billID].ChargeAmt = total
	return nil
}

func (r *memBillRepo) Close(_ context.Context, b *bill.Bill) (decimal.Decimal, error) {
	stored, ok := r.bills[b.ID]
	if !ok || stored.Status != bill.StatusActive {
		return decimal.Zero, errors.ErrBillAlreadyClosed
	}
	total := bill.SumAmounts(r.items[b.ID])
	stored.Status = bill.StatusClosed
	stored.ChargeAmt = total
	stored.ClosedAt = b.ClosedAt
	return total, nil
}

func (r *memBillRepo) activeBillsFor(cardID uuid.UUID) []*bill.Bill {
	var out []*bill.Bill
	for _, b := range r.bills {
		if b.CardID == cardID && b.Status == bill.StatusActive {
			out = append(out, b)
		}
	}
	return out
}

func TestPostingScenario_FirstPostOpensStatement(t *testing.T) {
	ctx := context.Background()
	processedAt := time.Date(2024, 7, 20, 10, 0, 0, 0, time.UTC)

	c := fixtures.NewCardBuilder(t).Build()
	cards := new(mockCardRepository)
	cards.On("GetByID", ctx, c.ID).Return(c, nil)

	repo := newMemBillRepo()
	ledgerSvc := ledger.NewService(repo, zap.NewNop())
	svc := NewServiceWithClock(cards, ledgerSvc, nil, fixedClock{at: processedAt}, zap.NewNop())

	txn := fixtures.NewTransactionBuilder(t).
		WithCardID(c.ID).
		WithMerchant("스타벅스역삼점").
		WithAmount(decimal.NewFromInt(4500)).
		Build()
	require.NoError(t, svc.Post(ctx, txn))

	active := repo.activeBillsFor(c.ID)
	require.Len(t, active, 1, "first post opens exactly one statement")
	b := active[0]
	assert.Equal(t, "202407", b.ChargeMonth.String())
	assert.True(t, b.ChargeAmt.Equal(decimal.NewFromInt(4500)))

	items := repo.items[b.ID]
	require.Len(t, items, 1)
	assert.Equal(t, "스타벅**", items[0].MerchantNameMasked)

	// A cancellation lands on the same statement and drives the total to zero.
	cancel := fixtures.NewTransactionBuilder(t).
		WithCardID(c.ID).
		WithMerchant("스타벅스역삼점").
		AsCancellation(decimal.NewFromInt(4500)).
		Build()
	require.NoError(t, svc.Post(ctx, cancel))

	active = repo.activeBillsFor(c.ID)
	require.Len(t, active, 1, "cancellation must not open a second statement")
	assert.True(t, active[0].ChargeAmt.IsZero())
	assert.Len(t, repo.items[active[0].ID], 2)

	// Total always equals the sum of the line items.
	sum, err := repo.SumLineItems(ctx, active[0].ID)
	require.NoError(t, err)
	assert.True(t, active[0].ChargeAmt.Equal(sum))
}

func TestPostingScenario_PostAfterSameMonthClose(t *testing.T) {
	ctx := context.Background()
	processedAt := time.Date(2024, 7, 20, 10, 0, 0, 0, time.UTC)

	c := fixtures.NewCardBuilder(t).Build()
	cards := new(mockCardRepository)
	cards.On("GetByID", ctx, c.ID).Return(c, nil)

	repo := newMemBillRepo()
	ledgerSvc := ledger.NewService(repo, zap.NewNop())
	svc := NewServiceWithClock(cards, ledgerSvc, nil, fixedClock{at: processedAt}, zap.NewNop())

	txn := fixtures.NewTransactionBuilder(t).WithCardID(c.ID).Build()
	require.NoError(t, svc.Post(ctx, txn))

	b := repo.activeBillsFor(c.ID)[0]
	require.NoError(t, ledgerSvc.Close(ctx, b))
	assert.Equal(t, bill.StatusClosed, repo.bills[b.ID].Status)

	// A mid-month close must not strand the card: the next post in the same
	// month opens a second statement under the next settlement sequence.
	later := fixtures.NewTransactionBuilder(t).
		WithCardID(c.ID).
		WithAmount(decimal.NewFromInt(7000)).
		Build()
	require.NoError(t, svc.Post(ctx, later))

	active := repo.activeBillsFor(c.ID)
	require.Len(t, active, 1)
	second := active[0]
	assert.NotEqual(t, b.ID, second.ID)
	assert.Equal(t, "202407", second.ChargeMonth.String())
	assert.Equal(t, "0002", second.SettlementSeqNo)
	assert.True(t, second.ChargeAmt.Equal(decimal.NewFromInt(7000)))
	assert.Equal(t, bill.StatusClosed, repo.bills[b.ID].Status, "closed statement untouched")

	// The month after, posting moves to a fresh statement for the new month.
	augustSvc := NewServiceWithClock(cards, ledgerSvc, nil,
		fixedClock{at: time.Date(2024, 8, 5, 9, 0, 0, 0, time.UTC)}, zap.NewNop())
	require.NoError(t, augustSvc.Post(ctx, fixtures.NewTransactionBuilder(t).WithCardID(c.ID).Build()))

	august, err := repo.FindByCardAndMonth(ctx, c.ID, values.MustNewChargeMonth("202408"))
	require.NoError(t, err)
	assert.Equal(t, "0001", august.SettlementSeqNo)
}
