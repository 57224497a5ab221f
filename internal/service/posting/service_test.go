package posting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/minho-cho/card-billing-backend/internal/domain/bill"
	"github.com/minho-cho/card-billing-backend/internal/domain/card"
	"github.com/minho-cho/card-billing-backend/internal/domain/errors"
	"github.com/minho-cho/card-billing-backend/internal/domain/values"
	"github.com/minho-cho/card-billing-backend/internal/testutil/fixtures"
)

type mockCardRepository struct {
	mock.Mock
}

func (m *mockCardRepository) GetByID(ctx context.Context, id uuid.UUID) (*card.Card, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*card.Card), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) FindOrCreateActive(ctx context.Context, c *card.Card, month values.ChargeMonth) (*bill.Bill, error) {
	args := m.Called(ctx, c, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bill.Bill), args.Error(1)
}

func (m *mockLedger) CreateIfAbsent(ctx context.Context, c *card.Card, month values.ChargeMonth) error {
	args := m.Called(ctx, c, month)
	return args.Error(0)
}

func (m *mockLedger) AppendLineItem(ctx context.Context, b *bill.Bill, item *bill.LineItem) error {
	args := m.Called(ctx, b, item)
	return args.Error(0)
}

func (m *mockLedger) RecomputeTotal(ctx context.Context, b *bill.Bill) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockLedger) Close(ctx context.Context, b *bill.Bill) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

type mockMetrics struct {
	succeeded int
	failed    int
}

func (m *mockMetrics) RecordPosting(succeeded bool) {
	if succeeded {
		m.succeeded++
	} else {
		m.failed++
	}
}

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }

func TestService_Post(t *testing.T) {
	ctx := context.Background()
	processedAt := time.Date(2024, 7, 20, 10, 0, 0, 0, time.UTC)
	month := values.ChargeMonthOf(processedAt)

	t.Run("posts transaction onto the active bill", func(t *testing.T) {
		c := fixtures.NewCardBuilder(t).Build()
		activeBill := fixtures.NewBillBuilder(t).WithCardID(c.ID).WithChargeMonth(month).Build()
		txn := fixtures.NewTransactionBuilder(t).
			WithCardID(c.ID).
			WithMerchant("스타벅스역삼점").
			WithAmount(decimal.NewFromInt(4500)).
			Build()

		cards := new(mockCardRepository)
		cards.On("GetByID", ctx, c.ID).Return(c, nil)

		ldg := new(mockLedger)
		ldg.On("FindOrCreateActive", ctx, c, month).Return(activeBill, nil)
		ldg.On("AppendLineItem", ctx, activeBill, mock.AnythingOfType("*bill.LineItem")).
			Run(func(args mock.Arguments) {
				item := args.Get(2).(*bill.LineItem)
				assert.Equal(t, activeBill.ID, item.BillID)
				assert.Equal(t, "20240715", item.PaidDate)
				assert.Equal(t, "스타벅**", item.MerchantNameMasked)
				assert.True(t, item.PaidAmt.Equal(decimal.NewFromInt(4500)))
			}).
			Return(nil)

		svc := NewServiceWithClock(cards, ldg, nil, fixedClock{at: processedAt}, zap.NewNop())
		require.NoError(t, svc.Post(ctx, txn))
		ldg.AssertExpectations(t)
	})

	t.Run("backdated transaction lands on the current month", func(t *testing.T) {
		c := fixtures.NewCardBuilder(t).Build()
		activeBill := fixtures.NewBillBuilder(t).WithCardID(c.ID).WithChargeMonth(month).Build()
		txn := fixtures.NewTransactionBuilder(t).
			WithCardID(c.ID).
			WithOccurredAt(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)).
			Build()

		cards := new(mockCardRepository)
		cards.On("GetByID", ctx, c.ID).Return(c, nil)

		ldg := new(mockLedger)
		// The ledger is asked for the processing month, not May.
		ldg.On("FindOrCreateActive", ctx, c, month).Return(activeBill, nil)
		ldg.On("AppendLineItem", ctx, activeBill, mock.AnythingOfType("*bill.LineItem")).
			Run(func(args mock.Arguments) {
				item := args.Get(2).(*bill.LineItem)
				assert.Equal(t, "20240502", item.PaidDate)
			}).
			Return(nil)

		svc := NewServiceWithClock(cards, ldg, nil, fixedClock{at: processedAt}, zap.NewNop())
		require.NoError(t, svc.Post(ctx, txn))
		ldg.AssertExpectations(t)
	})

	t.Run("cancellation posts its negative amount", func(t *testing.T) {
		c := fixtures.NewCardBuilder(t).Build()
		activeBill := fixtures.NewBillBuilder(t).WithCardID(c.ID).WithChargeMonth(month).Build()
		txn := fixtures.NewTransactionBuilder(t).
			WithCardID(c.ID).
			AsCancellation(decimal.NewFromInt(4500)).
			Build()

		cards := new(mockCardRepository)
		cards.On("GetByID", ctx, c.ID).Return(c, nil)

		ldg := new(mockLedger)
		ldg.On("FindOrCreateActive", ctx, c, month).Return(activeBill, nil)
		ldg.On("AppendLineItem", ctx, activeBill, mock.AnythingOfType("*bill.LineItem")).
			Run(func(args mock.Arguments) {
				item := args.Get(2).(*bill.LineItem)
				assert.True(t, item.PaidAmt.Equal(decimal.NewFromInt(-4500)))
			}).
			Return(nil)

		svc := NewServiceWithClock(cards, ldg, nil, fixedClock{at: processedAt}, zap.NewNop())
		require.NoError(t, svc.Post(ctx, txn))
	})

	t.Run("unknown card", func(t *testing.T) {
		txn := fixtures.NewTransactionBuilder(t).Build()

		cards := new(mockCardRepository)
		cards.On("GetByID", ctx, txn.CardID).Return(nil, errors.ErrCardNotFound)

		svc := NewServiceWithClock(cards, new(mockLedger), nil, fixedClock{at: processedAt}, zap.NewNop())
		err := svc.Post(ctx, txn)
		assert.ErrorIs(t, err, errors.ErrCardNotFound)
	})

	t.Run("closed card", func(t *testing.T) {
		c := fixtures.NewCardBuilder(t).WithStatus(card.StatusClosed).Build()
		txn := fixtures.NewTransactionBuilder(t).WithCardID(c.ID).Build()

		cards := new(mockCardRepository)
		cards.On("GetByID", ctx, c.ID).Return(c, nil)

		ldg := new(mockLedger)
		svc := NewServiceWithClock(cards, ldg, nil, fixedClock{at: processedAt}, zap.NewNop())

		err := svc.Post(ctx, txn)
		assert.ErrorIs(t, err, errors.ErrCardClosed)
		ldg.AssertNotCalled(t, "FindOrCreateActive", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("lost card still accepts postings", func(t *testing.T) {
		c := fixtures.NewCardBuilder(t).WithStatus(card.StatusLost).Build()
		activeBill := fixtures.NewBillBuilder(t).WithCardID(c.ID).WithChargeMonth(month).Build()
		txn := fixtures.NewTransactionBuilder(t).WithCardID(c.ID).Build()

		cards := new(mockCardRepository)
		cards.On("GetByID", ctx, c.ID).Return(c, nil)

		ldg := new(mockLedger)
		ldg.On("FindOrCreateActive", ctx, c, month).Return(activeBill, nil)
		ldg.On("AppendLineItem", ctx, activeBill, mock.AnythingOfType("*bill.LineItem")).Return(nil)

		svc := NewServiceWithClock(cards, ldg, nil, fixedClock{at: processedAt}, zap.NewNop())
		require.NoError(t, svc.Post(ctx, txn))
	})
}

func TestService_PostSafely(t *testing.T) {
	ctx := context.Background()
	processedAt := time.Date(2024, 7, 20, 10, 0, 0, 0, time.UTC)
	month := values.ChargeMonthOf(processedAt)

	t.Run("swallows posting failures and counts them", func(t *testing.T) {
		txn := fixtures.NewTransactionBuilder(t).Build()

		cards := new(mockCardRepository)
		cards.On("GetByID", ctx, txn.CardID).Return(nil, fmt.Errorf("connection refused"))

		metrics := &mockMetrics{}
		svc := NewServiceWithClock(cards, new(mockLedger), metrics, fixedClock{at: processedAt}, zap.NewNop())

		svc.PostSafely(ctx, txn)

		assert.Equal(t, 1, metrics.failed)
		assert.Equal(t, 0, metrics.succeeded)
	})

	t.Run("counts successes", func(t *testing.T) {
		c := fixtures.NewCardBuilder(t).Build()
		activeBill := fixtures.NewBillBuilder(t).WithCardID(c.ID).WithChargeMonth(month).Build()
		txn := fixtures.NewTransactionBuilder(t).WithCardID(c.ID).Build()

		cards := new(mockCardRepository)
		cards.On("GetByID", ctx, c.ID).Return(c, nil)

		ldg := new(mockLedger)
		ldg.On("FindOrCreateActive", ctx, c, month).Return(activeBill, nil)
		ldg.On("AppendLineItem", ctx, activeBill, mock.AnythingOfType("*bill.LineItem")).Return(nil)

		metrics := &mockMetrics{}
		svc := NewServiceWithClock(cards, ldg, metrics, fixedClock{at: processedAt}, zap.NewNop())

		svc.PostSafely(ctx, txn)

		assert.Equal(t, 1, metrics.succeeded)
		assert.Equal(t, 0, metrics.failed)
	})
}
