package billing

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/minho-cho/card-billing-backend/internal/domain/bill"
	"github.com/minho-cho/card-billing-backend/internal/domain/card"
	"github.com/minho-cho/card-billing-backend/internal/domain/values"
	"github.com/minho-cho/card-billing-backend/internal/testutil/fixtures"
)

type mockCardRepository struct {
	mock.Mock
}

func (m *mockCardRepository) ListBillable(ctx context.Context, afterID uuid.UUID, limit int) ([]*card.Card, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*card.Card), args.Error(1)
}

type mockBillRepository struct {
	mock.Mock
}

func (m *mockBillRepository) ListActiveByMonth(ctx context.Context, month values.ChargeMonth, afterID uuid.UUID, limit int) ([]*bill.Bill, error) {
	args := m.Called(ctx, month, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bill.Bill), args.Error(1)
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

type recordingMetrics struct {
	batches map[string]BatchResult
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{batches: make(map[string]BatchResult)}
}

func (m *recordingMetrics) RecordBatch(step string, result BatchResult) {
	m.batches[step] = result
}

func TestScheduler_CreateBillsManually(t *testing.T) {
	ctx := context.Background()
	month := values.MustNewChargeMonth("202408")

	t.Run("isolates per-card failures", func(t *testing.T) {
		cards := []*card.Card{
			fixtures.NewCardBuilder(t).Build(),
			fixtures.NewCardBuilder(t).Build(),
			fixtures.NewCardBuilder(t).Build(),
		}

		cardRepo := new(mockCardRepository)
		cardRepo.On("ListBillable", ctx, uuid.Nil, pageSize).Return(cards, nil)

		ldg := new(mockLedger)
		ldg.On("CreateIfAbsent", ctx, cards[0], month).Return(nil)
		ldg.On("CreateIfAbsent", ctx, cards[1], month).Return(fmt.Errorf("deadlock"))
		ldg.On("CreateIfAbsent", ctx, cards[2], month).Return(nil)

		metrics := newRecordingMetrics()
		s := NewSchedulerWithClock(cardRepo, new(mockBillRepository), ldg, metrics, realClock{}, zap.NewNop())

		result, err := s.CreateBillsManually(ctx, month)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Succeeded)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 3, result.Total())
		assert.Equal(t, result, metrics.batches["open"])
		ldg.AssertExpectations(t)
	})

	t.Run("listing failure aborts the run", func(t *testing.T) {
		cardRepo := new(mockCardRepository)
		cardRepo.On("ListBillable", ctx, uuid.Nil, pageSize).Return(nil, fmt.Errorf("connection refused"))

		s := NewSchedulerWithClock(cardRepo, new(mockBillRepository), new(mockLedger), nil, realClock{}, zap.NewNop())

		result, err := s.CreateBillsManually(ctx, month)
		require.Error(t, err)
		assert.Equal(t, 0, result.Total())
	})

	t.Run("rerun over existing bills succeeds", func(t *testing.T) {
		cards := []*card.Card{
			fixtures.NewCardBuilder(t).Build(),
			fixtures.NewCardBuilder(t).Build(),
		}

		cardRepo := new(mockCardRepository)
		cardRepo.On("ListBillable", ctx, uuid.Nil, pageSize).Return(cards, nil)

		// CreateIfAbsent treats already-existing bills as success, so a
		// repeated manual run reports every card as succeeded.
		ldg := new(mockLedger)
		ldg.On("CreateIfAbsent", ctx, mock.Anything, month).Return(nil)

		s := NewSchedulerWithClock(cardRepo, new(mockBillRepository), ldg, nil, realClock{}, zap.NewNop())

		result, err := s.CreateBillsManually(ctx, month)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Succeeded)
		assert.Equal(t, 0, result.Failed)
	})

	t.Run("empty card population", func(t *testing.T) {
		cardRepo := new(mockCardRepository)
		cardRepo.On("ListBillable", ctx, uuid.Nil, pageSize).Return([]*card.Card{}, nil)

		s := NewSchedulerWithClock(cardRepo, new(mockBillRepository), new(mockLedger), nil, realClock{}, zap.NewNop())

		result, err := s.CreateBillsManually(ctx, month)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Total())
	})
}

func TestScheduler_CloseBillsManually(t *testing.T) {
	ctx := context.Background()
	month := values.MustNewChargeMonth("202407")

	t.Run("closes every active bill of the month", func(t *testing.T) {
		bills := []*bill.Bill{
			fixtures.NewBillBuilder(t).WithChargeMonth(month).Build(),
			fixtures.NewBillBuilder(t).WithChargeMonth(month).Build(),
		}

		billRepo := new(mockBillRepository)
		billRepo.On("ListActiveByMonth", ctx, month, uuid.Nil, pageSize).Return(bills, nil)

		ldg := new(mockLedger)
		ldg.On("Close", ctx, bills[0]).Return(nil)
		ldg.On("Close", ctx, bills[1]).Return(nil)

		metrics := newRecordingMetrics()
		s := NewSchedulerWithClock(new(mockCardRepository), billRepo, ldg, metrics, realClock{}, zap.NewNop())

		result, err := s.CloseBillsManually(ctx, month)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Succeeded)
		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, result, metrics.batches["close"])
		ldg.AssertExpectations(t)
	})

	t.Run("skips past bills that fail to close", func(t *testing.T) {
		failing := fixtures.NewBillBuilder(t).WithChargeMonth(month).Build()
		bills := []*bill.Bill{
			fixtures.NewBillBuilder(t).WithChargeMonth(month).Build(),
			failing,
			fixtures.NewBillBuilder(t).WithChargeMonth(month).Build(),
		}

		billRepo := new(mockBillRepository)
		billRepo.On("ListActiveByMonth", ctx, month, uuid.Nil, pageSize).Return(bills, nil).Once()
		// The failing bill stays ACTIVE; the cursor moves past it so the
		// follow-up page does not retry it within the same run.
		billRepo.On("ListActiveByMonth", ctx, month, failing.ID, pageSize).Return([]*bill.Bill{}, nil).Once()

		ldg := new(mockLedger)
		ldg.On("Close", ctx, bills[0]).Return(nil)
		ldg.On("Close", ctx, failing).Return(fmt.Errorf("lock timeout"))
		ldg.On("Close", ctx, bills[2]).Return(nil)

		s := NewSchedulerWithClock(new(mockCardRepository), billRepo, ldg, nil, realClock{}, zap.NewNop())

		result, err := s.CloseBillsManually(ctx, month)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Succeeded)
		assert.Equal(t, 1, result.Failed)
		billRepo.AssertExpectations(t)
	})

	t.Run("no active bills", func(t *testing.T) {
		billRepo := new(mockBillRepository)
		billRepo.On("ListActiveByMonth", ctx, month, uuid.Nil, pageSize).Return([]*bill.Bill{}, nil)

		s := NewSchedulerWithClock(new(mockCardRepository), billRepo, new(mockLedger), nil, realClock{}, zap.NewNop())

		result, err := s.CloseBillsManually(ctx, month)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Total())
	})
}
