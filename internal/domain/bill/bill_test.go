package bill_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minho-cho/card-billing-backend/internal/domain/bill"
	"github.com/minho-cho/card-billing-backend/internal/domain/card"
	"github.com/minho-cho/card-billing-backend/internal/domain/values"
	"github.com/minho-cho/card-billing-backend/internal/testutil/fixtures"
)

func TestNewBill(t *testing.T) {
	month := values.MustNewChargeMonth("202406")

	t.Run("opens active bill with defaults", func(t *testing.T) {
		c := fixtures.NewCardBuilder(t).WithProduct(card.ProductCredit).Build()

		b, err := bill.NewBill(c, month)
		require.NoError(t, err)

		assert.Equal(t, c.ID, b.CardID)
		assert.True(t, month.Equal(b.ChargeMonth))
		assert.Equal(t, bill.DefaultSettlementSeqNo, b.SettlementSeqNo)
		assert.Equal(t, bill.DefaultSettlementDay, b.SettlementDay)
		assert.Equal(t, "20240725", b.SettlementDate)
		assert.Equal(t, bill.CreditCheckTypeCredit, b.CreditCheckType)
		assert.Equal(t, bill.StatusActive, b.Status)
		assert.True(t, b.ChargeAmt.IsZero())
		assert.Nil(t, b.ClosedAt)
	})

	t.Run("check card products classify as check", func(t *testing.T) {
		for _, product := range []card.ProductType{card.ProductDebit, card.ProductPrepaid} {
			c := fixtures.NewCardBuilder(t).WithProduct(product).Build()
			b, err := bill.NewBill(c, month)
			require.NoError(t, err)
			assert.Equal(t, bill.CreditCheckTypeCheck, b.CreditCheckType)
		}
	})

	t.Run("rejects nil card", func(t *testing.T) {
		_, err := bill.NewBill(nil, month)
		assert.Error(t, err)
	})

	t.Run("rejects empty month", func(t *testing.T) {
		c := fixtures.NewCardBuilder(t).Build()
		_, err := bill.NewBill(c, values.ChargeMonth{})
		assert.Error(t, err)
	})
}

func TestBill_AddAmount(t *testing.T) {
	b := fixtures.NewBillBuilder(t).Build()

	b.AddAmount(decimal.NewFromInt(4500))
	b.AddAmount(decimal.NewFromInt(12000))
	assert.True(t, b.ChargeAmt.Equal(decimal.NewFromInt(16500)))

	// Cancellations arrive as negative amounts.
	b.AddAmount(decimal.NewFromInt(-4500))
	assert.True(t, b.ChargeAmt.Equal(decimal.NewFromInt(12000)))
}

func TestBill_Close(t *testing.T) {
	t.Run("freezes an active bill", func(t *testing.T) {
		b := fixtures.NewBillBuilder(t).WithChargeAmt(decimal.NewFromInt(30000)).Build()

		b.Close()

		assert.Equal(t, bill.StatusClosed, b.Status)
		assert.False(t, b.IsActive())
		require.NotNil(t, b.ClosedAt)
	})

	t.Run("closing twice is a no-op", func(t *testing.T) {
		b := fixtures.NewBillBuilder(t).Build()
		b.Close()
		firstClosedAt := *b.ClosedAt

		time.Sleep(time.Millisecond)
		b.Close()

		assert.Equal(t, firstClosedAt, *b.ClosedAt)
		assert.Equal(t, bill.StatusClosed, b.Status)
	})
}

func TestBill_MarkPaid(t *testing.T) {
	b := fixtures.NewBillBuilder(t).Build()

	require.Error(t, b.MarkPaid(), "active bills cannot be paid")

	b.Close()
	require.NoError(t, b.MarkPaid())
	assert.Equal(t, bill.StatusPaid, b.Status)
}

func TestBill_MarkOverdue(t *testing.T) {
	b := fixtures.NewBillBuilder(t).Build()

	require.Error(t, b.MarkOverdue(), "active bills cannot become overdue")

	b.Close()
	require.NoError(t, b.MarkOverdue())
	assert.Equal(t, bill.StatusOverdue, b.Status)

	require.Error(t, b.MarkOverdue(), "overdue bills stay overdue")
}

func TestNewLineItem(t *testing.T) {
	b := fixtures.NewBillBuilder(t).Build()

	t.Run("defaults to zero fee lump sum", func(t *testing.T) {
		li, err := bill.NewLineItem(b.ID, b.CardID, "20240615", "123000", decimal.NewFromInt(4500), "Sta**")
		require.NoError(t, err)

		assert.Equal(t, b.ID, li.BillID)
		assert.True(t, li.CreditFeeAmt.IsZero())
		assert.Equal(t, bill.ProductTypeLumpSum, li.ProductType)
	})

	t.Run("rejects malformed date and time", func(t *testing.T) {
		_, err := bill.NewLineItem(b.ID, b.CardID, "2024-06-15", "123000", decimal.NewFromInt(100), "Sta**")
		assert.Error(t, err)

		_, err = bill.NewLineItem(b.ID, b.CardID, "20240615", "12:30", decimal.NewFromInt(100), "Sta**")
		assert.Error(t, err)
	})
}

func TestSumAmounts(t *testing.T) {
	b := fixtures.NewBillBuilder(t).Build()

	items := []*bill.LineItem{
		fixtures.NewLineItemBuilder(t).WithBillID(b.ID).WithPaidAmt(decimal.NewFromInt(4500)).Build(),
		fixtures.NewLineItemBuilder(t).WithBillID(b.ID).WithPaidAmt(decimal.NewFromInt(12000)).Build(),
		fixtures.NewLineItemBuilder(t).WithBillID(b.ID).WithPaidAmt(decimal.NewFromInt(-4500)).Build(),
	}

	assert.True(t, bill.SumAmounts(items).Equal(decimal.NewFromInt(12000)))
	assert.True(t, bill.SumAmounts(nil).IsZero())
}

func TestNextSeqNo(t *testing.T) {
	tests := []struct {
		last string
		want string
	}{
		{"0001", "0002"},
		{"0002", "0003"},
		{"0009", "0010"},
		{"0099", "0100"},
		{"", "0001"},
		{"abcd", "0001"},
		{"0000", "0001"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, bill.NextSeqNo(tt.last), "after %q", tt.last)
	}
}
