package fixtures

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/minho-cho/card-billing-backend/internal/domain/bill"
	"github.com/minho-cho/card-billing-backend/internal/domain/values"
)

// BillBuilder builds test Bill entities
type BillBuilder struct {
	t           *testing.T
	id          uuid.UUID
	cardID      uuid.UUID
	chargeMonth values.ChargeMonth
	chargeAmt   decimal.Decimal
	status      bill.Status
}

// NewBillBuilder creates a new BillBuilder with defaults
func NewBillBuilder(t *testing.T) *BillBuilder {
	t.Helper()
	id, err := uuid.NewRandom()
	require.NoError(t, err)
	cardID, err := uuid.NewRandom()
	require.NoError(t, err)

	return &BillBuilder{
		t:           t,
		id:          id,
		cardID:      cardID,
		chargeMonth: values.MustNewChargeMonth("202407"),
		chargeAmt:   decimal.Zero,
		status:      bill.StatusActive,
	}
}

// WithID sets the bill ID
func (b *BillBuilder) WithID(id uuid.UUID) *BillBuilder {
	b.id = id
	return b
}

// WithCardID sets the owning card
func (b *BillBuilder) WithCardID(cardID uuid.UUID) *BillBuilder {
	b.cardID = cardID
	return b
}

// WithChargeMonth sets the charge month
func (b *BillBuilder) WithChargeMonth(month values.ChargeMonth) *BillBuilder {
	b.chargeMonth = month
	return b
}

// WithChargeAmt sets the running total
func (b *BillBuilder) WithChargeAmt(amt decimal.Decimal) *BillBuilder {
	b.chargeAmt = amt
	return b
}

// WithStatus sets the bill status
func (b *BillBuilder) WithStatus(status bill.Status) *BillBuilder {
	b.status = status
	return b
}

// Build creates the Bill entity
func (b *BillBuilder) Build() *bill.Bill {
	now := time.Now().UTC()
	settlementDate, err := bill.ComputeSettlementDate(b.chargeMonth.String(), bill.DefaultSettlementDay)
	require.NoError(b.t, err)

	out := &bill.Bill{
		ID:              b.id,
		CardID:          b.cardID,
		ChargeMonth:     b.chargeMonth,
		SettlementSeqNo: bill.DefaultSettlementSeqNo,
		ChargeAmt:       b.chargeAmt,
		SettlementDay:   bill.DefaultSettlementDay,
		SettlementDate:  settlementDate,
		CreditCheckType: bill.CreditCheckTypeCredit,
		Status:          b.status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if b.status != bill.StatusActive {
		closedAt := now
		out.ClosedAt = &closedAt
	}
	return out
}

// LineItemBuilder builds test LineItem entities
type LineItemBuilder struct {
	t        *testing.T
	billID   uuid.UUID
	cardID   uuid.UUID
	paidDate string
	paidTime string
	paidAmt  decimal.Decimal
	merchant string
}

// NewLineItemBuilder creates a new LineItemBuilder with defaults
func NewLineItemBuilder(t *testing.T) *LineItemBuilder {
	t.Helper()
	billID, err := uuid.NewRandom()
	require.NoError(t, err)
	cardID, err := uuid.NewRandom()
	require.NoError(t, err)

	return &LineItemBuilder{
		t:        t,
		billID:   billID,
		cardID:   cardID,
		paidDate: "20240715",
		paidTime: "123000",
		paidAmt:  decimal.NewFromInt(4500),
		merchant: "Sta**",
	}
}

// WithBillID sets the owning bill
func (b *LineItemBuilder) WithBillID(billID uuid.UUID) *LineItemBuilder {
	b.billID = billID
	return b
}

// WithCardID sets the card
func (b *LineItemBuilder) WithCardID(cardID uuid.UUID) *LineItemBuilder {
	b.cardID = cardID
	return b
}

// WithPaidAmt sets the paid amount
func (b *LineItemBuilder) WithPaidAmt(amt decimal.Decimal) *LineItemBuilder {
	b.paidAmt = amt
	return b
}

// WithMerchant sets the masked merchant name
func (b *LineItemBuilder) WithMerchant(masked string) *LineItemBuilder {
	b.merchant = masked
	return b
}

// Build creates the LineItem entity
func (b *LineItemBuilder) Build() *bill.LineItem {
	li, err := bill.NewLineItem(b.billID, b.cardID, b.paidDate, b.paidTime, b.paidAmt, b.merchant)
	require.NoError(b.t, err)
	return li
}
