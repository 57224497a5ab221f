package bill

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minho-cho/card-billing-backend/internal/domain/card"
	"github.com/minho-cho/card-billing-backend/internal/domain/values"
)

// Defaults applied when a bill is opened.
const (
	DefaultSettlementDay   = "25"
	DefaultSettlementSeqNo = "0001"
)

// NextSeqNo returns the settlement sequence that follows last, zero-padded to
// four digits. Malformed input restarts the sequence.
func NextSeqNo(last string) string {
	n, err := strconv.Atoi(last)
	if err != nil || n < 1 {
		return DefaultSettlementSeqNo
	}
	return fmt.Sprintf("%04d", n+1)
}

// Credit/check classification codes reported through the interbank protocol.
const (
	CreditCheckTypeCredit = "01"
	CreditCheckTypeCheck  = "02"
)

// Bill is one card's aggregated obligation for a single charge month.
// While ACTIVE it accepts line items and keeps a running total; closing
// freezes it against further mutation.
type Bill struct {
	ID              uuid.UUID          `json:"id"`
	CardID          uuid.UUID          `json:"card_id"`
	ChargeMonth     values.ChargeMonth `json:"charge_month"`
	SettlementSeqNo string             `json:"settlement_seq_no"`
	ChargeAmt       decimal.Decimal    `json:"charge_amt"`
	SettlementDay   string             `json:"settlement_day"`
	SettlementDate  string             `json:"settlement_date"`
	CreditCheckType string             `json:"credit_check_type"`
	Status          Status             `json:"status"`
	ClosedAt        *time.Time         `json:"closed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status int

const (
	StatusActive Status = iota
	StatusClosed
	StatusPaid
	StatusOverdue
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusClosed:
		return "closed"
	case StatusPaid:
		return "paid"
	case StatusOverdue:
		return "overdue"
	default:
		return "unknown"
	}
}

// NewBill opens an ACTIVE bill for a card and charge month with a zero total.
// The settlement date is derived from the default settlement day; a non-nil
// error reports a degraded settlement-date computation, with the bill still
// usable (callers should log the degradation rather than fail).
func NewBill(c *card.Card, month values.ChargeMonth) (*Bill, error) {
	if c == nil {
		return nil, fmt.Errorf("card cannot be nil")
	}
	if month.IsZero() {
		return nil, fmt.Errorf("charge month cannot be empty")
	}

	settlementDate, calcErr := ComputeSettlementDate(month.String(), DefaultSettlementDay)

	now := clock.Now()
	b := &Bill{
		ID:              uuid.New(),
		CardID:          c.ID,
		ChargeMonth:     month,
		SettlementSeqNo: DefaultSettlementSeqNo,
		ChargeAmt:       decimal.Zero,
		SettlementDay:   DefaultSettlementDay,
		SettlementDate:  settlementDate,
		CreditCheckType: CreditCheckTypeFor(c.Product),
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return b, calcErr
}

// CreditCheckTypeFor maps a card product onto the interbank credit/check code.
// Prepaid cards are classified as check.
func CreditCheckTypeFor(p card.ProductType) string {
	switch p {
	case card.ProductCredit:
		return CreditCheckTypeCredit
	case card.ProductDebit, card.ProductPrepaid:
		return CreditCheckTypeCheck
	default:
		return CreditCheckTypeCredit
	}
}

// IsActive reports whether the bill still accepts line items
func (b *Bill) IsActive() bool {
	return b.Status == StatusActive
}

// AddAmount folds a posted line item's amount into the running total
func (b *Bill) AddAmount(amount decimal.Decimal) {
	b.ChargeAmt = b.ChargeAmt.Add(amount)
	b.UpdatedAt = clock.Now()
}

// SetTotal replaces the running total with one recomputed from line items
func (b *Bill) SetTotal(total decimal.Decimal) {
	b.ChargeAmt = total
	b.UpdatedAt = clock.Now()
}

// Close freezes the bill. Closing an already-closed bill is a no-op.
func (b *Bill) Close() {
	if b.Status != StatusActive {
		return
	}
	now := clock.Now()
	b.Status = StatusClosed
	b.ClosedAt = &now
	b.UpdatedAt = now
}

// MarkPaid records payment against a closed bill. Driven by external payment
// collaborators; the ledger itself never calls this.
func (b *Bill) MarkPaid() error {
	if b.Status == StatusActive {
		return fmt.Errorf("cannot pay an active bill: close it first")
	}
	b.Status = StatusPaid
	b.UpdatedAt = clock.Now()
	return nil
}

// MarkOverdue flags a closed bill past its settlement date
func (b *Bill) MarkOverdue() error {
	if b.Status != StatusClosed {
		return fmt.Errorf("only closed bills can become overdue, status is %s", b.Status)
	}
	b.Status = StatusOverdue
	b.UpdatedAt = clock.Now()
	return nil
}
