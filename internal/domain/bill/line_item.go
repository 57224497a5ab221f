package bill

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product codes reported per line item.
const (
	ProductTypeLumpSum     = "01"
	ProductTypeInstallment = "02"
	ProductTypeCashAdvance = "03"
)

// LineItem is a single posted transaction's footprint on a bill.
// Line items are append-only: never mutated or deleted after creation.
type LineItem struct {
	ID                 uuid.UUID       `json:"id"`
	BillID             uuid.UUID       `json:"bill_id"`
	CardID             uuid.UUID       `json:"card_id"`
	PaidDate           string          `json:"paid_date"`
	PaidTime           string          `json:"paid_time"`
	PaidAmt            decimal.Decimal `json:"paid_amt"`
	MerchantNameMasked string          `json:"merchant_name_masked"`
	CreditFeeAmt       decimal.Decimal `json:"credit_fee_amt"`
	ProductType        string          `json:"product_type"`

	CreatedAt time.Time `json:"created_at"`
}

var (
	paidDatePattern = regexp.MustCompile(`^\d{8}$`)
	paidTimePattern = regexp.MustCompile(`^\d{6}$`)
)

// NewLineItem creates a line item for a bill. Fee defaults to zero and the
// product type to lump-sum when empty.
func NewLineItem(billID, cardID uuid.UUID, paidDate, paidTime string, amount decimal.Decimal, merchantNameMasked string) (*LineItem, error) {
	if billID == uuid.Nil {
		return nil, fmt.Errorf("bill ID cannot be nil")
	}
	if cardID == uuid.Nil {
		return nil, fmt.Errorf("card ID cannot be nil")
	}
	if !paidDatePattern.MatchString(paidDate) {
		return nil, fmt.Errorf("invalid paid date %q: must be YYYYMMDD", paidDate)
	}
	if !paidTimePattern.MatchString(paidTime) {
		return nil, fmt.Errorf("invalid paid time %q: must be HHMMSS", paidTime)
	}

	return &LineItem{
		ID:                 uuid.New(),
		BillID:             billID,
		CardID:             cardID,
		PaidDate:           paidDate,
		PaidTime:           paidTime,
		PaidAmt:            amount,
		MerchantNameMasked: merchantNameMasked,
		CreditFeeAmt:       decimal.Zero,
		ProductType:        ProductTypeLumpSum,
		CreatedAt:          clock.Now(),
	}, nil
}

// WithFee sets the credit fee amount
func (li *LineItem) WithFee(fee decimal.Decimal) *LineItem {
	li.CreditFeeAmt = fee
	return li
}

// WithProductType overrides the default lump-sum product code
func (li *LineItem) WithProductType(productType string) *LineItem {
	li.ProductType = productType
	return li
}

// SumAmounts returns the sum of the line items' paid amounts
func SumAmounts(items []*LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.PaidAmt)
	}
	return total
}
