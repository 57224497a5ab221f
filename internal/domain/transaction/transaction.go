package transaction

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is an authorized card transaction handed over by the ingestion
// flow. The billing ledger consumes it read-only.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	TransactionNo string          `json:"transaction_no"`
	CardID        uuid.UUID       `json:"card_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	MerchantName  string          `json:"merchant_name"`
	MerchantRegNo string          `json:"merchant_reg_no,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Kind          Kind            `json:"kind"`
	Category      Category        `json:"category"`
	Memo          string          `json:"memo,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type Kind int

const (
	KindApproval Kind = iota
	KindCancel
)

func (k Kind) String() string {
	switch k {
	case KindApproval:
		return "approval"
	case KindCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

type Category int

const (
	CategoryOthers Category = iota
	CategoryFuel
	CategoryToll
	CategoryParking
	CategoryMaintenance
	CategoryShopping
	CategoryFood
)

func (c Category) String() string {
	switch c {
	case CategoryFuel:
		return "fuel"
	case CategoryToll:
		return "toll"
	case CategoryParking:
		return "parking"
	case CategoryMaintenance:
		return "maintenance"
	case CategoryShopping:
		return "shopping"
	case CategoryFood:
		return "food"
	case CategoryOthers:
		return "others"
	default:
		return "unknown"
	}
}

func New(transactionNo string, cardID uuid.UUID, occurredAt time.Time, merchantName string, amount decimal.Decimal, kind Kind, category Category) (*Transaction, error) {
	if transactionNo == "" {
		return nil, fmt.Errorf("transaction number cannot be empty")
	}
	if cardID == uuid.Nil {
		return nil, fmt.Errorf("card ID cannot be nil")
	}
	if merchantName == "" {
		return nil, fmt.Errorf("merchant name cannot be empty")
	}
	if kind == KindCancel && amount.IsPositive() {
		return nil, fmt.Errorf("cancellation amount must not be positive")
	}

	return &Transaction{
		ID:            uuid.New(),
		TransactionNo: transactionNo,
		CardID:        cardID,
		OccurredAt:    occurredAt,
		MerchantName:  merchantName,
		Amount:        amount,
		Kind:          kind,
		Category:      category,
		CreatedAt:     time.Now(),
	}, nil
}

// PaidDate formats the transaction date as YYYYMMDD for line-item reporting
func (t *Transaction) PaidDate() string {
	return t.OccurredAt.Format("20060102")
}

// PaidTime formats the transaction time as HHMMSS for line-item reporting
func (t *Transaction) PaidTime() string {
	return t.OccurredAt.Format("150405")
}
