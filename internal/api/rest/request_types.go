package rest

import "time"

// createTransactionRequest is the ingestion payload. Amounts are whole KRW;
// cancellations carry a negative amount.
type createTransactionRequest struct {
	TransactionNo string    `json:"transaction_no" validate:"required,max=30"`
	CardID        string    `json:"card_id" validate:"required,uuid"`
	OccurredAt    time.Time `json:"occurred_at" validate:"required"`
	MerchantName  string    `json:"merchant_name" validate:"required,max=100"`
	Amount        int64     `json:"amount" validate:"required"`
	Kind          string    `json:"kind" validate:"required,oneof=approval cancel"`
	Category      string    `json:"category" validate:"omitempty,oneof=fuel toll parking maintenance shopping food others"`
}

// batchRequest targets a manual scheduler run at a charge month
type batchRequest struct {
	TargetMonth string `json:"target_month" validate:"required,len=6,numeric"`
}

// billListQuery bounds a bill list lookup to a charge-month range
type billListQuery struct {
	FromMonth string `validate:"required,len=6,numeric"`
	ToMonth   string `validate:"required,len=6,numeric"`
}
