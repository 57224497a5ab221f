package rest

import (
	"github.com/minho-cho/card-billing-backend/internal/domain/bill"
	"github.com/minho-cho/card-billing-backend/internal/service/billing"
)

// billInfo mirrors the interbank bill-list record
type billInfo struct {
	ChargeMonth     string `json:"charge_month"`
	SettlementSeqNo string `json:"settlement_seq_no"`
	CardID          string `json:"card_id"`
	ChargeAmt       string `json:"charge_amt"`
	SettlementDay   string `json:"settlement_day"`
	SettlementDate  string `json:"settlement_date"`
	CreditCheckType string `json:"credit_check_type"`
}

// billListResponse is the bill list envelope
type billListResponse struct {
	BillCnt  int        `json:"bill_cnt"`
	BillList []billInfo `json:"bill_list"`
}

// billDetailInfo mirrors the interbank line-item record
type billDetailInfo struct {
	CardID             string `json:"card_id"`
	PaidDate           string `json:"paid_date"`
	PaidTime           string `json:"paid_time"`
	PaidAmt            string `json:"paid_amt"`
	MerchantNameMasked string `json:"merchant_name_masked"`
	CreditFeeAmt       string `json:"credit_fee_amt"`
	ProductType        string `json:"product_type"`
}

// billDetailResponse is the line-item list envelope
type billDetailResponse struct {
	BillDetailCnt  int              `json:"bill_detail_cnt"`
	BillDetailList []billDetailInfo `json:"bill_detail_list"`
}

// batchResponse reports a manual scheduler run's aggregate counts
type batchResponse struct {
	TargetMonth string `json:"target_month"`
	Succeeded   int    `json:"succeeded"`
	Failed      int    `json:"failed"`
}

// createTransactionResponse acknowledges an ingested transaction
type createTransactionResponse struct {
	TransactionID string `json:"transaction_id"`
}

// errorResponse is the common error envelope
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toBillInfo(b *bill.Bill) billInfo {
	return billInfo{
		ChargeMonth:     b.ChargeMonth.String(),
		SettlementSeqNo: b.SettlementSeqNo,
		CardID:          b.CardID.String(),
		ChargeAmt:       b.ChargeAmt.String(),
		SettlementDay:   b.SettlementDay,
		SettlementDate:  b.SettlementDate,
		CreditCheckType: b.CreditCheckType,
	}
}

func toBillDetailInfo(li *bill.LineItem) billDetailInfo {
	return billDetailInfo{
		CardID:             li.CardID.String(),
		PaidDate:           li.PaidDate,
		PaidTime:           li.PaidTime,
		PaidAmt:            li.PaidAmt.String(),
		MerchantNameMasked: li.MerchantNameMasked,
		CreditFeeAmt:       li.CreditFeeAmt.String(),
		ProductType:        li.ProductType,
	}
}

func toBatchResponse(month string, result billing.BatchResult) batchResponse {
	return batchResponse{
		TargetMonth: month,
		Succeeded:   result.Succeeded,
		Failed:      result.Failed,
	}
}
