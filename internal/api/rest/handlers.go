package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/minho-cho/card-billing-backend/internal/domain/bill"
	"github.com/minho-cho/card-billing-backend/internal/domain/card"
	"github.com/minho-cho/card-billing-backend/internal/domain/errors"
	"github.com/minho-cho/card-billing-backend/internal/domain/transaction"
	"github.com/minho-cho/card-billing-backend/internal/domain/values"
	"github.com/minho-cho/card-billing-backend/internal/service/billing"
	"github.com/minho-cho/card-billing-backend/internal/service/posting"
)

// BillQueryRepository serves the read-only interbank query surface
type BillQueryRepository interface {
	ListByUserAndMonthRange(ctx context.Context, userCI string, from, to values.ChargeMonth) ([]*bill.Bill, error)
	ListLineItemsForUser(ctx context.Context, userCI string, month values.ChargeMonth, settlementSeqNo string) ([]*bill.LineItem, error)
}

// UserRepository resolves users by interbank CI
type UserRepository interface {
	GetByCI(ctx context.Context, userCI string) (*card.User, error)
}

// TransactionRepository persists ingested transactions
type TransactionRepository interface {
	Create(ctx context.Context, t *transaction.Transaction) error
}

// Handlers carries the HTTP handler set and its collaborators
type Handlers struct {
	bills     BillQueryRepository
	users     UserRepository
	txns      TransactionRepository
	poster    posting.Service
	scheduler billing.Scheduler
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates the handler set
func NewHandlers(bills BillQueryRepository, users UserRepository, txns TransactionRepository, poster posting.Service, scheduler billing.Scheduler, logger *slog.Logger) *Handlers {
	return &Handlers{
		bills:     bills,
		users:     users,
		txns:      txns,
		poster:    poster,
		scheduler: scheduler,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Register mounts all routes on the mux
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/users/{user_ci}/bills", h.handleListBills)
	mux.HandleFunc("GET /api/v1/users/{user_ci}/bills/{charge_month}/{settlement_seq_no}/items", h.handleListBillItems)
	mux.HandleFunc("POST /api/v1/transactions", h.handleCreateTransaction)
	mux.HandleFunc("POST /api/v1/admin/bills/open", h.handleOpenBills)
	mux.HandleFunc("POST /api/v1/admin/bills/close", h.handleCloseBills)
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleListBills(w http.ResponseWriter, r *http.Request) {
	userCI := r.PathValue("user_ci")

	q := billListQuery{
		FromMonth: r.URL.Query().Get("from_month"),
		ToMonth:   r.URL.Query().Get("to_month"),
	}
	if err := h.validate.Struct(q); err != nil {
		writeError(w, errors.NewValidationError("INVALID_MONTH_RANGE", "from_month and to_month must be YYYYMM"))
		return
	}
	from, err := values.NewChargeMonth(q.FromMonth)
	if err != nil {
		writeError(w, errors.NewValidationError("INVALID_MONTH_RANGE", err.Error()))
		return
	}
	to, err := values.NewChargeMonth(q.ToMonth)
	if err != nil {
		writeError(w, errors.NewValidationError("INVALID_MONTH_RANGE", err.Error()))
		return
	}

	if !h.resolveActiveUser(w, r, userCI) {
		return
	}

	bills, err := h.bills.ListByUserAndMonthRange(r.Context(), userCI, from, to)
	if err != nil {
		h.logger.Error("bill list lookup failed", "user_ci", userCI, "error", err)
		writeError(w, errors.NewInternalError("failed to list bills"))
		return
	}

	resp := billListResponse{BillCnt: len(bills), BillList: make([]billInfo, 0, len(bills))}
	for _, b := range bills {
		resp.BillList = append(resp.BillList, toBillInfo(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleListBillItems(w http.ResponseWriter, r *http.Request) {
	userCI := r.PathValue("user_ci")
	settlementSeqNo := r.PathValue("settlement_seq_no")

	month, err := values.NewChargeMonth(r.PathValue("charge_month"))
	if err != nil {
		writeError(w, errors.NewValidationError("INVALID_CHARGE_MONTH", err.Error()))
		return
	}

	if !h.resolveActiveUser(w, r, userCI) {
		return
	}

	items, err := h.bills.ListLineItemsForUser(r.Context(), userCI, month, settlementSeqNo)
	if err != nil {
		h.logger.Error("bill detail lookup failed", "user_ci", userCI, "error", err)
		writeError(w, errors.NewInternalError("failed to list bill items"))
		return
	}

	resp := billDetailResponse{BillDetailCnt: len(items), BillDetailList: make([]billDetailInfo, 0, len(items))}
	for _, li := range items {
		resp.BillDetailList = append(resp.BillDetailList, toBillDetailInfo(li))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("INVALID_BODY", "request body is not valid JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, errors.NewValidationError("INVALID_BODY", err.Error()))
		return
	}

	cardID, err := uuid.Parse(req.CardID)
	if err != nil {
		writeError(w, errors.NewValidationError("INVALID_CARD_ID", "card_id must be a UUID"))
		return
	}

	kind := transaction.KindApproval
	if req.Kind == "cancel" {
		kind = transaction.KindCancel
	}

	txn, err := transaction.New(
		req.TransactionNo,
		cardID,
		req.OccurredAt,
		req.MerchantName,
		decimal.NewFromInt(req.Amount),
		kind,
		parseCategory(req.Category),
	)
	if err != nil {
		writeError(w, errors.NewValidationError("INVALID_TRANSACTION", err.Error()))
		return
	}

	if err := h.txns.Create(r.Context(), txn); err != nil {
		h.logger.Error("transaction create failed", "transaction_no", req.TransactionNo, "error", err)
		writeError(w, errors.NewInternalError("failed to record transaction"))
		return
	}

	// The transaction is already committed; posting is its own unit of work
	// and must never fail the ingestion request. Detached from the request
	// context so a client disconnect cannot cancel it mid-flight.
	h.poster.PostSafely(context.WithoutCancel(r.Context()), txn)

	writeJSON(w, http.StatusCreated, createTransactionResponse{TransactionID: txn.ID.String()})
}

func (h *Handlers) handleOpenBills(w http.ResponseWriter, r *http.Request) {
	h.handleBatch(w, r, h.scheduler.CreateBillsManually)
}

func (h *Handlers) handleCloseBills(w http.ResponseWriter, r *http.Request) {
	h.handleBatch(w, r, h.scheduler.CloseBillsManually)
}

func (h *Handlers) handleBatch(w http.ResponseWriter, r *http.Request, run func(context.Context, values.ChargeMonth) (billing.BatchResult, error)) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("INVALID_BODY", "request body is not valid JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, errors.NewValidationError("INVALID_TARGET_MONTH", "target_month must be YYYYMM"))
		return
	}

	month, err := values.NewChargeMonth(req.TargetMonth)
	if err != nil {
		writeError(w, errors.NewValidationError("INVALID_TARGET_MONTH", err.Error()))
		return
	}

	result, err := run(r.Context(), month)
	if err != nil {
		h.logger.Error("manual batch run failed", "target_month", req.TargetMonth, "error", err)
		writeError(w, errors.NewInternalError("batch run failed"))
		return
	}

	writeJSON(w, http.StatusOK, toBatchResponse(req.TargetMonth, result))
}

// resolveActiveUser writes a not-found response for unknown or withdrawn
// users, mirroring the interbank contract that both cases are invisible
func (h *Handlers) resolveActiveUser(w http.ResponseWriter, r *http.Request, userCI string) bool {
	u, err := h.users.GetByCI(r.Context(), userCI)
	if err != nil {
		writeError(w, errors.ErrUserNotFound)
		return false
	}
	if u.Status == card.UserStatusWithdrawn {
		writeError(w, errors.ErrUserNotFound)
		return false
	}
	return true
}

func parseCategory(s string) transaction.Category {
	switch s {
	case "fuel":
		return transaction.CategoryFuel
	case "toll":
		return transaction.CategoryToll
	case "parking":
		return transaction.CategoryParking
	case "maintenance":
		return transaction.CategoryMaintenance
	case "shopping":
		return transaction.CategoryShopping
	case "food":
		return transaction.CategoryFood
	default:
		return transaction.CategoryOthers
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := errors.GetStatusCode(err)
	resp := errorResponse{Code: "INTERNAL_ERROR", Message: "internal server error"}

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		resp.Code = appErr.Code
		resp.Message = appErr.Message
	}
	writeJSON(w, status, resp)
}
