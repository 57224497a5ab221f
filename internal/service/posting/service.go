package posting

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/minho-cho/card-billing-backend/internal/domain/bill"
	"github.com/minho-cho/card-billing-backend/internal/domain/errors"
	"github.com/minho-cho/card-billing-backend/internal/domain/transaction"
	"github.com/minho-cho/card-billing-backend/internal/domain/values"
	"github.com/minho-cho/card-billing-backend/internal/service/ledger"
)

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// service implements the Service interface
type service struct {
	cards   CardRepository
	ledger  ledger.Service
	metrics MetricsCollector
	clock   Clock
	logger  *zap.Logger
}

// NewService creates a new transaction posting service
func NewService(cards CardRepository, ledgerSvc ledger.Service, metrics MetricsCollector, logger *zap.Logger) Service {
	return &service{
		cards:   cards,
		ledger:  ledgerSvc,
		metrics: metrics,
		clock:   realClock{},
		logger:  logger,
	}
}

// NewServiceWithClock creates a posting service with an injected clock
func NewServiceWithClock(cards CardRepository, ledgerSvc ledger.Service, metrics MetricsCollector, clk Clock, logger *zap.Logger) Service {
	return &service{
		cards:   cards,
		ledger:  ledgerSvc,
		metrics: metrics,
		clock:   clk,
		logger:  logger,
	}
}

func (s *service) Post(ctx context.Context, txn *transaction.Transaction) error {
	c, err := s.cards.GetByID(ctx, txn.CardID)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return errors.ErrCardNotFound
		}
		return errors.NewInternalError("failed to resolve card").WithCause(err)
	}

	if !c.IsValid() {
		return errors.ErrCardClosed
	}

	// The charge month is the month posting happens in, not the month of the
	// transaction's own date: backdated transactions still land on the
	// currently open bill.
	month := values.ChargeMonthOf(s.clock.Now())

	activeBill, err := s.ledger.FindOrCreateActive(ctx, c, month)
	if err != nil {
		return err
	}

	item, err := bill.NewLineItem(
		activeBill.ID,
		c.ID,
		txn.PaidDate(),
		txn.PaidTime(),
		txn.Amount,
		values.MaskMerchantName(txn.MerchantName),
	)
	if err != nil {
		return errors.NewValidationError("INVALID_LINE_ITEM", "transaction cannot be converted to a line item").WithCause(err)
	}

	if err := s.ledger.AppendLineItem(ctx, activeBill, item); err != nil {
		return err
	}

	s.logger.Info("transaction posted",
		zap.String("transaction_no", txn.TransactionNo),
		zap.String("card_no", c.CardNo),
		zap.String("amount", txn.Amount.String()),
		zap.String("charge_month", month.String()))
	return nil
}

func (s *service) PostSafely(ctx context.Context, txn *transaction.Transaction) {
	if err := s.Post(ctx, txn); err != nil {
		// Posting is decoupled from transaction persistence: the transaction
		// record stays valid, the failure is only logged and counted.
		s.logger.Error("failed to post transaction to bill",
			zap.String("transaction_no", txn.TransactionNo),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordPosting(false)
		}
		return
	}
	if s.metrics != nil {
		s.metrics.RecordPosting(true)
	}
}
