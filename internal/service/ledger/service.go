package ledger

import (
	"context"

	"go.uber.org/zap"

	"github.com/minho-cho/card-billing-backend/internal/domain/bill"
	"github.com/minho-cho/card-billing-backend/internal/domain/card"
	"github.com/minho-cho/card-billing-backend/internal/domain/errors"
	"github.com/minho-cho/card-billing-backend/internal/domain/values"
)

// service implements the Service interface
type service struct {
	bills  BillRepository
	logger *zap.Logger
}

// NewService creates a new bill ledger service
func NewService(bills BillRepository, logger *zap.Logger) Service {
	return &service{
		bills:  bills,
		logger: logger,
	}
}

func (s *service) FindOrCreateActive(ctx context.Context, c *card.Card, month values.ChargeMonth) (*bill.Bill, error) {
	existing, err := s.bills.FindActiveByCard(ctx, c.ID)
	switch {
	case err == nil:
		if existing.ChargeMonth.Equal(month) {
			return existing, nil
		}
		// A stale ACTIVE bill from another month is left as-is for manual
		// reconciliation; a fresh bill is opened for the requested month.
		s.logger.Warn("active bill is not for the requested month",
			zap.String("card_no", c.CardNo),
			zap.String("bill_month", existing.ChargeMonth.String()),
			zap.String("requested_month", month.String()))
	case !errors.IsType(err, errors.ErrorTypeNotFound):
		return nil, errors.NewInternalError("failed to look up active bill").WithCause(err)
	}

	return s.createBill(ctx, c, month)
}

func (s *service) CreateIfAbsent(ctx context.Context, c *card.Card, month values.ChargeMonth) error {
	b, calcErr := bill.NewBill(c, month)
	if calcErr != nil {
		s.logger.Warn("settlement date computation degraded, using fallback",
			zap.String("card_no", c.CardNo),
			zap.String("charge_month", month.String()),
			zap.Error(calcErr))
	}

	created, err := s.bills.CreateIfAbsent(ctx, b)
	if err != nil {
		return errors.NewInternalError("failed to create bill").WithCause(err)
	}
	if !created {
		s.logger.Debug("bill already exists",
			zap.String("card_no", c.CardNo),
			zap.String("charge_month", month.String()))
		return nil
	}

	s.logger.Info("bill created",
		zap.String("card_no", c.CardNo),
		zap.String("charge_month", month.String()),
		zap.String("settlement_date", b.SettlementDate))
	return nil
}

func (s *service) AppendLineItem(ctx context.Context, b *bill.Bill, item *bill.LineItem) error {
	if !b.IsActive() {
		return errors.ErrBillAlreadyClosed
	}

	if err := s.bills.AppendLineItem(ctx, item); err != nil {
		return errors.NewInternalError("failed to append line item").WithCause(err)
	}
	b.AddAmount(item.PaidAmt)

	s.logger.Info("line item appended",
		zap.String("bill_id", b.ID.String()),
		zap.String("amount", item.PaidAmt.String()),
		zap.String("running_total", b.ChargeAmt.String()))
	return nil
}

func (s *service) RecomputeTotal(ctx context.Context, b *bill.Bill) error {
	total, err := s.bills.SumLineItems(ctx, b.ID)
	if err != nil {
		return errors.NewInternalError("failed to sum line items").WithCause(err)
	}

	if err := s.bills.SetTotal(ctx, b.ID, total); err != nil {
		return errors.NewInternalError("failed to persist recomputed total").WithCause(err)
	}
	b.SetTotal(total)
	return nil
}

func (s *service) Close(ctx context.Context, b *bill.Bill) error {
	if !b.IsActive() {
		return nil
	}

	frozen := *b
	frozen.Close()

	// The repository flips the status and recomputes the total in one
	// guarded transaction, so a post racing this close either lands before
	// the freeze (and is counted) or fails its own active-bill guard.
	total, err := s.bills.Close(ctx, &frozen)
	if err != nil {
		if errors.Is(err, errors.ErrBillAlreadyClosed) {
			// A concurrent close won; storage already holds the frozen total.
			*b = frozen
			return nil
		}
		return errors.NewInternalError("failed to close bill").WithCause(err)
	}

	frozen.SetTotal(total)
	*b = frozen

	s.logger.Info("bill closed",
		zap.String("bill_id", b.ID.String()),
		zap.String("charge_month", b.ChargeMonth.String()),
		zap.String("total", b.ChargeAmt.String()))
	return nil
}

func (s *service) createBill(ctx context.Context, c *card.Card, month values.ChargeMonth) (*bill.Bill, error) {
	b, calcErr := bill.NewBill(c, month)
	if calcErr != nil {
		s.logger.Warn("settlement date computation degraded, using fallback",
			zap.String("card_no", c.CardNo),
			zap.String("charge_month", month.String()),
			zap.Error(calcErr))
	}

	// A closed bill may already occupy the default sequence for this month;
	// the new statement takes the next one so posting can continue.
	last, err := s.bills.MaxSettlementSeqNo(ctx, c.ID, month)
	if err != nil {
		return nil, errors.NewInternalError("failed to allocate settlement sequence").WithCause(err)
	}
	if last != "" {
		b.SettlementSeqNo = bill.NextSeqNo(last)
	}

	if err := s.bills.Create(ctx, b); err != nil {
		return nil, errors.NewInternalError("failed to create bill").WithCause(err)
	}

	s.logger.Info("bill created",
		zap.String("card_no", c.CardNo),
		zap.String("charge_month", month.String()),
		zap.String("settlement_seq_no", b.SettlementSeqNo),
		zap.String("settlement_date", b.SettlementDate))
	return b, nil
}
