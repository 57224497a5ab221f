package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/minho-cho/card-billing-backend/internal/domain/values"
	"github.com/minho-cho/card-billing-backend/internal/service/ledger"
)

// Cron expressions for the monthly lifecycle: bills for the new month open at
// midnight on the 1st, the previous month's bills close an hour later.
const (
	openSpec  = "0 0 1 * *"
	closeSpec = "0 1 1 * *"
)

// pageSize bounds each card/bill page pulled from persistence
const pageSize = 500

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// scheduler implements the Scheduler interface
type scheduler struct {
	cards   CardRepository
	bills   BillRepository
	ledger  ledger.Service
	metrics MetricsCollector
	clock   Clock
	cron    *cron.Cron
	logger  *zap.Logger
}

// NewScheduler creates the monthly billing scheduler
func NewScheduler(cards CardRepository, bills BillRepository, ledgerSvc ledger.Service, metrics MetricsCollector, logger *zap.Logger) Scheduler {
	return NewSchedulerWithClock(cards, bills, ledgerSvc, metrics, realClock{}, logger)
}

// NewSchedulerWithClock creates a scheduler with an injected clock
func NewSchedulerWithClock(cards CardRepository, bills BillRepository, ledgerSvc ledger.Service, metrics MetricsCollector, clk Clock, logger *zap.Logger) Scheduler {
	return &scheduler{
		cards:   cards,
		bills:   bills,
		ledger:  ledgerSvc,
		metrics: metrics,
		clock:   clk,
		cron:    cron.New(),
		logger:  logger,
	}
}

func (s *scheduler) Start() error {
	if _, err := s.cron.AddFunc(openSpec, s.runOpenStep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(closeSpec, s.runCloseStep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("billing scheduler started",
		zap.String("open_spec", openSpec),
		zap.String("close_spec", closeSpec))
	return nil
}

func (s *scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("billing scheduler stopped")
}

// runOpenStep opens bills for the month the tick fires in
func (s *scheduler) runOpenStep() {
	month := values.ChargeMonthOf(s.clock.Now())
	if _, err := s.CreateBillsManually(context.Background(), month); err != nil {
		s.logger.Error("monthly bill open run failed",
			zap.String("charge_month", month.String()),
			zap.Error(err))
	}
}

// runCloseStep closes the previous month's bills
func (s *scheduler) runCloseStep() {
	month := values.ChargeMonthOf(s.clock.Now()).Prev()
	if _, err := s.CloseBillsManually(context.Background(), month); err != nil {
		s.logger.Error("monthly bill close run failed",
			zap.String("charge_month", month.String()),
			zap.Error(err))
	}
}

func (s *scheduler) CreateBillsManually(ctx context.Context, targetMonth values.ChargeMonth) (BatchResult, error) {
	s.logger.Info("bill open run starting", zap.String("charge_month", targetMonth.String()))

	var result BatchResult
	afterID := uuid.Nil
	for {
		cards, err := s.cards.ListBillable(ctx, afterID, pageSize)
		if err != nil {
			// A wholesale listing failure aborts the run; the next scheduled
			// tick or a manual invocation retries it.
			return result, err
		}
		if len(cards) == 0 {
			break
		}

		for _, c := range cards {
			if err := s.ledger.CreateIfAbsent(ctx, c, targetMonth); err != nil {
				s.logger.Error("failed to open bill for card",
					zap.String("card_no", c.CardNo),
					zap.String("charge_month", targetMonth.String()),
					zap.Error(err))
				result.Failed++
				continue
			}
			result.Succeeded++
		}

		afterID = cards[len(cards)-1].ID
		if len(cards) < pageSize {
			break
		}
	}

	s.logger.Info("bill open run finished",
		zap.String("charge_month", targetMonth.String()),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	if s.metrics != nil {
		s.metrics.RecordBatch("open", result)
	}
	return result, nil
}

func (s *scheduler) CloseBillsManually(ctx context.Context, targetMonth values.ChargeMonth) (BatchResult, error) {
	s.logger.Info("bill close run starting", zap.String("charge_month", targetMonth.String()))

	var result BatchResult
	afterID := uuid.Nil
	for {
		// Each successfully closed bill drops out of the ACTIVE set, so the
		// cursor only has to move past bills that failed to close.
		bills, err := s.bills.ListActiveByMonth(ctx, targetMonth, afterID, pageSize)
		if err != nil {
			return result, err
		}
		if len(bills) == 0 {
			break
		}

		pageFailed := 0
		for _, b := range bills {
			if err := s.ledger.Close(ctx, b); err != nil {
				s.logger.Error("failed to close bill",
					zap.String("bill_id", b.ID.String()),
					zap.String("charge_month", targetMonth.String()),
					zap.Error(err))
				result.Failed++
				pageFailed++
				afterID = b.ID
				continue
			}
			result.Succeeded++
		}

		if pageFailed == 0 && len(bills) < pageSize {
			break
		}
		if pageFailed == 0 {
			afterID = uuid.Nil
		}
	}

	s.logger.Info("bill close run finished",
		zap.String("charge_month", targetMonth.String()),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	if s.metrics != nil {
		s.metrics.RecordBatch("close", result)
	}
	return result, nil
}

var _ Scheduler = (*scheduler)(nil)
