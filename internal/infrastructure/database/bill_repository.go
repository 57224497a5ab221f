package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/minho-cho/card-billing-backend/internal/domain/bill"
	domainerrors "github.com/minho-cho/card-billing-backend/internal/domain/errors"
	"github.com/minho-cho/card-billing-backend/internal/domain/values"
)

// BillRepository implements bill persistence using PostgreSQL
type BillRepository struct {
	db *ConnectionPool
}

// NewBillRepository creates a new PostgreSQL bill repository
func NewBillRepository(db *ConnectionPool) *BillRepository {
	return &BillRepository{db: db}
}

// Create inserts a new bill
func (r *BillRepository) Create(ctx context.Context, b *bill.Bill) error {
	query := `
		INSERT INTO card_bills (
			id, card_id, charge_month, settlement_seq_no, charge_amt,
			settlement_day, settlement_date, credit_check_type, bill_status,
			closed_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		b.ID, b.CardID, b.ChargeMonth.String(), b.SettlementSeqNo, b.ChargeAmt,
		b.SettlementDay, b.SettlementDate, b.CreditCheckType, mapStatusToEnum(b.Status),
		b.ClosedAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

// CreateIfAbsent inserts the bill unless one already exists for the same
// (card, charge month, settlement sequence). Returns false when it existed.
func (r *BillRepository) CreateIfAbsent(ctx context.Context, b *bill.Bill) (bool, error) {
	query := `
		INSERT INTO card_bills (
			id, card_id, charge_month, settlement_seq_no, charge_amt,
			settlement_day, settlement_date, credit_check_type, bill_status,
			closed_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (card_id, charge_month, settlement_seq_no) DO NOTHING
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		b.ID, b.CardID, b.ChargeMonth.String(), b.SettlementSeqNo, b.ChargeAmt,
		b.SettlementDay, b.SettlementDate, b.CreditCheckType, mapStatusToEnum(b.Status),
		b.ClosedAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create bill: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindActiveByCard returns the card's most recent ACTIVE bill. A stale ACTIVE
// bill from an earlier month can coexist with the current one until it is
// manually reconciled, so the newest charge month wins.
func (r *BillRepository) FindActiveByCard(ctx context.Context, cardID uuid.UUID) (*bill.Bill, error) {
	query := selectBill + `
		WHERE card_id = $1 AND bill_status = 'active'
		ORDER BY charge_month DESC
		LIMIT 1`

	b, err := scanBill(r.db.Pool().QueryRow(ctx, query, cardID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrBillNotFound
		}
		return nil, fmt.Errorf("failed to find active bill: %w", err)
	}
	return b, nil
}

// FindByCardAndMonth returns the card's bill for a charge month
func (r *BillRepository) FindByCardAndMonth(ctx context.Context, cardID uuid.UUID, month values.ChargeMonth) (*bill.Bill, error) {
	query := selectBill + ` WHERE card_id = $1 AND charge_month = $2`

	b, err := scanBill(r.db.Pool().QueryRow(ctx, query, cardID, month.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrBillNotFound
		}
		return nil, fmt.Errorf("failed to find bill: %w", err)
	}
	return b, nil
}

// AppendLineItem inserts the line item and folds its amount into the owning
// bill's running total in one transaction. The in-place UPDATE serializes
// concurrent increments per bill at the storage layer.
func (r *BillRepository) AppendLineItem(ctx context.Context, item *bill.LineItem) error {
	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		insert := `
			INSERT INTO card_bill_items (
				id, bill_id, card_id, paid_date, paid_time, paid_amt,
				merchant_name_masked, credit_fee_amt, product_type, created_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
			)
		`
		if _, err := tx.Exec(ctx, insert,
			item.ID, item.BillID, item.CardID, item.PaidDate, item.PaidTime,
			item.PaidAmt, item.MerchantNameMasked, item.CreditFeeAmt,
			item.ProductType, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}

		update := `
			UPDATE card_bills
			SET charge_amt = charge_amt + $2, updated_at = NOW()
			WHERE id = $1 AND bill_status = 'active'
		`
		tag, err := tx.Exec(ctx, update, item.BillID, item.PaidAmt)
		if err != nil {
			return fmt.Errorf("failed to update running total: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("bill %s is not active", item.BillID)
		}
		return nil
	})
}

// SumLineItems returns the sum of the bill's line item amounts
func (r *BillRepository) SumLineItems(ctx context.Context, billID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(paid_amt), 0) FROM card_bill_items WHERE bill_id = $1`

	var total decimal.Decimal
	if err := r.db.Pool().QueryRow(ctx, query, billID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum line items: %w", err)
	}
	return total, nil
}

// SetTotal overwrites the bill's running total
func (r *BillRepository) SetTotal(ctx context.Context, billID uuid.UUID, total decimal.Decimal) error {
	query := `UPDATE card_bills SET charge_amt = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Pool().Exec(ctx, query, billID, total)
	if err != nil {
		return fmt.Errorf("failed to set total: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.ErrBillNotFound
	}
	return nil
}

// Close freezes the bill in one transaction. The guarded status flip runs
// first and takes the row lock, so the sum that follows sees every append
// that committed before the freeze; appends arriving later fail their own
// active-bill guard.
func (r *BillRepository) Close(ctx context.Context, b *bill.Bill) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		freeze := `
			UPDATE card_bills
			SET bill_status = $2, closed_at = $3, updated_at = $4
			WHERE id = $1 AND bill_status = 'active'
		`
		tag, err := tx.Exec(ctx, freeze,
			b.ID, mapStatusToEnum(b.Status), b.ClosedAt, b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to close bill: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domainerrors.ErrBillAlreadyClosed
		}

		sum := `SELECT COALESCE(SUM(paid_amt), 0) FROM card_bill_items WHERE bill_id = $1`
		if err := tx.QueryRow(ctx, sum, b.ID).Scan(&total); err != nil {
			return fmt.Errorf("failed to sum line items: %w", err)
		}

		set := `UPDATE card_bills SET charge_amt = $2 WHERE id = $1`
		if _, err := tx.Exec(ctx, set, b.ID, total); err != nil {
			return fmt.Errorf("failed to set final total: %w", err)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// MaxSettlementSeqNo returns the highest settlement sequence issued for the
// card and month, or "" when the card has no bill for that month. Sequences
// are zero-padded so MAX compares correctly as text.
func (r *BillRepository) MaxSettlementSeqNo(ctx context.Context, cardID uuid.UUID, month values.ChargeMonth) (string, error) {
	query := `
		SELECT COALESCE(MAX(settlement_seq_no), '')
		FROM card_bills
		WHERE card_id = $1 AND charge_month = $2
	`

	var seq string
	if err := r.db.Pool().QueryRow(ctx, query, cardID, month.String()).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to read settlement sequence: %w", err)
	}
	return seq, nil
}

// ListActiveByMonth pages through bills still ACTIVE for a charge month,
// keyset-paginated by bill ID
func (r *BillRepository) ListActiveByMonth(ctx context.Context, month values.ChargeMonth, afterID uuid.UUID, limit int) ([]*bill.Bill, error) {
	query := selectBill + `
		WHERE charge_month = $1 AND bill_status = 'active' AND id > $2
		ORDER BY id
		LIMIT $3
	`

	rows, err := r.db.Pool().Query(ctx, query, month.String(), afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active bills: %w", err)
	}
	defer rows.Close()

	return collectBills(rows)
}

// ListByUserAndMonthRange returns a user's bills within a charge-month range,
// ordered by settlement date descending (the interbank query contract)
func (r *BillRepository) ListByUserAndMonthRange(ctx context.Context, userCI string, from, to values.ChargeMonth) ([]*bill.Bill, error) {
	query := `
		SELECT b.id, b.card_id, b.charge_month, b.settlement_seq_no, b.charge_amt,
		       b.settlement_day, b.settlement_date, b.credit_check_type, b.bill_status,
		       b.closed_at, b.created_at, b.updated_at
		FROM card_bills b
		JOIN cards c ON c.id = b.card_id
		JOIN card_users u ON u.id = c.user_id
		WHERE u.user_ci = $1 AND b.charge_month >= $2 AND b.charge_month <= $3
		ORDER BY b.settlement_date DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, userCI, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list bills for user: %w", err)
	}
	defer rows.Close()

	return collectBills(rows)
}

// ListLineItemsForUser returns the line items of a user's bill identified by
// charge month and settlement sequence
func (r *BillRepository) ListLineItemsForUser(ctx context.Context, userCI string, month values.ChargeMonth, settlementSeqNo string) ([]*bill.LineItem, error) {
	query := `
		SELECT i.id, i.bill_id, i.card_id, i.paid_date, i.paid_time, i.paid_amt,
		       i.merchant_name_masked, i.credit_fee_amt, i.product_type, i.created_at
		FROM card_bill_items i
		JOIN card_bills b ON b.id = i.bill_id
		JOIN cards c ON c.id = b.card_id
		JOIN card_users u ON u.id = c.user_id
		WHERE u.user_ci = $1 AND b.charge_month = $2 AND b.settlement_seq_no = $3
		ORDER BY i.paid_date, i.paid_time, i.created_at
	`

	rows, err := r.db.Pool().Query(ctx, query, userCI, month.String(), settlementSeqNo)
	if err != nil {
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	defer rows.Close()

	var items []*bill.LineItem
	for rows.Next() {
		var li bill.LineItem
		if err := rows.Scan(
			&li.ID, &li.BillID, &li.CardID, &li.PaidDate, &li.PaidTime, &li.PaidAmt,
			&li.MerchantNameMasked, &li.CreditFeeAmt, &li.ProductType, &li.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, &li)
	}
	return items, rows.Err()
}

// ListLineItemsByBill returns all line items of a bill in posting order
func (r *BillRepository) ListLineItemsByBill(ctx context.Context, billID uuid.UUID) ([]*bill.LineItem, error) {
	query := `
		SELECT id, bill_id, card_id, paid_date, paid_time, paid_amt,
		       merchant_name_masked, credit_fee_amt, product_type, created_at
		FROM card_bill_items
		WHERE bill_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Pool().Query(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	defer rows.Close()

	var items []*bill.LineItem
	for rows.Next() {
		var li bill.LineItem
		if err := rows.Scan(
			&li.ID, &li.BillID, &li.CardID, &li.PaidDate, &li.PaidTime, &li.PaidAmt,
			&li.MerchantNameMasked, &li.CreditFeeAmt, &li.ProductType, &li.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, &li)
	}
	return items, rows.Err()
}

const selectBill = `
	SELECT id, card_id, charge_month, settlement_seq_no, charge_amt,
	       settlement_day, settlement_date, credit_check_type, bill_status,
	       closed_at, created_at, updated_at
	FROM card_bills
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (*bill.Bill, error) {
	var b bill.Bill
	var chargeMonth, statusStr string

	err := row.Scan(
		&b.ID, &b.CardID, &chargeMonth, &b.SettlementSeqNo, &b.ChargeAmt,
		&b.SettlementDay, &b.SettlementDate, &b.CreditCheckType, &statusStr,
		&b.ClosedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	month, err := values.NewChargeMonth(chargeMonth)
	if err != nil {
		return nil, fmt.Errorf("stored charge month is invalid: %w", err)
	}
	b.ChargeMonth = month
	b.Status = mapEnumToStatus(statusStr)
	return &b, nil
}

func collectBills(rows pgx.Rows) ([]*bill.Bill, error) {
	var bills []*bill.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func mapStatusToEnum(status bill.Status) string {
	switch status {
	case bill.StatusActive:
		return "active"
	case bill.StatusClosed:
		return "closed"
	case bill.StatusPaid:
		return "paid"
	case bill.StatusOverdue:
		return "overdue"
	default:
		return "active"
	}
}

func mapEnumToStatus(enum string) bill.Status {
	switch enum {
	case "active":
		return bill.StatusActive
	case "closed":
		return bill.StatusClosed
	case "paid":
		return bill.StatusPaid
	case "overdue":
		return bill.StatusOverdue
	default:
		return bill.StatusActive
	}
}
