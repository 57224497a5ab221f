package card

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Card is a payment card issued to a user. The billing ledger treats it as a
// read-only collaborator: only validity and product classification are consulted.
type Card struct {
	ID         uuid.UUID   `json:"id"`
	CardNo     string      `json:"card_no"`
	UserID     uuid.UUID   `json:"user_id"`
	Product    ProductType `json:"product"`
	Status     Status      `json:"status"`
	IssueDate  *time.Time  `json:"issue_date,omitempty"`
	ExpireDate *time.Time  `json:"expire_date,omitempty"`
	Alias      string      `json:"alias,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status int

const (
	StatusNormal Status = iota
	StatusLost
	StatusStopped
	StatusFlagged
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusLost:
		return "lost"
	case StatusStopped:
		return "stopped"
	case StatusFlagged:
		return "flagged"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type ProductType int

const (
	ProductCredit ProductType = iota
	ProductDebit
	ProductPrepaid
)

func (p ProductType) String() string {
	switch p {
	case ProductCredit:
		return "credit"
	case ProductDebit:
		return "debit"
	case ProductPrepaid:
		return "prepaid"
	default:
		return "unknown"
	}
}

var cardNoPattern = regexp.MustCompile(`^\d{16}$`)

func NewCard(cardNo string, userID uuid.UUID, product ProductType) (*Card, error) {
	if !cardNoPattern.MatchString(cardNo) {
		return nil, fmt.Errorf("invalid card number: must be 16 digits")
	}
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user ID cannot be nil")
	}

	now := clock.Now()
	issue := now
	expire := now.AddDate(5, 0, 0)
	return &Card{
		ID:         uuid.New(),
		CardNo:     cardNo,
		UserID:     userID,
		Product:    product,
		Status:     StatusNormal,
		IssueDate:  &issue,
		ExpireDate: &expire,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsValid reports whether the card may still accumulate charges.
// Lost and stopped cards stay billable for already-authorized transactions.
func (c *Card) IsValid() bool {
	return c.Status != StatusClosed
}

func (c *Card) ReportLost() {
	c.Status = StatusLost
	c.UpdatedAt = clock.Now()
}

func (c *Card) Stop() {
	c.Status = StatusStopped
	c.UpdatedAt = clock.Now()
}

func (c *Card) Activate() {
	c.Status = StatusNormal
	c.UpdatedAt = clock.Now()
}

func (c *Card) Close() {
	c.Status = StatusClosed
	c.UpdatedAt = clock.Now()
}

func (c *Card) UpdateAlias(alias string) {
	c.Alias = alias
	c.UpdatedAt = clock.Now()
}
