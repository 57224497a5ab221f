package fixtures

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/minho-cho/card-billing-backend/internal/domain/card"
)

// UserBuilder builds test User entities
type UserBuilder struct {
	t      *testing.T
	id     uuid.UUID
	userCI string
	name   string
	status card.UserStatus
}

// NewUserBuilder creates a new UserBuilder with defaults
func NewUserBuilder(t *testing.T) *UserBuilder {
	t.Helper()
	id, err := uuid.NewRandom()
	require.NoError(t, err)

	return &UserBuilder{
		t:      t,
		id:     id,
		userCI: "CI" + uuid.New().String()[:8],
		name:   "Test User",
		status: card.UserStatusActive,
	}
}

// WithID sets the user ID
func (b *UserBuilder) WithID(id uuid.UUID) *UserBuilder {
	b.id = id
	return b
}

// WithUserCI sets the interbank connecting information
func (b *UserBuilder) WithUserCI(ci string) *UserBuilder {
	b.userCI = ci
	return b
}

// WithStatus sets the user status
func (b *UserBuilder) WithStatus(status card.UserStatus) *UserBuilder {
	b.status = status
	return b
}

// Build creates the User entity
func (b *UserBuilder) Build() *card.User {
	now := time.Now().UTC()
	return &card.User{
		ID:        b.id,
		UserCI:    b.userCI,
		Name:      b.name,
		Email:     "test@example.com",
		Phone:     "01012345678",
		Status:    b.status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CardBuilder builds test Card entities
type CardBuilder struct {
	t       *testing.T
	id      uuid.UUID
	cardNo  string
	userID  uuid.UUID
	product card.ProductType
	status  card.Status
}

// NewCardBuilder creates a new CardBuilder with defaults
func NewCardBuilder(t *testing.T) *CardBuilder {
	t.Helper()
	id, err := uuid.NewRandom()
	require.NoError(t, err)
	userID, err := uuid.NewRandom()
	require.NoError(t, err)

	return &CardBuilder{
		t:       t,
		id:      id,
		cardNo:  "4321432143214321",
		userID:  userID,
		product: card.ProductCredit,
		status:  card.StatusNormal,
	}
}

// WithID sets the card ID
func (b *CardBuilder) WithID(id uuid.UUID) *CardBuilder {
	b.id = id
	return b
}

// WithCardNo sets the card number
func (b *CardBuilder) WithCardNo(cardNo string) *CardBuilder {
	b.cardNo = cardNo
	return b
}

// WithUserID sets the owning user
func (b *CardBuilder) WithUserID(userID uuid.UUID) *CardBuilder {
	b.userID = userID
	return b
}

// WithProduct sets the card product type
func (b *CardBuilder) WithProduct(product card.ProductType) *CardBuilder {
	b.product = product
	return b
}

// WithStatus sets the card status
func (b *CardBuilder) WithStatus(status card.Status) *CardBuilder {
	b.status = status
	return b
}

// Build creates the Card entity
func (b *CardBuilder) Build() *card.Card {
	now := time.Now().UTC()
	issue := now.AddDate(-1, 0, 0)
	expire := now.AddDate(4, 0, 0)
	return &card.Card{
		ID:         b.id,
		CardNo:     b.cardNo,
		UserID:     b.userID,
		Product:    b.product,
		Status:     b.status,
		IssueDate:  &issue,
		ExpireDate: &expire,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
