package card

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User is a card holder. UserCI is the external interbank identity used by
// query collaborators; it is unique per person across institutions.
type User struct {
	ID     uuid.UUID  `json:"id"`
	UserCI string     `json:"user_ci"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Phone  string     `json:"phone"`
	Status UserStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserStatus int

const (
	UserStatusActive UserStatus = iota
	UserStatusInactive
	UserStatusWithdrawn
)

func (s UserStatus) String() string {
	switch s {
	case UserStatusActive:
		return "active"
	case UserStatusInactive:
		return "inactive"
	case UserStatusWithdrawn:
		return "withdrawn"
	default:
		return "unknown"
	}
}

func NewUser(userCI, name, email, phone string) (*User, error) {
	if userCI == "" {
		return nil, fmt.Errorf("user CI cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("user name cannot be empty")
	}

	now := clock.Now()
	return &User{
		ID:        uuid.New(),
		UserCI:    userCI,
		Name:      name,
		Email:     email,
		Phone:     phone,
		Status:    UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

func (u *User) Withdraw() {
	u.Status = UserStatusWithdrawn
	u.UpdatedAt = clock.Now()
}

func (u *User) Activate() {
	u.Status = UserStatusActive
	u.UpdatedAt = clock.Now()
}

func (u *User) UpdateEmail(email string) {
	u.Email = email
	u.UpdatedAt = clock.Now()
}
