package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/minho-cho/card-billing-backend/internal/domain/card"
	domainerrors "github.com/minho-cho/card-billing-backend/internal/domain/errors"
)

// UserRepository implements card user persistence using PostgreSQL
type UserRepository struct {
	db *ConnectionPool
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *ConnectionPool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new card user
func (r *UserRepository) Create(ctx context.Context, u *card.User) error {
	query := `
		INSERT INTO card_users (
			id, user_ci, user_name, user_email, user_phone, status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		u.ID, u.UserCI, u.Name, u.Email, u.Phone, mapUserStatusToEnum(u.Status),
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by internal ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*card.User, error) {
	query := selectUser + ` WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByCI retrieves a user by interbank CI
func (r *UserRepository) GetByCI(ctx context.Context, userCI string) (*card.User, error) {
	query := selectUser + ` WHERE user_ci = $1`
	return r.getOne(ctx, query, userCI)
}

// Update persists user status and contact changes
func (r *UserRepository) Update(ctx context.Context, u *card.User) error {
	query := `
		UPDATE card_users
		SET user_email = $2, user_phone = $3, status = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		u.ID, u.Email, u.Phone, mapUserStatusToEnum(u.Status), u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainerrors.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*card.User, error) {
	var u card.User
	var statusStr string

	err := r.db.Pool().QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.UserCI, &u.Name, &u.Email, &u.Phone, &statusStr,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.Status = mapEnumToUserStatus(statusStr)
	return &u, nil
}

const selectUser = `
	SELECT id, user_ci, user_name, user_email, user_phone, status,
	       created_at, updated_at
	FROM card_users
`

func mapUserStatusToEnum(status card.UserStatus) string {
	switch status {
	case card.UserStatusActive:
		return "active"
	case card.UserStatusInactive:
		return "inactive"
	case card.UserStatusWithdrawn:
		return "withdrawn"
	default:
		return "active"
	}
}

func mapEnumToUserStatus(enum string) card.UserStatus {
	switch enum {
	case "active":
		return card.UserStatusActive
	case "inactive":
		return card.UserStatusInactive
	case "withdrawn":
		return card.UserStatusWithdrawn
	default:
		return card.UserStatusActive
	}
}
