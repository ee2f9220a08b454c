package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krishi-kendra/krishi-kendra/internal/platform/db"
)

const userColumns = `id, name, email, password_hash, store_name, mobile, gst_number, store_address,
	notify_low_stock, notify_udhaar, notify_daily_summary, is_active, created_at, updated_at`

// Repository defines persistence operations for accounts.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
}

// Create inserts a new account.
func (r *PGRepository) Create(ctx context.Context, u *User) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO users (id, name, email, password_hash, store_name, mobile, gst_number,
		store_address, notify_low_stock, notify_udhaar, notify_daily_summary, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING created_at, updated_at`,
		u.ID.String(), u.Name, u.Email, u.PasswordHash, u.StoreName, u.Mobile, u.GSTNumber, u.StoreAddress,
		u.Notifications.LowStockAlerts, u.Notifications.UdhaarReminders, u.Notifications.DailySummary, u.IsActive,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if db.IsUniqueViolation(err, "users_email_key") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update saves the profile fields.
func (r *PGRepository) Update(ctx context.Context, u *User) error {
	err := r.pool.QueryRow(ctx, `UPDATE users SET name = $2, email = $3, store_name = $4, mobile = $5, gst_number = $6,
		store_address = $7, notify_low_stock = $8, notify_udhaar = $9, notify_daily_summary = $10, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`,
		u.ID.String(), u.Name, u.Email, u.StoreName, u.Mobile, u.GSTNumber, u.StoreAddress,
		u.Notifications.LowStockAlerts, u.Notifications.UdhaarReminders, u.Notifications.DailySummary,
	).Scan(&u.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrUserNotFound
	case db.IsUniqueViolation(err, "users_email_key"):
		return ErrEmailTaken
	case err != nil:
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id.String(), hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg any) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.StoreName, &u.Mobile,
		&u.GSTNumber, &u.StoreAddress, &u.Notifications.LowStockAlerts, &u.Notifications.UdhaarReminders,
		&u.Notifications.DailySummary, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

var _ Repository = (*PGRepository)(nil)
