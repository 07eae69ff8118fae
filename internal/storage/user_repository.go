package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"relcalc/internal/models"
)

// UserRepository handles user account database operations. Lookups by ID go
// through the DB user cache since the identity middleware hits them on every
// authenticated request.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// Create creates a new user account
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, is_premium, enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err := r.db.conn.QueryRowContext(
		ctx, query,
		user.ID, user.Email, user.PasswordHash, user.IsPremium, user.Enabled,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, email, password_hash, is_premium, enabled, last_login_at, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	err := r.db.conn.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetByID retrieves a user by ID, consulting the cache first
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	cacheKey := "user:" + id.String()
	if cached, found := r.db.userCache.Get(cacheKey); found {
		if user, ok := cached.(*models.User); ok {
			copied := *user
			return &copied, nil
		}
	}

	var user models.User
	query := `
		SELECT id, email, password_hash, is_premium, enabled, last_login_at, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	err := r.db.conn.GetContext(ctx, &user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	cached := user
	r.db.userCache.Set(cacheKey, &cached)

	return &user, nil
}

// SetPremium updates a user's tier and invalidates the cache entry
func (r *UserRepository) SetPremium(ctx context.Context, id uuid.UUID, isPremium bool) error {
	query := `
		UPDATE users
		SET is_premium = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.conn.ExecContext(ctx, query, id, isPremium)
	if err != nil {
		return fmt.Errorf("failed to update user tier: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	r.db.userCache.Delete("user:" + id.String())
	return nil
}

// RecordLogin updates the last login timestamp
func (r *UserRepository) RecordLogin(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET last_login_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// List retrieves all users, optionally only enabled accounts
func (r *UserRepository) List(ctx context.Context, enabledOnly bool) ([]*models.User, error) {
	query := `
		SELECT id, email, password_hash, is_premium, enabled, last_login_at, created_at, updated_at
		FROM users
	`

	if enabledOnly {
		query += " WHERE enabled = true"
	}

	query += " ORDER BY created_at DESC"

	var users []*models.User
	if err := r.db.conn.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}
