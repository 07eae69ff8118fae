package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an end-user account for the calculator API
// Authentication is email/password based with Argon2 password hashing
type User struct {
	ID           uuid.UUID  `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"` // Argon2 hash
	IsPremium    bool       `db:"is_premium"`
	Enabled      bool       `db:"enabled"`
	LastLoginAt  *time.Time `db:"last_login_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// IsValid checks if the account is enabled
func (u *User) IsValid() bool {
	return u.Enabled
}
