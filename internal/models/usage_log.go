package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageLog represents a single calculation request audit record
type UsageLog struct {
	ID             uuid.UUID `db:"id"`
	RequestID      uuid.UUID `db:"request_id"`
	CallerIdentity string    `db:"caller_identity"` // user ID or client IP
	Tier           string    `db:"tier"`
	CalculatorID   string    `db:"calculator_id"`
	Allowed        bool      `db:"allowed"`
	StatusCode     int       `db:"status_code"`
	ErrorMessage   string    `db:"error_message"`
	ResponseTimeMS int       `db:"response_time_ms"`
	CreatedAt      time.Time `db:"created_at"`
}
