package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"relcalc/internal/models"
)

// UsageLogRepository persists calculation audit records
type UsageLogRepository struct {
	db *DB
}

// NewUsageLogRepository creates a new usage log repository
func NewUsageLogRepository(db *DB) *UsageLogRepository {
	return &UsageLogRepository{
		db: db,
	}
}

const insertUsageLogQuery = `
	INSERT INTO usage_logs (
		id, request_id, caller_identity, tier, calculator_id,
		allowed, status_code, error_message, response_time_ms, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Create inserts a single usage log record
func (r *UsageLogRepository) Create(ctx context.Context, record *models.UsageLog) error {
	prepareUsageLog(record)

	_, err := r.db.conn.ExecContext(
		ctx, insertUsageLogQuery,
		record.ID, record.RequestID, record.CallerIdentity, record.Tier, record.CalculatorID,
		record.Allowed, record.StatusCode, record.ErrorMessage, record.ResponseTimeMS, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage log: %w", err)
	}

	return nil
}

// CreateTx inserts a usage log record inside an existing transaction
func (r *UsageLogRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, record *models.UsageLog) error {
	prepareUsageLog(record)

	_, err := tx.ExecContext(
		ctx, insertUsageLogQuery,
		record.ID, record.RequestID, record.CallerIdentity, record.Tier, record.CalculatorID,
		record.Allowed, record.StatusCode, record.ErrorMessage, record.ResponseTimeMS, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage log: %w", err)
	}

	return nil
}

// CountByCaller returns how many calculations a caller ran since a cutoff
func (r *UsageLogRepository) CountByCaller(ctx context.Context, identity string, since time.Time) (int64, error) {
	var count int64
	query := `
		SELECT COUNT(*)
		FROM usage_logs
		WHERE caller_identity = $1 AND created_at >= $2
	`

	if err := r.db.conn.GetContext(ctx, &count, query, identity, since); err != nil {
		return 0, fmt.Errorf("failed to count usage logs: %w", err)
	}

	return count, nil
}

// ListByCaller retrieves a caller's most recent usage records
func (r *UsageLogRepository) ListByCaller(ctx context.Context, identity string, limit int) ([]*models.UsageLog, error) {
	query := `
		SELECT id, request_id, caller_identity, tier, calculator_id,
		       allowed, status_code, error_message, response_time_ms, created_at
		FROM usage_logs
		WHERE caller_identity = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var records []*models.UsageLog
	if err := r.db.conn.SelectContext(ctx, &records, query, identity, limit); err != nil {
		return nil, fmt.Errorf("failed to list usage logs: %w", err)
	}

	return records, nil
}

func prepareUsageLog(record *models.UsageLog) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
}
