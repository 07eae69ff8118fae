package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"relcalc/internal/models"
	"relcalc/internal/queue"
	"relcalc/internal/utils"
)

// UsageLogWorker drains queued usage logs into PostgreSQL in batches so the
// request path never waits on the database.
type UsageLogWorker struct {
	queue       queue.Queue
	dlq         queue.DeadLetterQueue
	db          *DB
	config      *queue.Config
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewUsageLogWorker creates a new usage log worker
func NewUsageLogWorker(q queue.Queue, dlq queue.DeadLetterQueue, db *DB, config *queue.Config) *UsageLogWorker {
	if config == nil {
		config = queue.DefaultConfig("usage")
	}

	return &UsageLogWorker{
		queue:       q,
		dlq:         dlq,
		db:          db,
		config:      config,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start starts the worker goroutine
func (w *UsageLogWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop gracefully stops the worker
func (w *UsageLogWorker) Stop() error {
	close(w.stopChan)
	<-w.stoppedChan
	return nil
}

// Enqueue adds a usage log to the queue
func (w *UsageLogWorker) Enqueue(ctx context.Context, record *models.UsageLog) error {
	return w.queue.Enqueue(ctx, record)
}

// run is the main worker loop
func (w *UsageLogWorker) run(ctx context.Context) {
	defer close(w.stoppedChan)

	logger := utils.NewLogger("usage-worker")

	for {
		select {
		case <-w.stopChan:
			logger.Info("Usage log worker stopping")
			return
		case <-ctx.Done():
			logger.Info("Usage log worker context cancelled")
			return
		default:
			w.processBatch(ctx, logger)
		}
	}
}

// processBatch drains one batch from the queue and persists it
func (w *UsageLogWorker) processBatch(ctx context.Context, logger *utils.Logger) {
	items, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
	if err != nil {
		logger.Error("Failed to dequeue usage logs", "error", err)
		time.Sleep(1 * time.Second) // back off on error
		return
	}

	if len(items) == 0 {
		return
	}

	logger.Debug("Processing usage log batch", "count", len(items))

	records := make([]*models.UsageLog, 0, len(items))
	for _, item := range items {
		var record models.UsageLog
		if err := w.unmarshalItem(item, &record); err != nil {
			logger.Error("Failed to unmarshal usage log", "error", err)
			continue
		}
		records = append(records, &record)
	}

	if len(records) == 0 {
		return
	}

	if err := w.insertBatch(ctx, records); err != nil {
		logger.Error("Failed to insert batch, falling back to individual inserts", "error", err)
		for _, record := range records {
			if err := w.processItem(ctx, record, logger); err != nil {
				logger.Error("Failed to process usage log", "error", err)
			}
		}
	}
}

// insertBatch inserts multiple usage logs in a single transaction
func (w *UsageLogWorker) insertBatch(ctx context.Context, records []*models.UsageLog) error {
	repo := NewUsageLogRepository(w.db)

	tx, err := w.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		if err := repo.CreateTx(ctx, tx, record); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// processItem inserts a single usage log with retries, moving it to the
// dead letter queue when retries are exhausted
func (w *UsageLogWorker) processItem(ctx context.Context, record *models.UsageLog, logger *utils.Logger) error {
	repo := NewUsageLogRepository(w.db)

	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			logger.Debug("Retrying usage log", "attempt", attempt, "backoff", backoff)
			time.Sleep(backoff)
		}

		if err := repo.Create(ctx, record); err != nil {
			lastErr = err
			logger.Error("Failed to insert usage log", "attempt", attempt, "error", err)
			continue
		}

		return nil
	}

	if w.dlq != nil {
		if err := w.dlq.Add(ctx, record, lastErr); err != nil {
			logger.Error("Failed to add to dead letter queue", "error", err)
		} else {
			logger.Warn("Usage log moved to DLQ", "request_id", record.RequestID, "error", lastErr)
		}
	}

	return fmt.Errorf("%w: %v", queue.ErrMaxRetriesExceeded, lastErr)
}

// unmarshalItem converts a queue item into a UsageLog
func (w *UsageLogWorker) unmarshalItem(item interface{}, record *models.UsageLog) error {
	switch v := item.(type) {
	case *models.UsageLog:
		*record = *v
		return nil
	case models.UsageLog:
		*record = v
		return nil
	case []byte:
		return json.Unmarshal(v, record)
	case json.RawMessage:
		return json.Unmarshal(v, record)
	default:
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal item: %w", err)
		}
		return json.Unmarshal(data, record)
	}
}

// GetQueueLength returns the current queue length
func (w *UsageLogWorker) GetQueueLength(ctx context.Context) (int, error) {
	return w.queue.Length(ctx)
}

// GetDeadLetterItems returns items from the dead letter queue
func (w *UsageLogWorker) GetDeadLetterItems(ctx context.Context, maxItems int) ([]queue.DeadLetterItem, error) {
	if w.dlq == nil {
		return nil, fmt.Errorf("dead letter queue not configured")
	}
	return w.dlq.List(ctx, maxItems)
}
