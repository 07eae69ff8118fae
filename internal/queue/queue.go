// Package queue provides the async pipeline that moves calculation usage
// logs from the request path into durable storage. Two backends:
//
//  1. Memory queue (channel-based): no persistence, no external
//     dependencies. Used in standalone mode and tests.
//  2. Redis queue (list-based): persistent across restarts and shared
//     between instances. Used in production.
//
// Workers drain the queue in batches with retry and a dead-letter queue
// for records that repeatedly fail to insert.
package queue

import (
	"context"
	"time"
)

// Queue defines the interface for message queuing
type Queue interface {
	// Enqueue adds an item to the queue
	Enqueue(ctx context.Context, item interface{}) error

	// Dequeue retrieves up to maxItems items, blocking until at least one
	// is available or the context is cancelled
	Dequeue(ctx context.Context, maxItems int) ([]interface{}, error)

	// DequeueWithTimeout retrieves items if any arrive before the timeout,
	// otherwise returns an empty slice
	DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]interface{}, error)

	// Length returns the current queue length
	Length(ctx context.Context) (int, error)

	// Close shuts down the queue gracefully
	Close() error
}

// DeadLetterQueue holds items that exhausted their retries
type DeadLetterQueue interface {
	// Add records a failed item together with its final error
	Add(ctx context.Context, item interface{}, err error) error

	// List retrieves up to maxItems items; maxItems <= 0 means all
	List(ctx context.Context, maxItems int) ([]DeadLetterItem, error)

	// Remove deletes an item by ID
	Remove(ctx context.Context, id string) error

	// Close shuts down the dead letter queue
	Close() error
}

// DeadLetterItem represents an item in the dead letter queue
type DeadLetterItem struct {
	ID        string
	Item      interface{}
	Error     string
	Timestamp time.Time
	Retries   int
}

// Config holds queue tuning parameters
type Config struct {
	// BatchSize is the maximum number of items to process in a batch
	BatchSize int

	// BatchTimeout is how long to wait before processing a partial batch
	BatchTimeout time.Duration

	// MaxRetries is the maximum number of retry attempts per item
	MaxRetries int

	// RetryBackoff is the initial backoff duration for retries
	RetryBackoff time.Duration

	// QueueName is the name/key for the queue
	QueueName string
}

// DefaultConfig returns default queue configuration
func DefaultConfig(queueName string) *Config {
	return &Config{
		BatchSize:    100,
		BatchTimeout: 5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 1 * time.Second,
		QueueName:    queueName,
	}
}
