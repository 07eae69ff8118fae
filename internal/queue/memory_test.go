package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue(nil)
	defer q.Close()
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "first"))
	require.NoError(t, q.Enqueue(ctx, "second"))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, length)

	items, err := q.Dequeue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"first", "second"}, items)
}

func TestMemoryQueue_DequeueRespectsMaxItems(t *testing.T) {
	q := NewMemoryQueue(nil)
	defer q.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(ctx, fmt.Sprintf("item-%d", i)))
	}

	items, err := q.Dequeue(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, length)
}

func TestMemoryQueue_DequeueWithTimeout_Empty(t *testing.T) {
	q := NewMemoryQueue(nil)
	defer q.Close()
	ctx := context.Background()

	start := time.Now()
	items, err := q.DequeueWithTimeout(ctx, 10, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMemoryQueue_Closed(t *testing.T) {
	q := NewMemoryQueue(nil)
	require.NoError(t, q.Close())
	ctx := context.Background()

	assert.ErrorIs(t, q.Enqueue(ctx, "late"), ErrQueueClosed)
	_, err := q.Length(ctx)
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Closing twice is fine.
	assert.NoError(t, q.Close())
}

func TestMemoryQueue_DequeueCancelled(t *testing.T) {
	q := NewMemoryQueue(nil)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryDeadLetterQueue(t *testing.T) {
	dlq := NewMemoryDeadLetterQueue()
	defer dlq.Close()
	ctx := context.Background()

	require.NoError(t, dlq.Add(ctx, "broken-record", fmt.Errorf("insert failed")))
	require.NoError(t, dlq.Add(ctx, "another", fmt.Errorf("still failing")))

	items, err := dlq.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "insert failed", items[0].Error)
	assert.NotEmpty(t, items[0].ID)

	require.NoError(t, dlq.Remove(ctx, items[0].ID))

	items, err = dlq.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	assert.ErrorIs(t, dlq.Remove(ctx, "no-such-id"), ErrItemNotFound)
}
