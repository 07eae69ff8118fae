package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

type testRecord struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestRedisQueue_EnqueueDequeue(t *testing.T) {
	client := setupRedis(t)
	q := NewRedisQueue(client, "test")
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testRecord{Name: "a", Count: 1}))
	require.NoError(t, q.Enqueue(ctx, testRecord{Name: "b", Count: 2}))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, length)

	items, err := q.DequeueWithTimeout(ctx, 10, time.Second)
	require.NoError(t, err)
	require.Len(t, items, 2)

	var first testRecord
	raw, ok := items[0].(json.RawMessage)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(raw, &first))
	assert.Equal(t, "a", first.Name)
}

func TestRedisQueue_DequeueWithTimeout_Empty(t *testing.T) {
	client := setupRedis(t)
	q := NewRedisQueue(client, "test")
	ctx := context.Background()

	items, err := q.DequeueWithTimeout(ctx, 10, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRedisQueue_BatchLimit(t *testing.T) {
	client := setupRedis(t)
	q := NewRedisQueue(client, "test")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(ctx, testRecord{Name: fmt.Sprintf("r%d", i)}))
	}

	items, err := q.DequeueWithTimeout(ctx, 3, time.Second)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, length)
}

func TestRedisDeadLetterQueue(t *testing.T) {
	client := setupRedis(t)
	dlq := NewRedisDeadLetterQueue(client, "test")
	ctx := context.Background()

	require.NoError(t, dlq.Add(ctx, testRecord{Name: "bad"}, fmt.Errorf("insert failed")))

	items, err := dlq.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "insert failed", items[0].Error)

	require.NoError(t, dlq.Remove(ctx, items[0].ID))

	items, err = dlq.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}
