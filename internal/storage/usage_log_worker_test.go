package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relcalc/internal/models"
	"relcalc/internal/queue"
)

func testUsageLog() *models.UsageLog {
	return &models.UsageLog{
		ID:             uuid.New(),
		RequestID:      uuid.New(),
		CallerIdentity: "203.0.113.7",
		Tier:           "free",
		CalculatorID:   "mtbf",
		Allowed:        true,
		StatusCode:     200,
		ResponseTimeMS: 12,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}
}

func TestUsageLogWorker_EnqueueAndLength(t *testing.T) {
	config := queue.DefaultConfig("test-usage")
	q := queue.NewMemoryQueue(config)
	defer q.Close()

	worker := NewUsageLogWorker(q, queue.NewMemoryDeadLetterQueue(), nil, config)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, worker.Enqueue(ctx, testUsageLog()))
	}

	length, err := worker.GetQueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, length)
}

func TestUsageLogWorker_UnmarshalItem(t *testing.T) {
	worker := NewUsageLogWorker(queue.NewMemoryQueue(nil), nil, nil, nil)
	original := testUsageLog()

	serialized, err := json.Marshal(original)
	require.NoError(t, err)

	tests := []struct {
		name string
		item interface{}
	}{
		{name: "pointer", item: original},
		{name: "value", item: *original},
		{name: "bytes", item: serialized},
		{name: "raw message", item: json.RawMessage(serialized)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var record models.UsageLog
			require.NoError(t, worker.unmarshalItem(tt.item, &record))
			assert.Equal(t, original.RequestID, record.RequestID)
			assert.Equal(t, original.CalculatorID, record.CalculatorID)
			assert.Equal(t, original.CallerIdentity, record.CallerIdentity)
		})
	}
}

func TestUsageLogWorker_UnmarshalGarbage(t *testing.T) {
	worker := NewUsageLogWorker(queue.NewMemoryQueue(nil), nil, nil, nil)

	var record models.UsageLog
	err := worker.unmarshalItem([]byte("{not json"), &record)
	assert.Error(t, err)
}

func TestUsageLogWorker_DeadLetterAccess(t *testing.T) {
	worker := NewUsageLogWorker(queue.NewMemoryQueue(nil), nil, nil, nil)

	_, err := worker.GetDeadLetterItems(context.Background(), 10)
	assert.Error(t, err, "missing DLQ should be reported")
}
