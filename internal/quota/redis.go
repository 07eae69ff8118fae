package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementIfBelowScript checks and increments in one round trip so two
// concurrent callers cannot both take the last quota unit.
var incrementIfBelowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local ttl = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key)) or 0
	if current >= limit then
		return {current, 0}
	end

	local new_value = redis.call('INCR', key)
	if new_value == 1 then
		redis.call('EXPIRE', key, ttl)
	end
	return {new_value, 1}
`)

// RedisCounterStore keeps daily usage counters in Redis so all gateway
// instances share the same quota state.
type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) IncrementIfBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	result, err := incrementIfBelowScript.Run(ctx, s.client, []string{key}, limit, int(ttl.Seconds())).Slice()
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment usage counter: %w", err)
	}
	if len(result) != 2 {
		return 0, false, fmt.Errorf("unexpected script result of length %d", len(result))
	}

	value, ok := result[0].(int64)
	if !ok {
		return 0, false, fmt.Errorf("unexpected counter value type %T", result[0])
	}
	allowed, ok := result[1].(int64)
	if !ok {
		return 0, false, fmt.Errorf("unexpected allowed flag type %T", result[1])
	}
	return value, allowed == 1, nil
}

func (s *RedisCounterStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment usage counter: %w", err)
	}
	return incr.Val(), nil
}

func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	value, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	return value, nil
}
