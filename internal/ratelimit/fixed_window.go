package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Increments the window counter and sets its expiry only when this call created it.
// Runs as one script so a key can never be left without a TTL.
var incrementScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Counter counts requests per key and window.
type Counter interface {
	Increment(ctx context.Context, keyID string, windowIndex int64) (int64, error)
}

// RedisCounter is a fixed window counter kept in Redis, shared by every gateway instance.
type RedisCounter struct {
	redis redis.Scripter
}

func NewRedisCounter(client redis.Scripter) *RedisCounter {
	return &RedisCounter{redis: client}
}

// CounterKey returns the Redis key holding the count of keyID in the given window.
func CounterKey(keyID string, windowIndex int64) string {
	return fmt.Sprintf("rl:%s:%d", keyID, windowIndex)
}

// Increment returns the post-increment count of the window.
func (r *RedisCounter) Increment(ctx context.Context, keyID string, windowIndex int64) (int64, error) {
	count, err := incrementScript.Run(ctx, r.redis, []string{CounterKey(keyID, windowIndex)}, windowSeconds).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment window counter: %w", err)
	}
	return count, nil
}
