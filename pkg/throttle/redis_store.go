package throttle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// recordScript prunes expired members, checks the cap, and records the new
// timestamp in one atomic round trip. Member values carry a sequence
// suffix so two sends in the same microsecond stay distinct.
var recordScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
local count = redis.call("ZCARD", KEYS[1])
if count >= tonumber(ARGV[2]) then
    return {0, count}
end
redis.call("ZADD", KEYS[1], ARGV[3], ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return {1, count + 1}
`)

// RedisStore is a redis-backed sliding-window counter store for
// deployments with more than one scheduler instance.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides the default "throttle:" key prefix.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// NewRedisStore creates a redis-backed counter store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: "throttle:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) RecordIfAllowed(ctx context.Context, key string, at time.Time, window time.Duration, limit int) (bool, int64, error) {
	score := at.UnixMicro()
	member := strconv.FormatInt(score, 10) + "-" + strconv.FormatInt(at.UnixNano()%1000, 10)

	res, err := recordScript.Run(ctx, s.client,
		[]string{s.keyPrefix + key},
		at.Add(-window).UnixMicro(), limit, score, member, window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("record throttle send: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("record throttle send: unexpected script reply %v", res)
	}
	return res[0] == 1, res[1], nil
}

func (s *RedisStore) CountInWindow(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	count, err := s.client.ZCount(ctx, s.keyPrefix+key,
		strconv.FormatInt(now.Add(-window).UnixMicro(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count throttle sends: %w", err)
	}
	return count, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("reset throttle counter: %w", err)
	}
	return nil
}
