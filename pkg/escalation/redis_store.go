package escalation

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// transitionScript is an atomic compare-and-set on the state key. Treats a
// missing key as not_fired so pairs need no initialization write.
var transitionScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false then
    current = ARGV[1]
end
if current ~= ARGV[2] then
    return 0
end
redis.call("SET", KEYS[1], ARGV[3], "PX", ARGV[4])
return 1
`)

// RedisStore is a redis-backed escalation state store. State keys expire
// with the audit retention period.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides the default "escalation:" key prefix.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// NewRedisStore creates a redis-backed escalation state store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: "escalation:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) State(ctx context.Context, notificationID, ruleID string) (State, error) {
	val, err := s.client.Get(ctx, s.key(notificationID, ruleID)).Result()
	if err != nil {
		if err == redis.Nil {
			return StateNotFired, nil
		}
		return "", fmt.Errorf("get escalation state: %w", err)
	}
	return State(val), nil
}

func (s *RedisStore) Transition(ctx context.Context, notificationID, ruleID string, from, to State) (bool, error) {
	res, err := transitionScript.Run(ctx, s.client,
		[]string{s.key(notificationID, ruleID)},
		string(StateNotFired), string(from), string(to), stateTTL.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("transition escalation state: %w", err)
	}
	return res == 1, nil
}

func (s *RedisStore) key(notificationID, ruleID string) string {
	return s.keyPrefix + notificationID + ":" + ruleID
}
