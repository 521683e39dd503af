package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces rate limit counters.
const DefaultRedisKeyPrefix = "speciesid:ratelimit:"

// fixedWindowScript increments the counter and starts the window on first
// use. It returns {count, pttl}.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisRateLimitStore is a fixed window RateLimitStore shared across
// instances. Redis failures fail open.
type RedisRateLimitStore struct {
	client  redis.Scripter
	prefix  string
	metrics *Metrics
	logger  *slog.Logger
}

// RedisOption configures a RedisRateLimitStore.
type RedisOption func(*RedisRateLimitStore)

// WithRedisMetrics counts fail-open events.
func WithRedisMetrics(m *Metrics) RedisOption {
	return func(s *RedisRateLimitStore) { s.metrics = m }
}

// WithRedisLogger sets the logger used for fail-open warnings.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(s *RedisRateLimitStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRedisKeyPrefix overrides DefaultRedisKeyPrefix.
func WithRedisKeyPrefix(prefix string) RedisOption {
	return func(s *RedisRateLimitStore) { s.prefix = prefix }
}

// NewRedisRateLimitStore creates a store backed by client.
func NewRedisRateLimitStore(client redis.Scripter, opts ...RedisOption) *RedisRateLimitStore {
	s := &RedisRateLimitStore{
		client: client,
		prefix: DefaultRedisKeyPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow implements RateLimitStore.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int, int) {
	count, ttl, err := s.incr(ctx, s.prefix+key, config.WindowDuration)
	if err != nil {
		s.metrics.IncRateLimitRedisErrors()
		s.logger.WarnContext(ctx, "rate limit store unavailable, allowing request",
			slog.String("error", err.Error()))
		return true, config.RequestsPerWindow, 0
	}

	if count > int64(config.RequestsPerWindow) {
		return false, 0, retryAfterSeconds(ttl)
	}
	return true, config.RequestsPerWindow - int(count), 0
}

func (s *RedisRateLimitStore) incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := fixedWindowScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit script reply: %v", res)
	}
	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}
