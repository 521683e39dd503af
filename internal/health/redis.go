// Package health provides readiness checks for the service's dependencies.
package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Checker is a named readiness check.
type Checker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// RedisChecker checks the rate limit Redis with PING.
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

// Name implements Checker.
func (r *RedisChecker) Name() string { return "redis" }

// HealthCheck sends PING.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
