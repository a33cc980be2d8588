/**
 * @description
 * This file implements the fixed-window rate limiter guarding the transfer
 * endpoint. Counting happens in Redis so the window is shared across every
 * instance of the service. The limiter is advisory infrastructure: when Redis
 * is unreachable the caller fails open rather than blocking money movement.
 *
 * @dependencies
 * - context, fmt, math, strings, time: Standard Go libraries.
 * - github.com/redis/go-redis/v9: Redis client and script support.
 */

package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// transferWindowScript counts one attempt and starts the window on the first
// hit. INCR and PEXPIRE run as one script so a crash between them cannot leave
// a counter without an expiry.
var transferWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisTransferRateLimiter enforces a per-subject transfer quota within a
// fixed window. A nil limiter or client permits everything.
type RedisTransferRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisTransferRateLimiter(client redis.UniversalClient, prefix string) *RedisTransferRateLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "ledger:rate_limit"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisTransferRateLimiter{
		client: client,
		prefix: trimmedPrefix,
	}
}

// Allow counts this attempt and reports whether the subject is still within
// its quota for the window. When the quota is exhausted, retryAfterSeconds is
// the remaining window, rounded up, for the Retry-After header.
func (r *RedisTransferRateLimiter) Allow(
	ctx context.Context,
	scope string,
	subject string,
	limit int,
	window time.Duration,
) (allowed bool, retryAfterSeconds int, err error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return true, 0, nil
	}

	normalizedScope := strings.TrimSpace(scope)
	normalizedSubject := strings.TrimSpace(subject)
	if normalizedScope == "" || normalizedSubject == "" {
		return true, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s:%s", r.prefix, normalizedScope, normalizedSubject)
	raw, err := transferWindowScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return false, 0, err
	}

	count, ttlMs, err := parseWindowReply(raw)
	if err != nil {
		return false, 0, err
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	if count <= int64(limit) {
		return true, 0, nil
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return false, retryAfter, nil
}

func parseWindowReply(raw interface{}) (count int64, ttlMs int64, err error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("transfer window script: want [count, ttl], got %T", raw)
	}
	count, ok = values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("transfer window script: count is %T, want int64", values[0])
	}
	ttlMs, ok = values[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("transfer window script: ttl is %T, want int64", values[1])
	}
	return count, ttlMs, nil
}
