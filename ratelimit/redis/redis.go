// Package redis provides a fixed-window rate limiter backed by Redis,
// for deployments where admission budgets must hold across processes.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/adorahq/companion-go-sdk/ratelimit"
)

// admitScript checks and increments the identity's window counter
// atomically. The counter is only incremented when the request is
// admitted, so throttled requests leave no trace.
//
// KEYS[1] = window start key, KEYS[2] = counter key
// ARGV[1] = now (unix seconds), ARGV[2] = window seconds, ARGV[3] = max requests
//
// Returns {admitted, count}.
const admitScript = `
local window_key = KEYS[1]
local counter_key = KEYS[2]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

local start = redis.call('GET', window_key)
if not start or (now - tonumber(start)) >= window then
    redis.call('SET', window_key, tostring(now), 'EX', window)
    redis.call('SET', counter_key, 1, 'EX', window)
    return {1, 1}
end

local count = tonumber(redis.call('GET', counter_key) or '0')
if count >= max then
    return {0, count}
end

count = redis.call('INCR', counter_key)
if redis.call('TTL', counter_key) == -1 then
    redis.call('EXPIRE', counter_key, window)
end
return {1, count}
`

// Limiter is a distributed fixed-window limiter. All processes sharing
// the Redis instance share one budget per identity.
type Limiter struct {
	client   goredis.UniversalClient
	script   *goredis.Script
	cfg      ratelimit.Config
	failOpen bool
}

// Option configures the limiter.
type Option func(*Limiter)

// WithFailOpen admits requests when the Redis backend is unreachable.
// The default is fail-closed.
func WithFailOpen() Option {
	return func(l *Limiter) {
		l.failOpen = true
	}
}

// New creates a Redis-backed limiter with the given budget.
func New(client goredis.UniversalClient, cfg ratelimit.Config, opts ...Option) *Limiter {
	if cfg.MaxRequests <= 0 || cfg.Window <= 0 {
		cfg = ratelimit.DefaultConfig()
	}
	l := &Limiter{
		client: client,
		script: goredis.NewScript(admitScript),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow admits or throttles the identity against the shared window.
// On a backend error the limiter fails closed unless WithFailOpen was
// set; either way the error is returned for the caller to log.
func (l *Limiter) Allow(ctx context.Context, identity string) (bool, error) {
	// Hash-tag the identity so both keys land on the same cluster node.
	tag := fmt.Sprintf("{%s}:requests", identity)
	keys := []string{tag + ":window", tag + ":count"}
	args := []interface{}{
		time.Now().Unix(),
		int64(l.cfg.Window.Seconds()),
		l.cfg.MaxRequests,
	}

	val, err := l.script.Run(ctx, l.client, keys, args...).Result()
	if err != nil {
		log.Printf("[RATELIMIT] redis admission check failed (fail_open=%v): %v", l.failOpen, err)
		return l.failOpen, err
	}

	results, ok := val.([]interface{})
	if !ok || len(results) != 2 {
		err := fmt.Errorf("unexpected result from admission script: %T", val)
		return l.failOpen, err
	}

	admitted, _ := results[0].(int64)
	return admitted == 1, nil
}
