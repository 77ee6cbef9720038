package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// takeScript refills the bucket for the time elapsed since the last refill and
// takes one token when cost is 1. With cost 0 it only reports the balance.
var takeScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])
	local cost = tonumber(ARGV[5])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local tokens_to_add = math.floor(((now - last_refill) / window) * refill_rate)
	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
		last_refill = now
	end

	if cost == 0 then
		return {1, tokens}
	end

	local allowed = 0
	if tokens >= cost then
		tokens = tokens - cost
		allowed = 1
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
	redis.call('EXPIRE', key, window * 2)
	return {allowed, tokens}
`)

// Result is the outcome of a single bucket check.
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	// ResetAfter is the window after which a drained bucket is full again.
	ResetAfter time.Duration
}

// TokenBucket is a Redis backed per-subject token bucket.
type TokenBucket struct {
	redis    *redis.Client
	capacity int64         // Maximum number of tokens
	refill   int64         // Tokens added per window
	window   time.Duration // Refill window
	now      func() time.Time
}

// NewTokenBucket creates a limiter that refills refillRate tokens per minute.
func NewTokenBucket(redisClient *redis.Client, capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		redis:    redisClient,
		capacity: capacity,
		refill:   refillRate,
		window:   time.Minute,
		now:      time.Now,
	}
}

func key(subject, action string) string {
	return fmt.Sprintf("rate_limit:%s:%s", subject, action)
}

func (tb *TokenBucket) run(ctx context.Context, subject, action string, cost int64) (Result, error) {
	raw, err := takeScript.Run(ctx, tb.redis, []string{key(subject, action)},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), tb.now().Unix(), cost).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return Result{}, fmt.Errorf("unexpected result type from rate limit script: %T", raw)
	}
	allowed, ok1 := values[0].(int64)
	remaining, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return Result{}, fmt.Errorf("unexpected result values from rate limit script: %v", values)
	}

	return Result{
		Allowed:    allowed == 1,
		Limit:      tb.capacity,
		Remaining:  remaining,
		ResetAfter: tb.window,
	}, nil
}

// Take consumes one token for subject/action if one is available.
func (tb *TokenBucket) Take(ctx context.Context, subject, action string) (Result, error) {
	return tb.run(ctx, subject, action, 1)
}

// Peek reports the balance of subject/action without consuming a token.
func (tb *TokenBucket) Peek(ctx context.Context, subject, action string) (Result, error) {
	res, err := tb.run(ctx, subject, action, 0)
	if err != nil {
		return Result{}, fmt.Errorf("failed to get remaining tokens: %w", err)
	}
	return res, nil
}
