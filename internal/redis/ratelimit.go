package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Rate limiting key pattern:
// - ratelimit:{ip}:auth - window TTL, auth attempts per window

// RateLimitConfig contains configuration for rate limiting
type RateLimitConfig struct {
	AuthLimit  int           // Max auth attempts per window
	AuthWindow time.Duration // Auth rate limit window
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		AuthLimit:  5, // 5 auth attempts per minute
		AuthWindow: 60 * time.Second,
	}
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed   bool          // Whether the action is allowed
	Remaining int           // Remaining actions in the window
	ResetIn   time.Duration // Time until the window resets
	Limit     int           // The limit for this action
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
	}
}

// INCR and EXPIRE run atomically so concurrent attempts cannot both slip under the limit.
var limitScript = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if ttl == window then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	else
		return {0, 0, ttl}
	end
`)

// AllowAuth checks if an IP can make an auth attempt
func (r *RateLimiter) AllowAuth(ctx context.Context, ip string) (*RateLimitResult, error) {
	return r.checkLimit(ctx, authKey(ip), r.config.AuthLimit, r.config.AuthWindow)
}

// checkLimit performs the actual rate limit check using a fixed window counter
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	result, err := limitScript.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}

	allowed, ok1 := resultSlice[0].(int64)
	remaining, ok2 := resultSlice[1].(int64)
	resetIn, ok3 := resultSlice[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("unexpected rate limit result types")
	}

	return &RateLimitResult{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetIn:   time.Duration(resetIn) * time.Second,
		Limit:     limit,
	}, nil
}

// ResetAuth resets auth rate limit for an IP
func (r *RateLimiter) ResetAuth(ctx context.Context, ip string) error {
	return r.client.Del(ctx, authKey(ip)).Err()
}

// GetAuthStatus returns current auth rate limit status without consuming
func (r *RateLimiter) GetAuthStatus(ctx context.Context, ip string) (*RateLimitResult, error) {
	key := authKey(ip)
	limit := r.config.AuthLimit

	pipe := r.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		return nil, err
	}

	current := 0
	if val, err := getCmd.Int(); err == nil {
		current = val
	}

	ttl := r.config.AuthWindow
	if ttlVal := ttlCmd.Val(); ttlVal > 0 {
		ttl = ttlVal
	}

	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{
		Allowed:   current < limit,
		Remaining: remaining,
		ResetIn:   ttl,
		Limit:     limit,
	}, nil
}

func authKey(ip string) string {
	return fmt.Sprintf("ratelimit:%s:auth", ip)
}
