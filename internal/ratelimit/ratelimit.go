// Package ratelimit provides a Redis-backed fixed-window limiter for the
// public write endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/equihome/launchpad/internal/pkg/httputil"
	"github.com/equihome/launchpad/internal/pkg/logger"
)

// Increments the window counter and sets its expiry on first hit, so the
// check and the increment cannot interleave between callers.
const windowLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = redis.call("INCR", key)
if current == 1 then
    redis.call("PEXPIRE", key, ttl)
end

if current > limit then
    return {0, current}
end
return {1, current}
`

// Limiter allows at most Limit hits per key in each Window.
type Limiter struct {
	redis  redis.Scripter
	script *redis.Script
	limit  int
	window time.Duration
	prefix string
}

// New creates a limiter over an existing Redis client.
func New(client redis.Scripter, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		redis:  client,
		script: redis.NewScript(windowLuaScript),
		limit:  limit,
		window: window,
		prefix: "launchpad:ratelimit",
	}
}

// NewFromURL connects to Redis and returns a limiter plus the client, which
// the caller owns and should close.
func NewFromURL(ctx context.Context, redisURL string, limit int, window time.Duration) (*Limiter, *redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return New(client, limit, window), client, nil
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().UnixMilli() / l.window.Milliseconds()
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	result, err := l.script.Run(ctx, l.redis, []string{redisKey}, l.limit, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return result[0] == 1, nil
}

// Middleware limits requests per client IP. A nil limiter lets every request
// through; Redis errors fail open.
func (l *Limiter) Middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + clientIP(r)
			allowed, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(l.window.Seconds())))
				httputil.Error(w, http.StatusTooManyRequests, "rate_limited", "Too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
