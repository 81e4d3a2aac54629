package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/supplier-portal/internal"
	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills whole intervals since the last refill, takes one
// token when available and returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + (intervals * refill_tokens))
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

type RateLimitConfig struct {
	Prefix         string
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
}

// RateLimitObserver is told about every rejected request.
type RateLimitObserver interface {
	ObserveRateLimited(route string)
}

// RouteLimiter hands out the limiting middleware for one named route.
type RouteLimiter interface {
	Middleware(route string) func(http.Handler) http.Handler
}

// RateLimiter is a Redis token bucket keyed by client IP and route.
type RateLimiter struct {
	cfg      RateLimitConfig
	rdb      redis.Scripter
	logger   *slog.Logger
	observer RateLimitObserver
	now      func() time.Time
}

func NewRateLimiter(cfg RateLimitConfig, rdb redis.Scripter, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		cfg:    cfg,
		rdb:    rdb,
		logger: logger,
		now:    time.Now,
	}
}

func (rl *RateLimiter) SetObserver(o RateLimitObserver) {
	rl.observer = o
}

type rateDecision struct {
	allowed    bool
	remaining  int64
	retryAfter time.Duration
}

func (rl *RateLimiter) take(ctx context.Context, key string) (rateDecision, error) {
	args := []interface{}{
		rl.now().UnixMilli(),
		rl.cfg.Capacity,
		rl.cfg.RefillTokens,
		rl.cfg.RefillInterval.Milliseconds(),
		int64(rl.cfg.TTL / time.Second),
	}

	vals, err := tokenBucketScript.Run(ctx, rl.rdb, []string{key}, args...).Int64Slice()
	if err != nil {
		return rateDecision{}, err
	}
	if len(vals) != 3 {
		return rateDecision{}, redis.Nil
	}

	return rateDecision{
		allowed:    vals[0] == 1,
		remaining:  vals[1],
		retryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// Middleware fails open: a Redis error lets the request through.
func (rl *RateLimiter) Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.key(r, route)

			decision, err := rl.take(r.Context(), key)
			if err != nil {
				rl.logger.WarnContext(r.Context(), "rate limiter unavailable", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Capacity))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.remaining, 10))

			if !decision.allowed {
				secs := int(math.Ceil(decision.retryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				if rl.observer != nil {
					rl.observer.ObserveRateLimited(route)
				}
				rl.logger.InfoContext(r.Context(), "rate limit exceeded", "key", key, "retry_after_s", secs)
				writeTooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) key(r *http.Request, route string) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if ip == "" {
		ip = "unknown"
	}
	return strings.Join([]string{rl.cfg.Prefix, "ip", ip, "route", route}, ":")
}

// LocalRateLimiter is the in-process fallback when Redis cannot be reached.
// Each route allows Capacity requests per client IP within the time the
// token bucket would need to refill completely. Counters are per instance.
type LocalRateLimiter struct {
	cfg      RateLimitConfig
	logger   *slog.Logger
	observer RateLimitObserver
}

func NewLocalRateLimiter(cfg RateLimitConfig, logger *slog.Logger) *LocalRateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalRateLimiter{cfg: cfg, logger: logger}
}

func (l *LocalRateLimiter) SetObserver(o RateLimitObserver) {
	l.observer = o
}

func (l *LocalRateLimiter) Middleware(route string) func(http.Handler) http.Handler {
	return httprate.Limit(l.cfg.Capacity, l.window(),
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if l.observer != nil {
				l.observer.ObserveRateLimited(route)
			}
			l.logger.InfoContext(r.Context(), "rate limit exceeded", "route", route, "limiter", "local")
			writeTooManyRequests(w)
		}),
	)
}

func (l *LocalRateLimiter) window() time.Duration {
	if l.cfg.RefillTokens <= 0 || l.cfg.RefillInterval <= 0 {
		return time.Minute
	}
	refills := (l.cfg.Capacity + l.cfg.RefillTokens - 1) / l.cfg.RefillTokens
	if refills < 1 {
		refills = 1
	}
	return time.Duration(refills) * l.cfg.RefillInterval
}

func writeTooManyRequests(w http.ResponseWriter) {
	status, body := internal.ErrTooManyRequests.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
