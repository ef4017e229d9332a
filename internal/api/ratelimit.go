package api

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"accounts/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const msgTooManyRequests = "Too many requests from this IP, please try again in an hour!"

// RateDecision is the outcome of a single rate limit check.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter counts requests per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}

// fixedWindowScript 计数并在窗口首个请求时设置过期时间，返回 {count, ttl_ms}
var fixedWindowScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	return { current, ttl }
`)

// RedisRateLimiter is a fixed window counter shared by every instance.
type RedisRateLimiter struct {
	client redis.Scripter
	prefix string
	max    int
	window time.Duration
}

func NewRedisRateLimiter(client redis.Scripter, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: "ratelimit", max: limit, window: window}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (RateDecision, error) {
	vals, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return RateDecision{}, err
	}
	if len(vals) != 2 {
		return RateDecision{}, fmt.Errorf("unexpected rate limit script result: %v", vals)
	}
	count, ttl := vals[0], vals[1]
	decision := RateDecision{
		Allowed:   count <= int64(l.max),
		Limit:     l.max,
		Remaining: int(math.Max(0, float64(int64(l.max)-count))),
	}
	if !decision.Allowed && ttl > 0 {
		decision.RetryAfter = time.Duration(ttl) * time.Millisecond
	}
	return decision, nil
}

// maxTrackedKeys bounds the in-memory limiter table.
const maxTrackedKeys = 10000

type windowCounter struct {
	start time.Time
	count int
}

// MemoryRateLimiter is the per-process fixed window counter used when Redis
// is not configured. It counts the same way as RedisRateLimiter.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*windowCounter
	max     int
	window  time.Duration
	now     func() time.Time
}

func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Hour
	}
	return &MemoryRateLimiter{
		windows: make(map[string]*windowCounter),
		max:     limit,
		window:  window,
		now:     time.Now,
	}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, key string) (RateDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	counter, ok := l.windows[key]
	if !ok || !now.Before(counter.start.Add(l.window)) {
		if !ok && len(l.windows) >= maxTrackedKeys {
			l.sweep(now)
		}
		counter = &windowCounter{start: now}
		l.windows[key] = counter
	}
	counter.count++

	decision := RateDecision{
		Allowed:   counter.count <= l.max,
		Limit:     l.max,
		Remaining: max(0, l.max-counter.count),
	}
	if !decision.Allowed {
		decision.RetryAfter = counter.start.Add(l.window).Sub(now)
	}
	return decision, nil
}

// sweep drops windows that have already expired.
func (l *MemoryRateLimiter) sweep(now time.Time) {
	for key, counter := range l.windows {
		if !now.Before(counter.start.Add(l.window)) {
			delete(l.windows, key)
		}
	}
}

// RateLimitMiddleware 按客户端 IP 限流，限流器出错时放行
func RateLimitMiddleware(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		decision, err := limiter.Allow(c.Request.Context(), "ip:"+c.ClientIP())
		if err != nil {
			logrus.WithError(err).Warn("rate limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			secs := int(math.Ceil(decision.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(secs))
			_ = c.Error(apperr.TooManyRequests(msgTooManyRequests))
			c.Abort()
			return
		}
		c.Next()
	}
}
