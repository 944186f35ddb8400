package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig describes a token bucket: Capacity tokens, Refill tokens
// added every Interval.
type RateLimitConfig struct {
	Prefix   string
	Capacity int
	Refill   int
	Interval time.Duration
}

func (c RateLimitConfig) normalized() RateLimitConfig {
	if c.Capacity <= 0 {
		c.Capacity = 20
	}
	if c.Refill <= 0 {
		c.Refill = 5
	}
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.Prefix == "" {
		c.Prefix = "rl"
	}
	return c
}

// KEYS[1] bucket, ARGV: capacity, refill, interval_ms, now_ms
// returns {allowed, tokens_left, retry_after_ms}
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local data = redis.call("HMGET", key, "tokens", "last_refill_ms")
local tokens = tonumber(data[1])
local last = tonumber(data[2])
if tokens == nil then
  tokens = capacity
  last = now
end

local elapsed = now - last
if elapsed >= interval then
  local steps = math.floor(elapsed / interval)
  tokens = math.min(capacity, tokens + steps * refill)
  last = last + steps * interval
end

local allowed = 0
local retry = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  retry = interval - (now - last)
end

redis.call("HSET", key, "tokens", tokens, "last_refill_ms", last)
redis.call("PEXPIRE", key, interval * math.ceil(capacity / refill) + interval)
return {allowed, tokens, retry}
`)

// RateLimit throttles per client IP, caller and route. With a nil client, or
// whenever Redis errors, an in-process limiter takes over.
func RateLimit(rdb *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	cfg = cfg.normalized()
	local := newLocalLimiter(cfg)

	return func(c *gin.Context) {
		key := limitKey(cfg.Prefix, c)

		var (
			allowed   bool
			remaining int
			retry     time.Duration
		)
		if rdb != nil {
			var err error
			allowed, remaining, retry, err = takeRedis(c.Request.Context(), rdb, key, cfg)
			if err != nil {
				zap.L().Warn("rate limit redis error, using local limiter",
					zap.String("request_id", GetRequestID(c)), zap.Error(err))
				allowed, remaining, retry = local.take(key)
			}
		} else {
			allowed, remaining, retry = local.take(key)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			secs := int(math.Ceil(retry.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			zap.L().Warn("rate limit exceeded", zap.String("key", key), zap.String("request_id", GetRequestID(c)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too many requests",
				"code":       "rate_limited",
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}

func limitKey(prefix string, c *gin.Context) string {
	user := "anon"
	if caller := CallerFrom(c); caller.Authenticated() {
		user = strconv.FormatInt(int64(caller.UserID), 10)
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return fmt.Sprintf("%s:%s:%s:%s", prefix, c.ClientIP(), user, route)
}

func takeRedis(ctx context.Context, rdb *redis.Client, key string, cfg RateLimitConfig) (bool, int, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()

	res, err := tokenBucket.Run(ctx, rdb, []string{key},
		cfg.Capacity, cfg.Refill, cfg.Interval.Milliseconds(), time.Now().UnixMilli()).Int64Slice()
	if err != nil {
		return false, 0, 0, err
	}
	if len(res) != 3 {
		return false, 0, 0, fmt.Errorf("unexpected script reply %v", res)
	}
	return res[0] == 1, int(res[1]), time.Duration(res[2]) * time.Millisecond, nil
}

type localLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newLocalLimiter(cfg RateLimitConfig) *localLimiter {
	return &localLimiter{
		limit:    rate.Every(cfg.Interval / time.Duration(cfg.Refill)),
		burst:    cfg.Capacity,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *localLimiter) take(key string) (bool, int, time.Duration) {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	now := time.Now()
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, 0, delay
	}
	return true, int(lim.TokensAt(now)), 0
}
