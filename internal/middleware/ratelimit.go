package middleware

import (
    "context"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/zone-explorer/internal/config"
)

// tokenBucketScript refills KEYS[1] by whole intervals, then takes one
// token.  ARGV: now_ms, capacity, refill_tokens, interval_ms, ttl_s.
// Returns {allowed, tokens_left, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local now, cap, refill, every, ttl =
    tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local st = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill_ms')
local tokens, last = tonumber(st[1]), tonumber(st[2])
if tokens == nil or last == nil then
    tokens, last = cap, now
end
local steps = math.floor(math.max(0, now - last) / every)
if steps > 0 then
    tokens = math.min(cap, tokens + steps * refill)
    last = last + steps * every
end
local allowed, wait = 0, 0
if tokens > 0 then
    allowed, tokens = 1, tokens - 1
else
    wait = math.max(0, every - (now - last))
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, tokens, wait}
`)

// bucketTake is the outcome of one token request.
type bucketTake struct {
    Allowed    bool
    Remaining  int64
    RetryAfter time.Duration
}

// tokenBucket takes tokens from per-key buckets stored in Redis.
type tokenBucket struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
}

func (b tokenBucket) take(ctx context.Context, key string, now time.Time) (bucketTake, error) {
    vals, err := tokenBucketScript.Run(ctx, b.rdb, []string{key},
        now.UnixMilli(),
        b.cfg.Capacity,
        b.cfg.RefillTokens,
        b.cfg.RefillInterval.Milliseconds(),
        int64(b.cfg.TTL/time.Second),
    ).Int64Slice()
    if err != nil {
        return bucketTake{}, err
    }
    if len(vals) != 3 {
        return bucketTake{}, fmt.Errorf("token bucket: unexpected result %v", vals)
    }
    return bucketTake{
        Allowed:    vals[0] == 1,
        Remaining:  vals[1],
        RetryAfter: time.Duration(vals[2]) * time.Millisecond,
    }, nil
}

// NewTokenBucket limits requests with a Redis token bucket.  Redis errors
// let the request through: a broken limiter must not stop check-ins.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    if log == nil {
        log = zap.NewNop()
    }
    bucket := tokenBucket{cfg: cfg, rdb: rdb}

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            res, err := bucket.take(c.Request().Context(), key, time.Now())
            if err != nil {
                log.Warn("ratelimit: redis error", zap.String("key", key), zap.Error(err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
            if res.Allowed {
                return next(c)
            }

            secs := int(math.Ceil(res.RetryAfter.Seconds()))
            h.Set("Retry-After", strconv.Itoa(secs))
            log.Info("ratelimit: blocked", zap.String("key", key), zap.Duration("retry_after", res.RetryAfter))
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too_many_requests",
                "message":     "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

// buildRateKey composes the bucket key.  "caller" identifies the visitor
// cookie or admin subject; "ip" the client address; "route" the matched
// route pattern.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    caller := callerKey(c)
    route := c.Request().Method + " " + c.Path()

    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = []string{"ip", ip}
    case "caller":
        parts = []string{caller}
    case "route":
        parts = []string{"route", route}
    case "ip_caller":
        parts = []string{"ip", ip, caller}
    case "ip_route":
        parts = []string{"ip", ip, "route", route}
    case "caller_route":
        parts = []string{caller, "route", route}
    default:
        parts = []string{"ip", ip, caller, "route", route}
    }
    return cfg.Prefix + ":" + strings.Join(parts, ":")
}
