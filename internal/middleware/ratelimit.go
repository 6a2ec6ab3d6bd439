package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/smartlib/library-api/internal/config"
)

// tokenBucketScript refills and consumes a bucket atomically.
// KEYS[1] bucket hash, ARGV: capacity, refill tokens, refill interval ms, now ms.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_tokens = tonumber(ARGV[2])
local refill_ms = tonumber(ARGV[3])
local now_ms = tonumber(ARGV[4])

local data = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(data[1])
local last = tonumber(data[2])
if tokens == nil then
  tokens = capacity
  last = now_ms
end

if now_ms > last then
  local elapsed = now_ms - last
  local refills = math.floor(elapsed / refill_ms)
  if refills > 0 then
    tokens = math.min(capacity, tokens + refills * refill_tokens)
    last = last + refills * refill_ms
  end
end

local allowed = 0
local retry_after = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  retry_after = refill_ms - (now_ms - last)
end

redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last)
redis.call('PEXPIRE', key, refill_ms * 2 + 60000)

return {allowed, tokens, retry_after}
`)

// currentUserID reads the authenticated user id set by JWTAuth, or
// "anon" on public routes.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case uint64:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case int:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%d", uint64(v))
	case string:
		if v != "" {
			return v
		}
	}
	return "anon"
}

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	user := currentUserID(c)
	route := c.Path()
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		return cfg.Prefix + ":ip:" + ip
	case "user":
		return cfg.Prefix + ":user:" + user
	case "route":
		return cfg.Prefix + ":route:" + route
	case "ip_user":
		return cfg.Prefix + ":ip:" + ip + ":user:" + user
	case "ip_route":
		return cfg.Prefix + ":ip:" + ip + ":route:" + route
	case "user_route":
		return cfg.Prefix + ":user:" + user + ":route:" + route
	default:
		return cfg.Prefix + ":ip:" + ip + ":user:" + user + ":route:" + route
	}
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		var out int64
		fmt.Sscanf(n, "%d", &out)
		return out
	default:
		return 0
	}
}

// NewTokenBucket limits request rates with a Redis token bucket.
// Mainly guards the auth endpoints against credential stuffing; with
// limiting disabled or no Redis client it is a pass-through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := rateKey(cfg, c)
			nowMS := time.Now().UnixMilli()

			res, err := tokenBucketScript.Run(ctx, rdb, []string{key},
				cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), nowMS).Result()
			if err != nil {
				// Redis trouble must not take the API down.
				return next(c)
			}

			vals, ok := res.([]interface{})
			if !ok || len(vals) != 3 {
				return next(c)
			}
			allowed := asInt64(vals[0]) == 1
			remaining := asInt64(vals[1])
			retryAfterMS := asInt64(vals[2])

			c.Response().Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.Capacity))
			c.Response().Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

			if !allowed {
				retrySec := (retryAfterMS + 999) / 1000
				if retrySec < 1 {
					retrySec = 1
				}
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", retrySec))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":          "too many requests",
					"retry_after_ms": retryAfterMS,
				})
			}
			return next(c)
		}
	}
}
