package security

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis  *redis.Client
	window time.Duration
	limit  int
}

func NewRateLimiter(redisClient *redis.Client, perMinute int) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		window: time.Minute,
		limit:  perMinute,
	}
}

// Limit wraps a handler with a fixed-window counter keyed by client
// IP. Redis being down fails open: throttling is not worth a 500.
func (r *RateLimiter) Limit(next func(*core.RequestEvent) error) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if r.isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
			return e.JSON(http.StatusForbidden, map[string]string{
				"message": "Access denied",
			})
		}

		if !r.allow(e.Request.Context(), e.RealIP()) {
			return e.JSON(http.StatusTooManyRequests, map[string]string{
				"message": "Rate limit exceeded. Please try again later.",
			})
		}

		return next(e)
	}
}

func (r *RateLimiter) allow(ctx context.Context, ip string) bool {
	key := fmt.Sprintf("ratelimit:%s", ip)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		r.redis.Expire(ctx, key, r.window)
	}
	return count <= int64(r.limit)
}

func (r *RateLimiter) isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
