package security

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		redis:  redisClient,
		limit:  int64(limit),
		window: window,
	}
}

// PurchaseRateLimit caps purchase attempts per client IP and ticket within the
// window. Redis failures let the request through.
func (r *RateLimiter) PurchaseRateLimit(e *core.RequestEvent) error {
	if r.isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
		return apis.NewForbiddenError("Access denied", nil)
	}
	if r.limit <= 0 {
		return e.Next()
	}

	ctx := e.Request.Context()
	key := fmt.Sprintf("ratelimit:purchase:%s:%s", e.RemoteIP(), e.Request.PathValue("key"))

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		slog.Warn("Rate limiter unavailable", "error", err)
		return e.Next()
	}
	if count == 1 {
		if err := r.redis.Expire(ctx, key, r.window).Err(); err != nil {
			slog.Warn("Failed to set rate limit window", "error", err, "key", key)
		}
	}
	if count > r.limit {
		return apis.NewApiError(http.StatusTooManyRequests, "Too many purchase attempts. Please try again later.", nil)
	}

	return e.Next()
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
