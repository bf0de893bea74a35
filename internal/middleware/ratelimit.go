package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter implements fixed-window rate limiting backed by Redis, so the
// limit holds across replicas.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{redis: rdb, limit: limit, window: window}
}

// Allow reports whether another request from key fits in the current window.
// On a Redis failure the request is allowed: rate limiting degrades open.
func (r *RateLimiter) Allow(c *gin.Context, key string) bool {
	window := time.Now().Unix() / int64(r.window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, window)

	count, err := r.redis.Incr(c.Request.Context(), redisKey).Result()
	if err != nil {
		log.Printf("ratelimit: redis unavailable, allowing request: %v", err)
		return true
	}
	if count == 1 {
		r.redis.Expire(c.Request.Context(), redisKey, r.window)
	}
	return count <= int64(r.limit)
}

// RateLimit enforces the per-IP request limit.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c, c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
