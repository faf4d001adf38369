package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/people/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimitMiddleware is a fixed-window limiter shared by every API replica.
// It INCRs "rl:<client>:<window>" and rejects once the count passes
// floor(rps*window)+burst. Without a client it falls back to the in-memory limiter.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	windowSeconds := int64(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowed := int64(rps*float64(windowSeconds)) + int64(burst)
	ttl := time.Duration(windowSeconds+1) * time.Second
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("rl:%s:%d", clientKey(c), time.Now().Unix()/windowSeconds)

		cnt, err := client.Incr(ctx, key).Result()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			return
		}
		if cnt == 1 {
			_ = client.Expire(ctx, key, ttl).Err()
		}
		if cnt > allowed {
			reject(c, "redis", strconv.FormatInt(windowSeconds, 10))
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
