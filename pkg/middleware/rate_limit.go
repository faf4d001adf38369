package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/people/pkg/metrics"
	"golang.org/x/time/rate"
)

// limiterStore lazily creates one token bucket per client key.
type limiterStore struct {
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newLimiterStore(rps float64, burst int) *limiterStore {
	return &limiterStore{rps: rate.Limit(rps), burst: burst, limiters: map[string]*rate.Limiter{}}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.limiters[key]
	if !ok {
		lim = rate.NewLimiter(s.rps, s.burst)
		s.limiters[key] = lim
	}
	return lim
}

// clientKey identifies the caller by IP.
func clientKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func reject(c *gin.Context, limiter, retryAfter string) {
	c.Header("Retry-After", retryAfter)
	metrics.RateLimitRejected.WithLabelValues(limiter).Inc()
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
}

// RateLimitMiddleware enforces an in-process token bucket per client IP.
// rps = allowed events per second, burst = maximum tokens in bucket.
// Each returned middleware has its own buckets.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	store := newLimiterStore(rps, burst)
	return func(c *gin.Context) {
		if !store.get(clientKey(c)).Allow() {
			reject(c, "memory", "1")
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
