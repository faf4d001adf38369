package middleware

import (
	"net/http"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimitMiddleware_Basic(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	r := gin.New()
	// a long window keeps both requests in the same bucket
	r.Use(RedisRateLimitMiddleware(client, 0, 1, time.Hour))
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, serve(r, "/r", ""))
	require.Equal(t, http.StatusTooManyRequests, serve(r, "/r", ""))

	// expiring the bucket key resets the count
	m.FastForward(2 * time.Hour)
	require.Equal(t, http.StatusOK, serve(r, "/r", ""))
}

func TestRedisRateLimitMiddleware_FailsClosedWhenRedisDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	m.Close()

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 10, 10, time.Second))
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusInternalServerError, serve(r, "/r", ""))
}

func TestRedisRateLimitMiddleware_NilClientFallsBack(t *testing.T) {
	r := gin.New()
	r.Use(RedisRateLimitMiddleware(nil, 0.5, 1, time.Second))
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, serve(r, "/r", ""))
	require.Equal(t, http.StatusTooManyRequests, serve(r, "/r", ""))
}
