// Command people-api serves the person operations over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/people/internal/config"
	"github.com/gogotex/people/internal/database"
	"github.com/gogotex/people/internal/export"
	"github.com/gogotex/people/internal/person/handler"
	"github.com/gogotex/people/internal/person/repository"
	"github.com/gogotex/people/internal/person/service"
	"github.com/gogotex/people/internal/storage"
	"github.com/gogotex/people/pkg/logger"
	"github.com/gogotex/people/pkg/metrics"
	"github.com/gogotex/people/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	var redisClient *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		c := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = c.Close()
		} else {
			logger.Infof("connected to Redis at %s", addr)
			redisClient = c
			defer func() { _ = redisClient.Close() }()
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Prefer MongoDB; fall back to memory so the API stays usable in development.
	var repo repository.Repository
	mongoUp := false
	db, err := database.Open(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Timeout, cfg.MongoDB.MaxAttempts)
	if err != nil {
		logger.Warnf("%v - using memory-backed repository", err)
		repo = repository.NewMemoryRepo()
	} else {
		defer func() { _ = db.Close(context.Background()) }()
		mrepo := repository.NewMongoRepo(db.Collection(cfg.MongoDB.Collection))
		if err := mrepo.EnsureSchema(ctx); err != nil {
			logger.Warnf("could not install collection validator: %v", err)
		}
		repo = mrepo
		mongoUp = true
	}
	if redisClient != nil {
		repo = repository.NewCachedRepo(repo, redisClient, cfg.Cache.Prefix, cfg.Cache.TTL)
	}
	svc := service.New(repo)

	var exporter *export.Exporter
	if mcfg := storage.LoadMinIOConfig(); mcfg.Enabled() {
		st, err := storage.NewMinIOStorage(ctx, mcfg)
		if err != nil {
			logger.Warnf("export disabled: %v", err)
		} else {
			exporter = export.New(svc, st, 15*time.Minute)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{"mongodb": mongoUp, "redis": cfg.Redis.Addr() == "" || redisClient != nil}
		status, code := "ready", http.StatusOK
		if !mongoUp {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	handler.New(svc, exporter).Register(r)
	handler.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("people-api listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
