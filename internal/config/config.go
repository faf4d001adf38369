package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	LogLevel    string
	Server      ServerConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Cache       CacheConfig
	RateLimit   RateLimitConfig
	Walkthrough WalkthroughConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI         string
	Database    string
	Collection  string
	Timeout     time.Duration
	MaxAttempts int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr is host:port, or empty when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type CacheConfig struct {
	Prefix string
	TTL    time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type WalkthroughConfig struct {
	// Parallel runs the read-only example steps as one task group.
	Parallel bool
}

// LoadConfig loads configuration from the given .env files (default ".env") and
// the environment. Missing .env files are ignored; the environment wins over them.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	_ = godotenv.Load(envFiles...)

	viper.AutomaticEnv()

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SERVER_PORT", "5020")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGODB_DATABASE", "test")
	viper.SetDefault("MONGODB_COLLECTION", "people")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("MONGODB_CONNECT_ATTEMPTS", 5)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("CACHE_PREFIX", "person:")
	viper.SetDefault("CACHE_TTL_SECONDS", 60)
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_USE_REDIS", false)
	viper.SetDefault("RATE_LIMIT_RPS", 20)
	viper.SetDefault("RATE_LIMIT_BURST", 40)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("WALKTHROUGH_PARALLEL", false)

	cfg := &Config{
		LogLevel: viper.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:         strings.TrimSpace(viper.GetString("MONGODB_URI")),
			Database:    viper.GetString("MONGODB_DATABASE"),
			Collection:  viper.GetString("MONGODB_COLLECTION"),
			Timeout:     time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
			MaxAttempts: viper.GetInt("MONGODB_CONNECT_ATTEMPTS"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			Prefix: viper.GetString("CACHE_PREFIX"),
			TTL:    time.Duration(viper.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Walkthrough: WalkthroughConfig{
			Parallel: viper.GetBool("WALKTHROUGH_PARALLEL"),
		},
	}

	if cfg.MongoDB.URI == "" {
		return nil, fmt.Errorf("MONGODB_URI must not be empty")
	}
	if cfg.MongoDB.Database == "" {
		return nil, fmt.Errorf("MONGODB_DATABASE must not be empty")
	}
	if cfg.MongoDB.Timeout <= 0 {
		return nil, fmt.Errorf("MONGODB_TIMEOUT must be positive, got %s", cfg.MongoDB.Timeout)
	}
	if cfg.MongoDB.MaxAttempts < 1 {
		cfg.MongoDB.MaxAttempts = 1
	}
	return cfg, nil
}
