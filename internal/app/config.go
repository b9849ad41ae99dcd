package app

import (
	"time"

	"github.com/yungbote/catalog-backend/internal/platform/redis"
	"github.com/yungbote/catalog-backend/internal/data/cache"
	"github.com/yungbote/catalog-backend/internal/data/db"
	"github.com/yungbote/catalog-backend/internal/platform/envutil"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	LogMode     string
	Environment string
	Version     string

	DB    db.Config
	Redis redis.Config

	SnapshotCacheTTL      time.Duration
	ValidationConcurrency int

	OtelEnabled    bool
	MetricsEnabled bool
	MetricsAddr    string
	AllowedOrigins []string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		Environment: envutil.String("APP_ENV", "local"),
		Version:     envutil.String("APP_VERSION", "dev"),
		DB:          db.ConfigFromEnv(),
		Redis: redis.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
		},
		SnapshotCacheTTL:      envutil.Duration("SNAPSHOT_CACHE_TTL", cache.DefaultTTL),
		ValidationConcurrency: envutil.Int("VALIDATION_CONCURRENCY", 8),
		OtelEnabled:           envutil.Bool("OTEL_ENABLED", false),
		MetricsEnabled:        envutil.Bool("METRICS_ENABLED", false),
		MetricsAddr:           envutil.String("METRICS_ADDR", ""),
		AllowedOrigins:        envutil.List("CORS_ALLOWED_ORIGINS", nil),
	}
	if cfg.ValidationConcurrency < 1 {
		log.Warn("VALIDATION_CONCURRENCY below 1, using 1", "value", cfg.ValidationConcurrency)
		cfg.ValidationConcurrency = 1
	}
	log.Info("config loaded",
		"port", cfg.Port,
		"db_driver", cfg.DB.Driver,
		"redis", cfg.Redis.Addr != "",
		"validation_concurrency", cfg.ValidationConcurrency,
		"otel", cfg.OtelEnabled,
		"metrics", cfg.MetricsEnabled,
	)
	return cfg
}
