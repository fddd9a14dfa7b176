package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	DBDriver    string // mysql | sqlite3
	MySQLDSN    string
	SQLitePath  string
	AutoMigrate bool
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration
	IngestFile  string
	FeedURL     string
	FeedKey     string
	FeedRPS     int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		DBDriver:    env("DB_DRIVER", "mysql"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		SQLitePath:  env("SQLITE_PATH", "data/reviews.db"),
		AutoMigrate: env("AUTO_MIGRATE", "true") == "true",
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 60)) * time.Second,
		IngestFile:  env("INGEST_FILE", "data/hostaway-sample.json"),
		FeedURL:     env("INGEST_FEED_URL", ""),
		FeedKey:     env("INGEST_FEED_KEY", ""),
		FeedRPS:     atoi("INGEST_FEED_RPS", 5),
	}
	if c.FeedURL != "" && c.FeedKey == "" {
		log.Warn().Msg("INGEST_FEED_URL set but INGEST_FEED_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
