package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"guest_reviews/internal/adapters/feed"
	"guest_reviews/internal/adapters/observability"
	redisad "guest_reviews/internal/adapters/redis"
	"guest_reviews/internal/app"
	"guest_reviews/internal/domain"
	"guest_reviews/internal/shared"
	"guest_reviews/internal/storage/sqlstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	var src domain.FeedSource
	if cfg.FeedURL != "" {
		client, err := feed.New(cfg.FeedURL, cfg.FeedKey, cfg.FeedRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize feed client")
		}
		src = client
		log.Info().Str("url", cfg.FeedURL).Int("rps", cfg.FeedRPS).Msg("ingestor starting")
	} else {
		src = feed.FileSource{Path: cfg.IngestFile}
		log.Info().Str("file", cfg.IngestFile).Msg("ingestor starting")
	}

	// 2) storage
	dsn := cfg.MySQLDSN
	if cfg.DBDriver == sqlstore.SQLite.Driver || cfg.DBDriver == "sqlite" {
		dsn = sqlstore.SQLiteDSN(cfg.SQLitePath)
	}
	db, dialect, err := sqlstore.Open(ctx, cfg.DBDriver, dsn)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database open failed")
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
	}
	log.Info().Str("driver", dialect.Driver).Msg("db ping ok")

	// 3) cache is only bumped here so API readers drop stale pages
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		c := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := c.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; cache generation will not be bumped")
		} else {
			cache = c
			defer c.Close()
		}
		cancel()
	}

	ing := app.NewIngestionService(sqlstore.New(db, dialect), cache)

	start := time.Now()
	rep, err := ing.Ingest(ctx, src)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Fatal().Err(err).Str("file", cfg.IngestFile).Msg("feed file not found")
	case err != nil:
		log.Fatal().Err(err).Msg("ingestion failed")
	}

	log.Info().
		Int("created", rep.Created).
		Int("updated", rep.Updated).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Int("total", rep.Total).
		Dur("took", time.Since(start)).
		Msg("ingestion completed")
}
