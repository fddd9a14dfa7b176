package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"guest_reviews/internal/adapters/feed"
	server "guest_reviews/internal/adapters/http_server"
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

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, dialect, err := sqlstore.Open(ctx, cfg.DBDriver, dsnFor(cfg))
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database open failed")
	}
	defer db.Close()
	log.Info().Str("driver", dialect.Driver).Msg("database connection ok")

	if cfg.AutoMigrate {
		if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
	}

	// deps
	repo := sqlstore.New(db, dialect)
	cache := openCache(ctx, cfg)
	q := app.NewQueryService(repo, cache, cfg.CacheTTL)
	m := app.NewModerationService(repo, cache)
	ing := app.NewIngestionService(repo, cache)

	// http
	srv := server.New(15 * time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, M: m, I: ing, Feed: feedSource(cfg)})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

func dsnFor(cfg shared.Config) string {
	if cfg.DBDriver == sqlstore.SQLite.Driver || cfg.DBDriver == "sqlite" {
		return sqlstore.SQLiteDSN(cfg.SQLitePath)
	}
	return cfg.MySQLDSN
}

// openCache returns nil when Redis is unreachable; queries then hit the db.
func openCache(ctx context.Context, cfg shared.Config) domain.Cache {
	if cfg.RedisAddr == "" {
		return nil
	}
	c := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; caching disabled")
		_ = c.Close()
		return nil
	}
	return c
}

func feedSource(cfg shared.Config) domain.FeedSource {
	if cfg.FeedURL != "" {
		client, err := feed.New(cfg.FeedURL, cfg.FeedKey, cfg.FeedRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize feed client")
		}
		return client
	}
	return feed.FileSource{Path: cfg.IngestFile}
}
