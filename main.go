package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/movieguess/apps/go-server/assets"
	"github.com/robalobadob/movieguess/apps/go-server/internal/config"
	"github.com/robalobadob/movieguess/apps/go-server/internal/database"
	"github.com/robalobadob/movieguess/apps/go-server/internal/httpserver"
	"github.com/robalobadob/movieguess/apps/go-server/internal/store"
	"github.com/robalobadob/movieguess/apps/go-server/internal/tmdb"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	if !cfg.HasTMDBCredentials() {
		log.Warn().Msg("TMDB_API_KEY / TMDB_READ_TOKEN not set; movie lookups will fail")
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	cancel()

	st, opts := openStore(cfg)

	client := tmdb.New(tmdb.Options{
		BaseURL:   cfg.TMDBBaseURL,
		APIKey:    cfg.TMDBAPIKey,
		ReadToken: cfg.TMDBReadToken,
		Timeout:   cfg.TMDBTimeout,
	})

	srv := httpserver.New(cfg, st, db, client, opts...)
	log.Info().Str("port", cfg.Port).Msg("starting go-server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// openStore uses Redis when REDIS_ADDR is set and falls back to process memory.
// With Redis, per-game locks live in Redis too.
func openStore(cfg config.Config) (store.Store, []httpserver.Option) {
	if cfg.RedisAddr == "" {
		log.Info().Msg("game store: memory")
		return store.NewMemoryStore(), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("game store: redis")
	return store.NewRedisStore(rdb, cfg.SessionTTL),
		[]httpserver.Option{httpserver.WithLocker(store.NewRedisLocker(rdb, store.DefaultLockTTL))}
}
