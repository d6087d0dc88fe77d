// cmd/server/main.go
package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/dailyrumble/rumble/internal/auth"
	"github.com/dailyrumble/rumble/internal/cache"
	"github.com/dailyrumble/rumble/internal/config"
	"github.com/dailyrumble/rumble/internal/database"
	"github.com/dailyrumble/rumble/internal/engine"
	"github.com/dailyrumble/rumble/internal/feed"
	"github.com/dailyrumble/rumble/internal/handlers"
	"github.com/dailyrumble/rumble/internal/middleware"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	store := database.NewRoundStore(pool, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatalf("ensure schema: %v", err)
	}

	tokens, err := auth.NewTokens(cfg.TokenExpire)
	if err != nil {
		logger.Fatalf("init admin tokens: %v", err)
	}

	feedClient := feed.NewClient(cfg.FeedBaseURL, cfg.FeedToken, cfg.FeedTimeout, logger)

	opts := []engine.Option{engine.WithLogger(logger)}

	var roundCache *cache.RoundCache
	if rdb, err := cache.Connect(cfg.RedisAddr, cfg.RedisDB); err != nil {
		// Cache is advisory; run without it rather than refuse to start.
		logger.Warnf("redis unavailable, running without cache: %v", err)
	} else {
		defer rdb.Close()
		roundCache = cache.NewRoundCache(rdb, cfg.CacheTTL, logger)
		opts = append(opts, engine.WithCache(roundCache))
	}

	srv := handlers.NewServer(nil, tokens, cfg.AdminPasswordHash, logger)
	opts = append(opts, engine.WithNotifier(srv.Hub))

	eng := engine.New(cfg, feedClient, store, opts...)
	srv.Engine = eng

	srv.HealthCheckers["postgres"] = store.Health
	if roundCache != nil {
		srv.HealthCheckers["redis"] = roundCache.Health
	}

	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(logger))
	r.Use(middleware.CORS)

	r.Post("/admin/login", srv.LoginHandler)
	r.Post("/admin/rounds/generate", srv.GenerateRoundHandler)

	r.Get("/rounds/today", srv.CurrentRoundHandler)
	r.Get("/rounds/today/ws", srv.WatchHandler)
	r.Get("/rounds/{date}", srv.RoundByDateHandler)
	r.Post("/rounds/{date}/winner", srv.RecordWinnerHandler)

	r.Get("/leaderboard", srv.LeaderboardHandler)
	r.Get("/healthz", srv.HealthHandler)

	logger.Infof("Running on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
