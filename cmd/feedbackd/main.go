package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ncecere/feedback_assistant/internal/app"
	"github.com/ncecere/feedback_assistant/internal/config"
	"github.com/ncecere/feedback_assistant/internal/database"
	"github.com/ncecere/feedback_assistant/internal/httpserver"
	"github.com/ncecere/feedback_assistant/internal/logging"
	"github.com/ncecere/feedback_assistant/internal/redisclient"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.Options{})
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Init(cfg.Logging)

	var dbPool *pgxpool.Pool
	if cfg.Database.URL != "" {
		if err := database.RunMigrations(ctx, cfg.Database, logger); err != nil {
			fatal(logger, "run migrations", err)
		}
		dbPool, err = database.Connect(ctx, cfg.Database, logger)
		if err != nil {
			fatal(logger, "connect database", err)
		}
		defer dbPool.Close()
	} else {
		logger.Info("database.url not set, analysis history disabled")
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.Connect(ctx, cfg.Redis, logger)
		if err != nil {
			fatal(logger, "connect redis", err)
		}
		defer redisClient.Close()
	} else {
		logger.Info("redis.url not set, idempotency and rate limits disabled")
	}

	container, err := app.NewContainer(ctx, cfg, app.Options{
		DBPool: dbPool,
		Redis:  redisClient,
		Logger: logger,
	})
	if err != nil {
		fatal(logger, "build container", err)
	}
	container.Start(ctx)
	defer func() {
		if err := container.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	server, err := httpserver.New(container)
	if err != nil {
		fatal(logger, "construct server", err)
	}

	logger.Info("feedback assistant listening",
		"addr", cfg.Server.ListenAddr,
		"sentiment", cfg.Sentiment.Provider,
		"generation", cfg.Generation.Provider,
		"speech", container.Pipeline.SpeechAvailable(),
	)
	if err := server.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", "error", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
