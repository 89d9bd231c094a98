// cmd/historian drains the action queue that the game server fills and
// writes the records to Postgres, marking games that go quiet as abandoned.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/duelhub/duel/internal/config"
	"github.com/duelhub/duel/internal/database"
	"github.com/duelhub/duel/internal/historian"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()
	if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
		logger.Fatal("REDIS_ADDR and DATABASE_URL are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatalf("failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	svc := historian.NewService(rdb, database.NewLedger(pool), historian.Options{
		Queue:      cfg.HistorianQueueName,
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlushDelay,
		Inactivity: cfg.HistorianInactivity,
	}, logger)

	logger.Infof("Historian reading %s", cfg.HistorianQueueName)
	svc.Run(ctx)
	logger.Info("Historian shutdown complete.")
}
