// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duelhub/duel/internal/bus"
	"github.com/duelhub/duel/internal/config"
	"github.com/duelhub/duel/internal/database"
	"github.com/duelhub/duel/internal/handlers"
	"github.com/duelhub/duel/internal/historian"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := handlers.Deps{}

	if cfg.RedisAddr != "" {
		pub, rdb, err := historian.Connect(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.HistorianQueueName)
		if err != nil {
			logger.Warnf("Historian disabled: %v", err)
		} else {
			defer rdb.Close()
			deps.History = pub
			logger.Infof("Publishing actions to Redis list %s at %s", cfg.HistorianQueueName, cfg.RedisAddr)
		}
	}

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err == nil {
			err = database.Migrate(ctx, pool)
			if err != nil {
				pool.Close()
			}
		}
		if err != nil {
			logger.Warnf("Results ledger disabled: %v", err)
		} else {
			defer pool.Close()
			deps.Results = database.NewLedger(pool)
			logger.Info("Recording match results to Postgres")
		}
	}

	if cfg.NatsURL != "" {
		nc, err := bus.Connect(cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			logger.Warnf("NATS mirror disabled: %v", err)
		} else {
			defer nc.Close()
			deps.Mirror = nc
			logger.Infof("Mirroring room events to NATS at %s", cfg.NatsURL)
		}
	}

	hub := handlers.NewHub(cfg, deps, logger)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           hub.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Running on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("server shutdown: %v", err)
	}
	hub.Close()
	logger.Info("Server gracefully stopped")
}
