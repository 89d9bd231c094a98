// Package config reads server settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port           string   `env:"PORT"            envDefault:"8080"`
	LogLevel       string   `env:"LOG_LEVEL"       envDefault:"info"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	// RateLimit is requests per minute per IP on the HTTP lobby API.
	RateLimit int `env:"RATE_LIMIT" envDefault:"60"`

	// Optional sinks; empty disables them.
	RedisAddr          string `env:"REDIS_ADDR"`
	RedisDB            int    `env:"REDIS_DB"             envDefault:"0"`
	HistorianQueueName string `env:"HISTORIAN_QUEUE_NAME" envDefault:"duel_actions"`
	DatabaseURL        string `env:"DATABASE_URL"`
	NatsURL            string `env:"NATS_URL"`
	NatsToken          string `env:"NATS_TOKEN"`

	ArtilleryTurnTime    time.Duration `env:"ARTILLERY_TURN_TIME"    envDefault:"30s"`
	ArtilleryTurnDelay   time.Duration `env:"ARTILLERY_TURN_DELAY"   envDefault:"1s"`
	ArtilleryCleanupTime time.Duration `env:"ARTILLERY_CLEANUP_TIME" envDefault:"5s"`
	GooseBoardLength     int           `env:"GOOSE_BOARD_LENGTH"     envDefault:"50"`

	// Historian service tuning.
	HistorianBatchSize  int           `env:"HISTORIAN_BATCH_SIZE"  envDefault:"20"`
	HistorianFlushDelay time.Duration `env:"HISTORIAN_FLUSH_DELAY" envDefault:"500ms"`
	HistorianInactivity time.Duration `env:"HISTORIAN_INACTIVITY"  envDefault:"10m"`
}

// Load parses the environment into a Config and checks it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.GooseBoardLength < 20 {
		return fmt.Errorf("GOOSE_BOARD_LENGTH must be at least 20, got %d", c.GooseBoardLength)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive, got %d", c.RateLimit)
	}
	if c.ArtilleryTurnDelay < 0 || c.ArtilleryTurnTime < 0 || c.ArtilleryCleanupTime < 0 {
		return fmt.Errorf("artillery durations must not be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// NewLogger builds the process logger at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}
