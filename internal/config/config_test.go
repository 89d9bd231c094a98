package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 50, cfg.GooseBoardLength)
	assert.Equal(t, 30*time.Second, cfg.ArtilleryTurnTime)
	assert.Equal(t, time.Second, cfg.ArtilleryTurnDelay)
	assert.Equal(t, "duel_actions", cfg.HistorianQueueName)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("GOOSE_BOARD_LENGTH", "63")
	t.Setenv("ARTILLERY_TURN_TIME", "45s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 63, cfg.GooseBoardLength)
	assert.Equal(t, 45*time.Second, cfg.ArtilleryTurnTime)
	assert.Equal(t, logrus.DebugLevel, cfg.NewLogger().GetLevel())
}

func TestLoadRejectsBadValues(t *testing.T) {
	for key, val := range map[string]string{
		"GOOSE_BOARD_LENGTH": "5",
		"RATE_LIMIT":         "0",
		"LOG_LEVEL":          "loud",
		"REDIS_DB":           "one",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
