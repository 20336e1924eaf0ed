package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Contains(t, cfg.DB.DSN, "@tcp(localhost:3306)/chatible")
	assert.Equal(t, 15*time.Minute, cfg.Chat.MaxWait)
	assert.Equal(t, time.Minute, cfg.Chat.SweepInterval)
	assert.Equal(t, 20, cfg.Chat.OverflowThreshold)
	assert.InDelta(t, 0.2, cfg.Chat.UnknownMatchProbability, 1e-9)
	assert.Equal(t, 20, cfg.Chat.CommandMaxLen)
	assert.False(t, cfg.Chat.Maintenance)
	assert.False(t, cfg.Development())
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", "dev")
	t.Setenv("CHAT_MAX_WAIT", "90s")
	t.Setenv("CHAT_OVERFLOW_THRESHOLD", "5")
	t.Setenv("CHAT_UNKNOWN_MATCH_PROBABILITY", "0")
	t.Setenv("CHAT_MAINTENANCE", "yes")
	t.Setenv("GIFT_HOTBOY_URLS", "https://a/1.jpg, ,https://a/2.jpg")
	t.Setenv("MESSENGER_GRAPH_URL", "http://graph.local/")

	cfg := New()

	assert.True(t, cfg.Development())
	assert.Equal(t, "dev.db", cfg.DB.DSN)
	assert.Equal(t, 90*time.Second, cfg.Chat.MaxWait)
	assert.Equal(t, 5, cfg.Chat.OverflowThreshold)
	assert.Zero(t, cfg.Chat.UnknownMatchProbability)
	assert.True(t, cfg.Chat.Maintenance)
	assert.Equal(t, []string{"https://a/1.jpg", "https://a/2.jpg"}, cfg.Gifts.HotBoyURLs)
	assert.Equal(t, "http://graph.local", cfg.Messenger.GraphURL)
}

func TestNew_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CHAT_SWEEP_INTERVAL", "soon")
	t.Setenv("REDIS_DB", "x")

	cfg := New()

	assert.Equal(t, time.Minute, cfg.Chat.SweepInterval)
	assert.Equal(t, 0, cfg.Redis.DB)
}
