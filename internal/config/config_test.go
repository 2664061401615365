package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("BROKER_HEARTBEAT_SECONDS", "")
	t.Setenv("SEQUENCE_MAX_ATTEMPTS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 30*time.Second, cfg.Broker.Heartbeat())
	assert.Equal(t, 5, cfg.Workflow.SequenceMaxAttempts)
	assert.Equal(t, 7*24*time.Hour, cfg.Workflow.QuoteValidity())
	assert.Equal(t, 30*24*time.Hour, cfg.Workflow.MediaRetention())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BROKER_HEARTBEAT_SECONDS", "5")
	t.Setenv("BROKER_RELAY_ENABLED", "true")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://shop.example, https://admin.example")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Broker.Heartbeat())
	assert.True(t, cfg.Broker.RelayEnabled)
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.App.AllowedOrigins)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	require.Error(t, err)
}
