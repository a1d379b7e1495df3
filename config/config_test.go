package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, 64, cfg.MaxTagLength)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 60*time.Second, cfg.PongWait)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "3001")
	t.Setenv("ALLOWED_ORIGINS", "https://voxa.app,https://www.voxa.app")
	t.Setenv("MAX_TAG_LENGTH", "16")
	t.Setenv("PING_PERIOD", "20s")
	t.Setenv("PONG_WAIT", "30s")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, []string{"https://voxa.app", "https://www.voxa.app"}, cfg.AllowedOrigins)
	assert.Equal(t, 16, cfg.MaxTagLength)
	assert.Equal(t, 20*time.Second, cfg.PingPeriod)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxa.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9000\"\nlog_level: debug\nredis:\n  addr: cache:6379\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel, "environment overrides the file")
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:         "8080",
			Environment:  "production",
			JWTSecret:    "s3cret",
			MaxTagLength: 64,
			ReadLimit:    1024,
			SendBuffer:   8,
			PingPeriod:   time.Second,
			PongWait:     2 * time.Second,
			WriteWait:    time.Second,
		}
	}
	require.NoError(t, valid().Validate())

	t.Run("ping not shorter than pong", func(t *testing.T) {
		cfg := valid()
		cfg.PingPeriod = cfg.PongWait
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero send buffer", func(t *testing.T) {
		cfg := valid()
		cfg.SendBuffer = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("default secret with admin in production", func(t *testing.T) {
		cfg := valid()
		cfg.JWTSecret = defaultJWTSecret
		cfg.AdminPassword = "hunter2"
		assert.Error(t, cfg.Validate())

		cfg.Environment = "development"
		assert.NoError(t, cfg.Validate())
	})
}
