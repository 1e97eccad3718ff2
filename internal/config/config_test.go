package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 8080
  max_connections: 5000
  allowed_origins:
    - "http://localhost:5173"
    - "https://gamingherb.redeyes.dev"

redis:
  addr: "redis:6379"
  password: "secret"
  db: 1

game:
  grace_timeout: 60
  waiting_tick: 20
  room_timeout: 15

security:
  rate_limit:
    max_per_second: 20
    max_per_minute: 100
    ban_duration: 120
  message_limit:
    max_per_second: 60
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(content), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5000, cfg.Server.MaxConnections)
	assert.Len(t, cfg.Server.AllowedOrigins, 2)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, 60, cfg.Game.GraceTimeout)
	assert.Equal(t, 20, cfg.Game.WaitingTick)
	assert.Equal(t, 20, cfg.Security.RateLimit.MaxPerSecond)
	assert.Equal(t, 120, cfg.Security.RateLimit.BanDuration)
	assert.Equal(t, 60, cfg.Security.MessageLimit.MaxPerSecond)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")
	err := os.WriteFile(configPath, []byte("invalid: yaml: :::"), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "empty.yaml")
	err := os.WriteFile(configPath, []byte(`{}`), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, defaultHost, cfg.Server.Host)
	assert.Equal(t, defaultPort, cfg.Server.Port)
	assert.Equal(t, defaultMaxConnections, cfg.Server.MaxConnections)
	assert.Equal(t, defaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, defaultGraceTimeout, cfg.Game.GraceTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, defaultRateMaxPerSecond, cfg.Security.RateLimit.MaxPerSecond)
	assert.Equal(t, defaultRateMaxPerMinute, cfg.Security.RateLimit.MaxPerMinute)
	assert.Equal(t, defaultRateBanDuration, cfg.Security.RateLimit.BanDuration)
	assert.Equal(t, defaultMsgMaxPerSecond, cfg.Security.MessageLimit.MaxPerSecond)
}

func TestGameConfig_DurationMethods(t *testing.T) {
	cfg := &GameConfig{
		GraceTimeout: 30,
		WaitingTick:  30,
		RoomTimeout:  10,
	}

	assert.Equal(t, 30*time.Second, cfg.GraceTimeoutDuration())
	assert.Equal(t, time.Second/30, cfg.WaitingTickInterval())
	assert.Equal(t, 10*time.Minute, cfg.RoomTimeoutDuration())
}

func TestRateLimitConfig_BanDurationTime(t *testing.T) {
	cfg := &RateLimitConfig{BanDuration: 120}
	assert.Equal(t, 120*time.Second, cfg.BanDurationTime())
}

func TestLoadFromEnv(t *testing.T) {
	// Not parallel because it modifies environment variables
	t.Setenv("SERVER_HOST", "env-host")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("REDIS_ADDR", "env-redis:6380")
	t.Setenv("GAME_GRACE_TIMEOUT", "45")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "env.yaml")
	err := os.WriteFile(configPath, []byte(`{}`), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "env-host", cfg.Server.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "env-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 45, cfg.Game.GraceTimeout)
}
