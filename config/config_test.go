package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.True(t, cfg.ROSBridgeEnabled)
	assert.Equal(t, "ws://192.168.0.3:9090", cfg.ROSBridgeURI)
	assert.Equal(t, "/cmd_vel", cfg.CmdVelTopic)
	assert.Equal(t, "/scan", cfg.ScanTopic)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 5, cfg.ReconnectMaxAttempts)
	assert.Equal(t, time.Second, cfg.RelayReadyInterval)
	assert.Equal(t, 20, cfg.RelayReadyMaxAttempts)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.AuthSecret)
	assert.False(t, cfg.MapRelayEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("ROSBRIDGE_URI", "ws://robot.local:9090")
	t.Setenv("ROSBRIDGE_ENABLED", "false")
	t.Setenv("RECONNECT_MAX_ATTEMPTS", "10")
	t.Setenv("RECONNECT_DELAY", "500ms")
	t.Setenv("MAP_RELAY_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "ws://robot.local:9090", cfg.ROSBridgeURI)
	assert.False(t, cfg.ROSBridgeEnabled)
	assert.Equal(t, 10, cfg.ReconnectMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectDelay)
	assert.True(t, cfg.MapRelayEnabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("RECONNECT_MAX_ATTEMPTS", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("RECONNECT_DELAY", "sometime later")
	_, err := Load()
	assert.Error(t, err)
}
