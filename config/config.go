package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every runtime setting for the gateway. Values come from the
// environment, with an optional .env file for development.
type Config struct {
	// HTTP
	ListenAddr string

	// ROSBridge upstream
	ROSBridgeEnabled      bool
	ROSBridgeURI          string
	ConnectTimeout        time.Duration
	ReconnectMaxAttempts  int
	ReconnectDelay        time.Duration
	CmdVelTopic           string
	ScanTopic             string
	MapTopic              string
	MapRelayEnabled       bool
	RelayReadyInterval    time.Duration
	RelayReadyMaxAttempts int

	// Optional Redis last-value store
	RedisAddr string

	// Optional downstream auth; empty disables the token check
	AuthSecret string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A missing .env file is not
// an error; system environment variables always win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Debug("no .env file loaded")
	}

	cfg := &Config{
		ListenAddr:       getString("LISTEN_ADDR", ":8080"),
		ROSBridgeURI:     getString("ROSBRIDGE_URI", "ws://192.168.0.3:9090"),
		CmdVelTopic:      getString("CMD_VEL_TOPIC", "/cmd_vel"),
		ScanTopic:        getString("SCAN_TOPIC", "/scan"),
		MapTopic:         getString("MAP_TOPIC", "/map"),
		RedisAddr:        getString("REDIS_ADDR", ""),
		AuthSecret:       getString("AUTH_SECRET", ""),
		LogLevel:         getString("LOG_LEVEL", "info"),
		LogFormat:        getString("LOG_FORMAT", "text"),
		ROSBridgeEnabled: getBool("ROSBRIDGE_ENABLED", true),
		MapRelayEnabled:  getBool("MAP_RELAY_ENABLED", false),
	}

	var err error
	if cfg.ConnectTimeout, err = getDuration("CONNECT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReconnectDelay, err = getDuration("RECONNECT_DELAY", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReconnectMaxAttempts, err = getInt("RECONNECT_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.RelayReadyInterval, err = getDuration("RELAY_READY_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.RelayReadyMaxAttempts, err = getInt("RELAY_READY_MAX_ATTEMPTS", 20); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyLogging configures the global logrus logger from the loaded settings.
func (c *Config) ApplyLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
