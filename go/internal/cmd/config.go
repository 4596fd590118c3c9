package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/prophecy/go/internal/realtime"
	"gopkg.in/yaml.v3"
)

const (
	SnapshotSourceHTTP     = "http"
	SnapshotSourcePostgres = "postgres"

	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
	TransportNATS      = "nats"
)

type Config struct {
	API struct {
		BaseURL      string `yaml:"base_url"`
		SessionToken string `yaml:"session_token"`
	} `yaml:"api"`

	Snapshot struct {
		Source string `yaml:"source"`
		UserID string `yaml:"user_id"` // identity reported by the postgres source
	} `yaml:"snapshot"`

	Stream struct {
		Transport   string `yaml:"transport"`
		NATSURL     string `yaml:"nats_url"`
		NATSSubject string `yaml:"nats_subject"`
		NATSToken   string `yaml:"nats_token"`
	} `yaml:"stream"`

	Sync struct {
		BackoffBase     time.Duration `yaml:"backoff_base"`
		BackoffMax      time.Duration `yaml:"backoff_max"`
		HeartbeatWindow time.Duration `yaml:"heartbeat_window"`
	} `yaml:"sync"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

func defaultConfig() *Config {
	syncDefaults := realtime.DefaultConfig()

	var cfg Config
	cfg.API.BaseURL = "http://localhost:3000"
	cfg.Snapshot.Source = SnapshotSourceHTTP
	cfg.Stream.Transport = TransportSSE
	cfg.Stream.NATSURL = "nats://localhost:4222"
	cfg.Stream.NATSSubject = "prophecy.events.>"
	cfg.Sync.BackoffBase = syncDefaults.Backoff.Base
	cfg.Sync.BackoffMax = syncDefaults.Backoff.Max
	cfg.Sync.HeartbeatWindow = syncDefaults.HeartbeatWindow
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Log.Pretty = true
	return &cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// loadConfig reads path over the defaults; a missing file is not an error.
// Environment variables override both.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.API.BaseURL = getEnv("PROPHECY_API_URL", c.API.BaseURL)
	c.API.SessionToken = getEnv("PROPHECY_SESSION_TOKEN", c.API.SessionToken)
	c.Snapshot.Source = getEnv("SNAPSHOT_SOURCE", c.Snapshot.Source)
	c.Snapshot.UserID = getEnv("SNAPSHOT_USER_ID", c.Snapshot.UserID)
	c.Stream.Transport = getEnv("STREAM_TRANSPORT", c.Stream.Transport)
	c.Stream.NATSURL = getEnv("NATS_URL", c.Stream.NATSURL)
	c.Stream.NATSSubject = getEnv("NATS_SUBJECT", c.Stream.NATSSubject)
	c.Stream.NATSToken = getEnv("NATS_TOKEN", c.Stream.NATSToken)
	c.Sync.BackoffBase = getEnvAsDuration("SYNC_BACKOFF_BASE", c.Sync.BackoffBase)
	c.Sync.BackoffMax = getEnvAsDuration("SYNC_BACKOFF_MAX", c.Sync.BackoffMax)
	c.Sync.HeartbeatWindow = getEnvAsDuration("SYNC_HEARTBEAT_WINDOW", c.Sync.HeartbeatWindow)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Pretty = getEnvAsBool("LOG_PRETTY", c.Log.Pretty)
}

func (c *Config) validate() error {
	switch c.Snapshot.Source {
	case SnapshotSourceHTTP, SnapshotSourcePostgres:
	default:
		return fmt.Errorf("unknown snapshot source %q", c.Snapshot.Source)
	}
	switch c.Stream.Transport {
	case TransportSSE, TransportWebSocket, TransportNATS:
	default:
		return fmt.Errorf("unknown stream transport %q", c.Stream.Transport)
	}
	if c.Sync.BackoffBase <= 0 || c.Sync.BackoffMax < c.Sync.BackoffBase {
		return fmt.Errorf("invalid backoff %s..%s", c.Sync.BackoffBase, c.Sync.BackoffMax)
	}
	if c.Sync.HeartbeatWindow <= 0 {
		return fmt.Errorf("invalid heartbeat window %s", c.Sync.HeartbeatWindow)
	}
	return nil
}

func (c *Config) syncConfig() realtime.Config {
	cfg := realtime.DefaultConfig()
	cfg.Backoff = realtime.Backoff{Base: c.Sync.BackoffBase, Max: c.Sync.BackoffMax}
	cfg.HeartbeatWindow = c.Sync.HeartbeatWindow
	return cfg
}
