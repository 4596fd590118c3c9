// Package dbconfig resolves the connection settings of the upstream
// Prophecy database used by the postgres snapshot source.
package dbconfig

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "prophecy-mirror"

// Config holds Postgres connection settings.
type Config struct {
	URL      string // DATABASE_URL; wins over the discrete fields when set
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// NewConfigFromEnv reads DATABASE_URL and DB_* environment variables (with defaults).
func NewConfigFromEnv() Config {
	return Config{
		URL:      os.Getenv("DATABASE_URL"),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		Database: getEnv("DB_NAME", "prophecy"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 4)),
	}
}

// DSN returns the Postgres connection URL.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// PoolConfig parses the DSN into a pool configuration. Snapshot reads run
// one transaction at a time, so the pool stays small.
func (c Config) PoolConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if c.MaxConns > 0 {
		cfg.MaxConns = c.MaxConns
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
