package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server       ServerConfig
	Envelope     EnvelopeConfig
	Auth         AuthConfig
	Store        StoreConfig
	Redis        RedisConfig
	Influx       InfluxConfig
	MetricsFlush MetricsFlushConfig
	Purge        PurgeConfig
}

type ServerConfig struct {
	Port             int
	RequestTimeoutMs int
	MaxBodyBytes     int64
}

type EnvelopeConfig struct {
	FlattenPayload bool
}

// AuthConfig holds the API keys. An empty WriteKey disables the write guard.
type AuthConfig struct {
	WriteKey    string
	ReadOnlyKey string
	Required    bool
}

type StoreConfig struct {
	Driver     string
	SQLitePath string
	MySQLDSN   string
}

type RedisConfig struct {
	Addr              string
	IdempotencyTTLSec int
}

type InfluxConfig struct {
	Host     string
	Token    string
	Org      string
	Database string
}

type MetricsFlushConfig struct {
	Enabled         bool
	FlushIntervalMs int
}

type PurgeConfig struct {
	QueueSize int
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:             getEnvInt("PORT", 8080),
			RequestTimeoutMs: getEnvInt("REQUEST_TIMEOUT_MS", 10000),
			MaxBodyBytes:     int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		},
		Envelope: EnvelopeConfig{
			FlattenPayload: getEnvBool("ENVELOPE_FLATTEN_PAYLOAD", false),
		},
		Auth: AuthConfig{
			WriteKey:    getEnv("API_KEY", ""),
			ReadOnlyKey: getEnv("API_READONLY_KEY", ""),
			Required:    getEnvBool("API_KEY_REQUIRED", false),
		},
		Store: StoreConfig{
			Driver:     getEnv("STORE_DRIVER", "sqlite3"),
			SQLitePath: getEnv("SQLITE_DB_PATH", "./data/notes.db"),
			MySQLDSN:   getEnv("MYSQL_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:              getEnv("REDIS_ADDR", ""),
			IdempotencyTTLSec: getEnvInt("IDEMPOTENCY_TTL_SECONDS", 86400),
		},
		Influx: InfluxConfig{
			Host:     getEnv("INFLUX_HOST", ""),
			Token:    getEnv("INFLUX_TOKEN", ""),
			Org:      getEnv("INFLUX_ORG", "default"),
			Database: getEnv("INFLUX_DATABASE", ""),
		},
		MetricsFlush: MetricsFlushConfig{
			Enabled:         getEnvBool("METRICS_FLUSH_ENABLED", true),
			FlushIntervalMs: getEnvInt("METRICS_FLUSH_INTERVAL_MS", 60000),
		},
		Purge: PurgeConfig{
			QueueSize: getEnvInt("PURGE_QUEUE_SIZE", 16),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite3":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_DB_PATH is required when STORE_DRIVER=sqlite3")
		}
	case "mysql":
		if c.Store.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN is required when STORE_DRIVER=mysql")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want sqlite3 or mysql)", c.Store.Driver)
	}

	if c.Auth.Required && c.Auth.WriteKey == "" {
		return fmt.Errorf("API_KEY is required when API_KEY_REQUIRED=true")
	}
	if c.Auth.ReadOnlyKey != "" && c.Auth.ReadOnlyKey == c.Auth.WriteKey {
		return fmt.Errorf("API_READONLY_KEY must differ from API_KEY")
	}
	if c.Server.RequestTimeoutMs <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_MS must be positive")
	}
	return nil
}

// DSN returns the data source name for the configured driver.
func (s StoreConfig) DSN() string {
	if s.Driver == "mysql" {
		return s.MySQLDSN
	}
	return s.SQLitePath
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvBool(key string, fallback bool) bool {
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
