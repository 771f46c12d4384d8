package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Envelope.FlattenPayload)
	assert.Equal(t, "sqlite3", cfg.Store.Driver)
	assert.Equal(t, "./data/notes.db", cfg.Store.DSN())
	assert.Equal(t, 60000, cfg.MetricsFlush.FlushIntervalMs)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVELOPE_FLATTEN_PAYLOAD", "true")
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(db:3306)/notes?parseTime=true")
	t.Setenv("REQUEST_TIMEOUT_MS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Envelope.FlattenPayload)
	assert.Equal(t, "user:pass@tcp(db:3306)/notes?parseTime=true", cfg.Store.DSN())
	assert.Equal(t, 10000, cfg.Server.RequestTimeoutMs, "invalid ints fall back")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"mysql without dsn", map[string]string{"STORE_DRIVER": "mysql"}, "MYSQL_DSN is required"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "postgres"}, "unsupported STORE_DRIVER"},
		{"key required", map[string]string{"API_KEY_REQUIRED": "true"}, "API_KEY is required"},
		{"same keys", map[string]string{"API_KEY": "k", "API_READONLY_KEY": "k"}, "must differ"},
		{"zero timeout", map[string]string{"REQUEST_TIMEOUT_MS": "-5"}, "REQUEST_TIMEOUT_MS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
