package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 168*time.Hour, cfg.LinkTTL)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Origins())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("DATABASE_URL", "postgres://localhost/signdesk")
	t.Setenv("LINK_TTL", "15m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PUBLIC_URL", "https://sign.example.com/")
	t.Setenv("ALLOWED_ORIGINS", " https://crm.example.com , ,https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "pgx", cfg.DatabaseDriver)
	assert.Equal(t, 15*time.Minute, cfg.LinkTTL)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "https://sign.example.com", cfg.PublicURL)
	assert.Equal(t, []string{"https://crm.example.com", "https://admin.example.com"}, cfg.Origins())
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DATABASE_DRIVER", "mysql"},
		{"LINK_TTL", "-1h"},
		{"PORT", "eighty"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLevelFallsBackToInfo(t *testing.T) {
	cfg := &Config{LogLevel: "loud"}
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}
