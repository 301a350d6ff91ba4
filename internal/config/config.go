package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int           `envconfig:"PORT" default:"8080"`
	DatabaseDriver string        `envconfig:"DATABASE_DRIVER" default:"sqlite"`
	DatabaseURL    string        `envconfig:"DATABASE_URL" default:"./data/signdesk.db"`
	FileDir        string        `envconfig:"FILE_DIR" default:"./data/files"`
	LinkSecret     string        `envconfig:"LINK_SECRET" default:"dev-secret-change-in-production"`
	LinkTTL        time.Duration `envconfig:"LINK_TTL" default:"168h"`
	AllowedOrigins string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	PublicURL      string        `envconfig:"PUBLIC_URL" default:"http://localhost:8080"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	switch cfg.DatabaseDriver {
	case "pgx", "sqlite":
	default:
		return nil, fmt.Errorf("DATABASE_DRIVER must be pgx or sqlite, got %q", cfg.DatabaseDriver)
	}
	if cfg.LinkTTL <= 0 {
		return nil, fmt.Errorf("LINK_TTL must be positive, got %s", cfg.LinkTTL)
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &cfg, nil
}

// Origins splits AllowedOrigins into a list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
