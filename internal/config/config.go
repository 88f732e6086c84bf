// Package config loads the panel configuration with viper: built-in
// defaults, then an optional .env file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// Server
	Port           int           `mapstructure:"port"`
	LogLevel       string        `mapstructure:"log_level"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`

	// Supabase
	SupabaseURL        string `mapstructure:"supabase_url"`
	SupabaseAnonKey    string `mapstructure:"supabase_anon_key"`
	SupabaseServiceKey string `mapstructure:"supabase_service_role_key"`
	UseSupabase        bool   `mapstructure:"use_supabase"`

	// JWTSecret verifies Supabase-issued tokens. Empty disables auth.
	JWTSecret string `mapstructure:"supabase_jwt_secret"`

	// Postgres, preferred over Supabase when set
	DatabaseURL string `mapstructure:"database_url"`

	// HTTP client
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// Resilience
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`

	// Cache
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	RedisAddr string        `mapstructure:"redis_addr"`

	// Observability
	OTLPEndpoint string `mapstructure:"otel_exporter_otlp_endpoint"`

	// Business rules
	Timezone              string        `mapstructure:"timezone"`
	DashboardExpiringDays int           `mapstructure:"dashboard_expiring_days"`
	StatusSyncAt          string        `mapstructure:"status_sync_at"`
	SnapshotRefresh       time.Duration `mapstructure:"snapshot_refresh"`
}

var defaults = map[string]any{
	"port":            8080,
	"log_level":       "info",
	"request_timeout": 30 * time.Second,
	"cors_origins":    "*",

	"supabase_url":              "",
	"supabase_anon_key":         "",
	"supabase_service_role_key": "",
	"use_supabase":              true,
	"supabase_jwt_secret":       "",
	"database_url":              "",

	"http_timeout":    10 * time.Second,
	"max_retries":     2,
	"initial_backoff": 100 * time.Millisecond,
	"max_concurrency": 50,

	"cache_ttl":  5 * time.Minute,
	"redis_addr": "",

	"otel_exporter_otlp_endpoint": "",

	"timezone":                "America/Sao_Paulo",
	"dashboard_expiring_days": 7,
	"status_sync_at":          "03:00",
	"snapshot_refresh":        5 * time.Minute,
}

// Load reads configuration. path names an optional dotenv file; a missing
// file is not an error. Environment variables always win.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && (!c.UseSupabase || c.SupabaseURL == "") {
		return errors.New("no backend configured: set DATABASE_URL or SUPABASE_URL")
	}
	if c.DatabaseURL == "" && c.SupabaseServiceKey == "" {
		return errors.New("SUPABASE_SERVICE_ROLE_KEY is required with SUPABASE_URL")
	}
	if c.DashboardExpiringDays < 0 {
		return fmt.Errorf("DASHBOARD_EXPIRING_DAYS must be >= 0, got %d", c.DashboardExpiringDays)
	}
	if _, _, err := c.SyncTime(); err != nil {
		return err
	}
	return nil
}

// Backend names the store the configuration selects.
func (c *Config) Backend() string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "supabase"
}

// SyncTime parses STATUS_SYNC_AT ("HH:MM"). An empty value disables the
// daily sync and returns -1, -1.
func (c *Config) SyncTime() (hour, minute int, err error) {
	if strings.TrimSpace(c.StatusSyncAt) == "" {
		return -1, -1, nil
	}
	t, err := time.Parse("15:04", strings.TrimSpace(c.StatusSyncAt))
	if err != nil {
		return 0, 0, fmt.Errorf("STATUS_SYNC_AT must be HH:MM, got %q", c.StatusSyncAt)
	}
	return t.Hour(), t.Minute(), nil
}

// splitList accepts both a list and a single comma separated entry.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
