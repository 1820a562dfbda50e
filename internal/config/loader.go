package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/example/timeline-engine/internal/calendar/recurring"
	"github.com/example/timeline-engine/internal/logging"
	"github.com/example/timeline-engine/internal/timeutil"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TIMELINE_"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StorageConfig selects the writable event store.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	DSN    string `yaml:"dsn" env:"DSN"`
}

// PaletteConfig controls event coloring.
type PaletteConfig struct {
	AutoColor bool              `yaml:"auto_color" env:"AUTO_COLOR"`
	Accent    string            `yaml:"accent" env:"ACCENT"`
	ColorMap  map[string]string `yaml:"color_map" env:"COLOR_MAP"`
}

// ICSConfig describes a subscribed iCalendar feed.
type ICSConfig struct {
	ID   string `yaml:"id"`
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// BasicAuthConfig protects the API. PasswordHash is an argon2id PHC string
// as produced by `timelined -hash-password`.
type BasicAuthConfig struct {
	Username     string `yaml:"username" env:"USERNAME"`
	PasswordHash string `yaml:"password_hash" env:"PASSWORD_HASH"`
}

// Enabled reports whether basic auth is configured.
func (b BasicAuthConfig) Enabled() bool {
	return b.Username != ""
}

// RateLimitConfig is a per-client token bucket. Zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RPS"`
	Burst int     `yaml:"burst" env:"BURST"`
}

// Config is the server configuration.
type Config struct {
	Listen    string `yaml:"listen" env:"LISTEN"`
	Timezone  string `yaml:"timezone" env:"TIMEZONE"`
	WeekStart string `yaml:"week_start" env:"WEEK_START"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`

	Storage StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
	Palette PaletteConfig `yaml:"palette" envPrefix:"PALETTE_"`

	// Schedule holds weekly templates projected as a read-only overlay.
	Schedule []recurring.RecurringEvent `yaml:"schedule"`
	ICS      []ICSConfig                `yaml:"ics"`
	// RefreshCron is a five-field cron spec for ICS refreshes.
	RefreshCron string `yaml:"refresh" env:"REFRESH"`

	BasicAuth      BasicAuthConfig `yaml:"basic_auth" envPrefix:"BASIC_AUTH_"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	MetricsEnabled bool            `yaml:"metrics_enabled" env:"METRICS_ENABLED"`
	OTelEndpoint   string          `yaml:"otel_endpoint" env:"OTEL_ENDPOINT"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{MetricsEnabled: true}
	cfg.Normalize()
	return cfg
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	c.Listen = strings.TrimSpace(c.Listen)
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	c.Timezone = strings.TrimSpace(c.Timezone)
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if c.WeekStart == "" {
		c.WeekStart = "monday"
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if strings.TrimSpace(c.RefreshCron) == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.Schedule == nil {
		c.Schedule = []recurring.RecurringEvent{}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		c.ICS[i].URL = strings.TrimSpace(c.ICS[i].URL)
		if c.ICS[i].ID == "" {
			c.ICS[i].ID = fmt.Sprintf("ics-%d", i+1)
		}
		if c.ICS[i].Name == "" {
			c.ICS[i].Name = c.ICS[i].ID
		}
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = int(c.RateLimit.RPS) + 1
	}
}

// MondayStart reports whether weeks begin on Monday.
func (c Config) MondayStart() bool {
	return c.WeekStart != "sunday"
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	return timeutil.LoadLocation(c.Timezone)
}

// Load reads the YAML file at path, applies TIMELINE_* environment
// overrides, normalizes and validates. An empty path, or a path that does not
// exist, starts from Default.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			cfg = Config{MetricsEnabled: true}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports missing required values first, then invalid values. Each
// error lists every offending key.
func (c Config) Validate() error {
	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if _, err := c.Location(); err != nil {
		invalid = append(invalid, "timezone")
	}
	if c.WeekStart != "monday" && c.WeekStart != "sunday" {
		invalid = append(invalid, "week_start")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		invalid = append(invalid, "log_level")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			missing = append(missing, "storage.dsn")
		}
	default:
		invalid = append(invalid, "storage.driver")
	}

	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		invalid = append(invalid, "refresh")
	}

	seen := make(map[string]bool, len(c.ICS))
	for i, feed := range c.ICS {
		if feed.URL == "" {
			missing = append(missing, fmt.Sprintf("ics[%d].url", i))
		}
		if seen[feed.ID] {
			invalid = append(invalid, fmt.Sprintf("ics[%d].id", i))
		}
		seen[feed.ID] = true
	}

	if c.BasicAuth.Enabled() && strings.TrimSpace(c.BasicAuth.PasswordHash) == "" {
		missing = append(missing, "basic_auth.password_hash")
	}
	if c.RateLimit.RPS < 0 {
		invalid = append(invalid, "rate_limit.rps")
	}
	if c.RateLimit.Burst < 0 {
		invalid = append(invalid, "rate_limit.burst")
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required values: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("config: invalid values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// Save writes cfg as YAML with 0600 permissions, creating the parent
// directory when needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	cfg.Normalize()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".timeline-config-*.tmp")
	if err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}
