package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the complete regtree configuration.
// It can be loaded from .regtree/config.yaml with environment variable overrides.
type Config struct {
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Import  ImportConfig  `yaml:"import" mapstructure:"import"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StorageConfig selects and locates the tree store.
type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // "sqlite" or "memory"
	DBPath  string `yaml:"db_path" mapstructure:"db_path"` // SQLite file; "~" expands to the home directory
}

// ImportConfig controls directory imports.
type ImportConfig struct {
	Workers  int      `yaml:"workers" mapstructure:"workers"`   // concurrent documents; 0 = NumCPU
	Patterns []string `yaml:"patterns" mapstructure:"patterns"` // glob patterns for file names
}

// SearchConfig controls result limits and caching.
type SearchConfig struct {
	Limit     int           `yaml:"limit" mapstructure:"limit"`           // default result count
	CacheSize int           `yaml:"cache_size" mapstructure:"cache_size"` // cached responses
	CacheTTL  time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`   // e.g. "30m"
}

// HTTPConfig configures the read-only HTTP API.
type HTTPConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "sqlite",
			DBPath:  "~/.regtree/regtree.db",
		},
		Import: ImportConfig{
			Workers:  0,
			Patterns: []string{"*.txt"},
		},
		Search: SearchConfig{
			Limit:     20,
			CacheSize: 1000,
			CacheTTL:  time.Hour,
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ResolvedDBPath returns the database path with a leading "~" expanded.
// ":memory:" is returned unchanged.
func (c *StorageConfig) ResolvedDBPath() (string, error) {
	if c.DBPath == "~" || strings.HasPrefix(c.DBPath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(c.DBPath, "~")), nil
	}
	return c.DBPath, nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (c *LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the application logger writing to w.
func (c *LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
