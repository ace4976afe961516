package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidBackend indicates an unsupported storage backend
	ErrInvalidBackend = errors.New("invalid storage backend")

	// ErrEmptyDBPath indicates a sqlite backend without a database path
	ErrEmptyDBPath = errors.New("empty database path")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidPattern indicates an import glob that does not compile
	ErrInvalidPattern = errors.New("invalid import pattern")

	// ErrInvalidSearch indicates invalid limit or cache settings
	ErrInvalidSearch = errors.New("invalid search settings")

	// ErrInvalidLogLevel indicates an unknown log level or format
	ErrInvalidLogLevel = errors.New("invalid log settings")
)

// MaxSearchLimit mirrors the searcher's hard cap on results per query
const MaxSearchLimit = 200

// Validate checks that the configuration is valid and complete. All problems
// are reported together.
func Validate(cfg *Config) error {
	var errs []error

	switch strings.ToLower(cfg.Storage.Backend) {
	case "sqlite":
		if cfg.Storage.DBPath == "" {
			errs = append(errs, fmt.Errorf("%w: storage.db_path is required for the sqlite backend", ErrEmptyDBPath))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'sqlite' or 'memory', got '%s'", ErrInvalidBackend, cfg.Storage.Backend))
	}

	if cfg.Import.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: must be >= 0, got %d", ErrInvalidWorkers, cfg.Import.Workers))
	}
	if len(cfg.Import.Patterns) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one pattern is required", ErrInvalidPattern))
	}
	for _, p := range cfg.Import.Patterns {
		if _, err := glob.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err))
		}
	}

	if cfg.Search.Limit < 1 || cfg.Search.Limit > MaxSearchLimit {
		errs = append(errs, fmt.Errorf("%w: limit must be between 1 and %d, got %d", ErrInvalidSearch, MaxSearchLimit, cfg.Search.Limit))
	}
	if cfg.Search.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("%w: cache_size must be positive, got %d", ErrInvalidSearch, cfg.Search.CacheSize))
	}
	if cfg.Search.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("%w: cache_ttl must be positive, got %s", ErrInvalidSearch, cfg.Search.CacheTTL))
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown level '%s'", ErrInvalidLogLevel, cfg.Log.Level))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: format must be 'text' or 'json', got '%s'", ErrInvalidLogLevel, cfg.Log.Format))
	}

	return errors.Join(errs...)
}
