package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/regtree/internal/config"
	"github.com/dshills/regtree/internal/storage"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "regtree",
	Short: "Regtree - hierarchical legal regulation store",
	Long: `Regtree parses legal regulations into chapter, section, article,
paragraph, item and subitem trees and answers hierarchy-aware queries.

Configuration is read from .regtree/config.yaml in the working directory,
or from the file given with --config. REGTREE_* environment variables
override both.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .regtree/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the configuration and builds the stderr logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.NewFileLoader(cfgFile).Load()
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, nil, err
	}

	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Log.NewLogger(os.Stderr), nil
}

// openStorage opens the configured store, creating the database directory
// when needed.
func openStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.Storage.Backend == "memory" {
		return storage.NewMemoryStorage(), nil
	}

	dbPath, err := cfg.Storage.ResolvedDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	return store, nil
}

// setup loads config and opens the store. The caller closes the store.
func setup() (*config.Config, *slog.Logger, storage.Storage, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := openStorage(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Debug("storage opened", "backend", cfg.Storage.Backend, "driver", storage.DriverName)
	return cfg, logger, store, nil
}
