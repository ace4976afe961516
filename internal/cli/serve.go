package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/regtree/internal/api"
	"github.com/dshills/regtree/internal/config"
	"github.com/dshills/regtree/internal/mcp"
	"github.com/dshills/regtree/internal/searcher"
)

var httpAddrFlag string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Serve exposes import, search and hierarchy tools over the Model Context
Protocol on stdin/stdout. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// httpCmd represents the http command
var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Run the read-only JSON HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runHTTP,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(httpCmd)
	httpCmd.Flags().StringVar(&httpAddrFlag, "addr", "", "Listen address (default from config)")
}

func searcherOptions(cfg *config.Config) searcher.Options {
	return searcher.Options{
		CacheSize:    cfg.Search.CacheSize,
		CacheTTL:     cfg.Search.CacheTTL,
		DefaultLimit: cfg.Search.Limit,
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, store, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	logger.Info("regtree MCP server starting", "version", Version, "backend", cfg.Storage.Backend)
	// Serve closes the store.
	err = mcp.NewServer(store, logger, searcherOptions(cfg)).Serve(ctx)
	logger.Info("server stopped")
	return err
}

func runHTTP(cmd *cobra.Command, args []string) error {
	cfg, logger, store, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	addr := cfg.HTTP.Addr
	if httpAddrFlag != "" {
		addr = httpAddrFlag
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	srv := api.NewServer(store, searcher.NewSearcher(store, searcherOptions(cfg)), logger)
	return srv.Run(ctx, addr)
}
