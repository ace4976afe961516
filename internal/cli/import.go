package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/regtree/internal/indexer"
)

var (
	importReimportFlag bool
	importWorkersFlag  int
	importPatternFlag  []string
	importQuietFlag    bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import regulation files into the store",
	Long: `Import parses regulation text files and stores their hierarchy.

The regulation title is the file name without its extension. A regulation
whose title is already stored is skipped unless --reimport is given, which
replaces it.

Examples:
  # Import every .txt file under a directory
  regtree import ./regulations

  # Include markdown staging files
  regtree import ./regulations --pattern '*.txt' --pattern '*.md'

  # Replace a single regulation
  regtree import ./regulations/營造安全衛生設施標準.txt --reimport
`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVar(&importReimportFlag, "reimport", false, "Replace regulations that already exist")
	importCmd.Flags().IntVarP(&importWorkersFlag, "workers", "w", 0, "Concurrent files (default from config)")
	importCmd.Flags().StringSliceVarP(&importPatternFlag, "pattern", "p", nil, "File name glob (repeatable, default from config)")
	importCmd.Flags().BoolVarP(&importQuietFlag, "quiet", "q", false, "Suppress progress output")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, logger, store, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}

	idx := indexer.New(store, logger)
	out := cmd.OutOrStdout()

	if !info.IsDir() {
		result, err := idx.ImportFile(cmd.Context(), path, importReimportFlag)
		if err != nil {
			return err
		}
		if result.Skipped {
			fmt.Fprintf(out, "Skipped %s: already imported (use --reimport to replace)\n", result.Title)
			return nil
		}
		fmt.Fprintf(out, "✓ Imported %s: %d entries", result.Title, result.Entries)
		if len(result.Warnings) > 0 {
			fmt.Fprintf(out, ", %d warnings", len(result.Warnings))
		}
		fmt.Fprintln(out)
		return nil
	}

	importCfg := &indexer.Config{
		Workers:  cfg.Import.Workers,
		Patterns: cfg.Import.Patterns,
		Replace:  importReimportFlag,
	}
	if importWorkersFlag > 0 {
		importCfg.Workers = importWorkersFlag
	}
	if len(importPatternFlag) > 0 {
		importCfg.Patterns = importPatternFlag
	}

	progress := newImportProgress(cmd.ErrOrStderr(), importQuietFlag)
	importCfg.OnProgress = progress.OnProgress

	stats, err := idx.ImportDirectory(cmd.Context(), path, importCfg)
	progress.Finish()
	if err != nil {
		return err
	}

	printStatistics(out, stats)
	if stats.FilesFailed > 0 {
		return fmt.Errorf("%d files failed to import", stats.FilesFailed)
	}
	return nil
}
