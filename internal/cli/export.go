package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/dshills/regtree/internal/storage"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <title> <dir>",
	Short: "Write each entry of a regulation to its own file",
	Long: `Export writes every entry of a regulation to <dir>/<title>/, one file
per entry. A file is named after the first line of its entry's content.

Example:
  regtree export 營造安全衛生設施標準 ./out
`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	_, _, store, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	n, err := exportRegulation(cmd.Context(), store, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d entries to %s\n", n, filepath.Join(args[1], args[0]))
	return nil
}

// exportRegulation writes one file per entry and returns how many were
// written.
func exportRegulation(ctx context.Context, store storage.Storage, title, dir string) (int, error) {
	reg, err := store.GetRegulationByTitle(ctx, title)
	if err != nil {
		return 0, fmt.Errorf("regulation %q: %w", title, err)
	}
	entries, err := store.ListEntriesByRegulation(ctx, reg.ID)
	if err != nil {
		return 0, err
	}

	target := filepath.Join(dir, exportFileName(title))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", target, err)
	}

	used := make(map[string]int, len(entries))
	for _, e := range entries {
		name := exportFileName(e.FirstLine())
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}

		path := filepath.Join(target, name+".txt")
		if err := os.WriteFile(path, []byte(e.Content), 0o644); err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return len(entries), nil
}

// maxFileNameBytes leaves room for a " (n)" suffix and ".txt" under the
// common 255-byte file name limit.
const maxFileNameBytes = 200

// exportFileName makes s safe to use as a single path element. Long names
// are cut on a rune boundary.
func exportFileName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, s)
	if len(s) > maxFileNameBytes {
		cut := maxFileNameBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	s = strings.Trim(s, ". ")
	if s == "" {
		return "_"
	}
	return s
}
