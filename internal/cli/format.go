package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/dshills/regtree/internal/indexer"
	"github.com/dshills/regtree/internal/parser"
)

var formatPatternFlag string

// formatCmd represents the format command
var formatCmd = &cobra.Command{
	Use:   "format <input> <output>",
	Short: "Convert regulation text to the markdown staging format",
	Long: `Format classifies every heading line and prefixes it with one '#' per
nesting level, producing a markdown file that 'regtree import --pattern *.md'
reads back.

With a directory input every matching file directly inside it is written to
<output>/<stem>.md. With a file input the output is a file path, or '-' for
standard output.

Examples:
  regtree format ./regulations ./formatted
  regtree format 營造安全衛生設施標準.txt -
`,
	Args: cobra.ExactArgs(2),
	RunE: runFormat,
}

func init() {
	rootCmd.AddCommand(formatCmd)
	formatCmd.Flags().StringVarP(&formatPatternFlag, "pattern", "p", "*.txt", "File name glob for directory input")
}

func runFormat(cmd *cobra.Command, args []string) error {
	_, logger, err := loadConfig()
	if err != nil {
		return err
	}

	in, out := args[0], args[1]
	info, err := os.Stat(in)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", in, err)
	}

	if !info.IsDir() {
		if out == "-" {
			return formatFile(in, cmd.OutOrStdout(), logger)
		}
		if err := formatToPath(in, out, logger); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s -> %s\n", in, out)
		return nil
	}

	files, err := formatDirectory(in, out, formatPatternFlag, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Formatted %d files into %s\n", files, out)
	return nil
}

// formatDirectory converts every file in dir whose name matches pattern and
// returns how many were written.
func formatDirectory(dir, outDir, pattern string, logger *slog.Logger) (int, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() || !g.Match(e.Name()) {
			continue
		}
		src := filepath.Join(dir, e.Name())
		dst := filepath.Join(outDir, indexer.Title(src)+".md")
		logger.Info("formatting regulation", "input", src, "output", dst)
		if err := formatToPath(src, dst, logger); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func formatToPath(src, dst string, logger *slog.Logger) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := formatFile(src, f, logger); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// formatFile writes the staging form of src to w. Promotion underflows are
// logged and the affected headings recovered to depth 1.
func formatFile(src string, w io.Writer, logger *slog.Logger) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	lines, warnings := parser.Promote(parser.NewClassifier().ClassifyLines(string(raw)))
	for _, warn := range warnings {
		logger.Warn("promotion underflow", "file", src, "line", warn.Line, "label", warn.Label, "error", warn.Err)
	}

	md := parser.FormatMarkdown(lines)
	if !strings.HasSuffix(md, "\n") && md != "" {
		md += "\n"
	}
	_, err = io.WriteString(w, md)
	return err
}
