package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/dshills/regtree/internal/indexer"
)

// importProgress renders indexer progress callbacks as a progress bar.
type importProgress struct {
	quiet bool
	out   io.Writer
	bar   *progressbar.ProgressBar
	shown int32
}

func newImportProgress(out io.Writer, quiet bool) *importProgress {
	return &importProgress{out: out, quiet: quiet}
}

// OnProgress is passed as indexer.Config.OnProgress. The indexer serializes
// calls so no locking is needed here.
func (p *importProgress) OnProgress(prog indexer.Progress) {
	if p.quiet {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(int(prog.TotalFiles),
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("Importing regulations"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files/s"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(p.out)
			}),
		)
	}
	if delta := prog.Done() - p.shown; delta > 0 {
		_ = p.bar.Add(int(delta))
		p.shown = prog.Done()
	}
}

func (p *importProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// printStatistics writes the import summary.
func printStatistics(out io.Writer, stats *indexer.Statistics) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "✓ Import complete: %d entries in %.1fs\n", stats.EntriesCreated, stats.Duration.Seconds())
	fmt.Fprintf(out, "  Imported: %d\n", stats.FilesImported)
	fmt.Fprintf(out, "  Skipped:  %d\n", stats.FilesSkipped)
	fmt.Fprintf(out, "  Failed:   %d\n", stats.FilesFailed)
	if stats.Warnings > 0 {
		fmt.Fprintf(out, "  Warnings: %d\n", stats.Warnings)
	}
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(out, "  ✗ %s\n", msg)
	}
}
