package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/regtree/internal/indexer"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [title]",
	Short: "Check that stored entries still slice their raw text",
	Long: `Verify re-checks every stored entry against its regulation's raw text:
the content must equal the text between the entry's span offsets.
Without a title every regulation is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	_, logger, store, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	idx := indexer.New(store, logger)

	var reports []*indexer.VerifyReport
	if len(args) == 1 {
		reg, err := store.GetRegulationByTitle(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("regulation %q: %w", args[0], err)
		}
		report, err := idx.VerifySpans(cmd.Context(), reg.ID)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	} else {
		reports, err = idx.VerifyAll(cmd.Context())
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range reports {
		if r.OK() {
			fmt.Fprintf(out, "✓ %s: %d entries\n", r.Title, r.Checked)
			continue
		}
		failed++
		fmt.Fprintf(out, "✗ %s: %d of %d entries mismatched\n", r.Title, len(r.Mismatches), r.Checked)
		for _, m := range r.Mismatches {
			fmt.Fprintf(out, "    #%d %s: %v\n", m.EntryID, m.UnitLabel, m.Err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d regulations failed verification", failed)
	}
	return nil
}
