package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/regtree/internal/assembler"
)

var contextDescendantsFlag bool

// contextCmd represents the context command
var contextCmd = &cobra.Command{
	Use:   "context <entry-id>",
	Short: "Print an entry with its ancestors",
	Long: `Context prints the unit label path of an entry followed by the content
of its ancestors and itself, root first. With --descendants the entry's
subtree is listed as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

// labelCmd represents the label command
var labelCmd = &cobra.Command{
	Use:   "label <entry-id> <label>",
	Short: "Attach a curation label to an entry",
	Long:  `Label sets the curation label of an entry. An empty label clears it.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runLabel,
}

func init() {
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(labelCmd)
	contextCmd.Flags().BoolVarP(&contextDescendantsFlag, "descendants", "d", false, "Also list the entry's subtree")
}

func parseEntryID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid entry id %q: must be a positive integer", s)
	}
	return id, nil
}

func runContext(cmd *cobra.Command, args []string) error {
	id, err := parseEntryID(args[0])
	if err != nil {
		return err
	}

	_, _, store, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	c, err := assembler.New(store).Context(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, c.Breadcrumb())
	fmt.Fprintln(out, strings.Repeat("─", 40))
	fmt.Fprintln(out, c.Content())

	if contextDescendantsFlag && len(c.Descendants) > 0 {
		fmt.Fprintln(out, strings.Repeat("─", 40))
		for _, d := range c.Descendants {
			fmt.Fprintf(out, "%s#%d %s\n", strings.Repeat("  ", d.Distance-1), d.Entry.ID, d.Entry.Content)
		}
	}
	return nil
}

func runLabel(cmd *cobra.Command, args []string) error {
	id, err := parseEntryID(args[0])
	if err != nil {
		return err
	}

	_, logger, store, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SetEntryLabel(cmd.Context(), id, args[1]); err != nil {
		return fmt.Errorf("failed to label entry %d: %w", id, err)
	}
	logger.Info("entry labeled", "entry_id", id, "label", args[1])
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Entry %d labeled %q\n", id, args[1])
	return nil
}
