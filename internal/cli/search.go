package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/regtree/internal/searcher"
	"github.com/dshills/regtree/internal/storage"
)

var (
	searchModeFlag       string
	searchRegulationFlag string
	searchLimitFlag      int
	searchContextFlag    bool
	searchDedupFlag      bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search entry content",
	Long: `Search finds entries whose content contains the query, or matches it
as a regular expression with --mode regex.

Each match is printed with its ancestors' content so it reads in context.
Matches whose text is contained in another match are dropped unless
--dedup=false is given.

Examples:
  regtree search 護欄
  regtree search '第 \d+ 條' --mode regex --regulation 營造安全衛生設施標準
`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchModeFlag, "mode", "m", string(storage.SearchLiteral), "literal or regex")
	searchCmd.Flags().StringVarP(&searchRegulationFlag, "regulation", "r", "", "Restrict to one regulation title")
	searchCmd.Flags().IntVarP(&searchLimitFlag, "limit", "n", 0, "Maximum results (default from config)")
	searchCmd.Flags().BoolVar(&searchContextFlag, "context", true, "Prefix each match with its ancestors")
	searchCmd.Flags().BoolVar(&searchDedupFlag, "dedup", true, "Drop matches contained in other matches")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, _, store, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	req := searcher.Request{
		Query:       args[0],
		Mode:        storage.SearchMode(searchModeFlag),
		Limit:       searchLimitFlag,
		WithContext: searchContextFlag,
		Deduplicate: searchDedupFlag,
	}
	if searchRegulationFlag != "" {
		reg, err := store.GetRegulationByTitle(cmd.Context(), searchRegulationFlag)
		if err != nil {
			return fmt.Errorf("regulation %q: %w", searchRegulationFlag, err)
		}
		req.RegulationID = reg.ID
	}

	srch := searcher.NewSearcher(store, searcher.Options{DefaultLimit: cfg.Search.Limit})
	resp, err := srch.Search(cmd.Context(), req)
	if err != nil {
		return err
	}

	printSearchResponse(cmd.OutOrStdout(), resp)
	return nil
}

func printSearchResponse(out io.Writer, resp *searcher.Response) {
	if len(resp.Results) == 0 {
		fmt.Fprintln(out, "No matches")
		return
	}
	for _, m := range resp.Results {
		fmt.Fprintf(out, "[%d] #%d %s\n", m.Rank, m.Entry.ID, m.Breadcrumb)
		fmt.Fprintln(out, m.Text)
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "%d results", resp.TotalResults)
	if resp.Duplicates > 0 {
		fmt.Fprintf(out, " (%d duplicates dropped)", resp.Duplicates)
	}
	fmt.Fprintf(out, " in %s\n", resp.Duration.Round(time.Microsecond))
}
