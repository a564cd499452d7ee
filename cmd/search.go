package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jacklau/scout/internal/search"
)

var searchPlain bool

var searchCmd = &cobra.Command{
	Use:   "search <question>",
	Short: "Answer a natural-language question over the indexed entities",
	Long: `Embed the question and rank indexed summaries by similarity. The
default hybrid mode reads intent from the question ("issue", "project")
and fills the result set accordingly; --plain skips intent handling and
returns the raw ranked hits.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchPlain, "plain", false, "skip intent handling and return raw ranked hits")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	c, err := initComponents(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Store.Close()

	question := strings.Join(args, " ")
	var results []search.Result
	if searchPlain {
		results, err = c.Searcher.Plain(cmd.Context(), question)
	} else {
		results, err = c.Searcher.Hybrid(cmd.Context(), question)
	}
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tKIND\tENTITY")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%s\t%s\n", r.Score, r.Kind, r.EntityID)
	}
	w.Flush()
	return nil
}
