package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jacklau/scout/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store, backlog and API quota overview",
	Long: `Display the summarization and indexing backlogs, the database size,
the vector collection size and the remaining GitHub API quota.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	unsummarized, unindexed, err := c.Store.BacklogCounts()
	if err != nil {
		return fmt.Errorf("counting backlog: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "unsummarized entities\t%d\n", unsummarized)
	fmt.Fprintf(w, "unindexed summaries\t%d\n", unindexed)

	if size, err := dbFileSize(config.ExpandPath(cfg.Store.Path)); err == nil {
		fmt.Fprintf(w, "database size\t%s\n", size)
	}

	if info, err := c.Vector.Info(cmd.Context()); err == nil {
		fmt.Fprintf(w, "vector points\t%d\n", info.PointsCount)
	} else {
		fmt.Fprintf(w, "vector points\tunavailable\n")
	}

	if c.GitHub != nil {
		rl, err := c.GitHub.GetRateLimit(cmd.Context())
		if err != nil {
			fmt.Fprintf(w, "API quota\tunavailable\n")
		} else {
			fmt.Fprintf(w, "API quota\t%d/%d remaining (resets %s)\n", rl.Remaining, rl.Limit, rl.ResetAt)
		}
	}
	w.Flush()
	return nil
}

// dbFileSize returns the store file size in a human-readable unit.
func dbFileSize(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	size := fi.Size()
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20)), nil
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10)), nil
	default:
		return fmt.Sprintf("%d B", size), nil
	}
}
