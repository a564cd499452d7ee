package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexAll bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Push summaries into the vector store",
	Long: `Drain one batch of summaries that have not been indexed yet: embed
each summary and upsert the point. With --all, keep draining batches
until the backlog is empty.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexAll, "all", false, "drain the whole backlog, not just one batch")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
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

	if err := c.Vector.EnsureCollection(cmd.Context(), cfg.Vector.Dimensions); err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}

	total := 0
	for {
		indexed, err := c.Pipeline.IndexBatch(cmd.Context())
		if err != nil {
			return fmt.Errorf("indexing: %w", err)
		}
		total += indexed
		if !indexAll || indexed == 0 {
			break
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "entities indexed: %d\n", total)
	return nil
}
