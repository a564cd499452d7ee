package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var summarizeAll bool

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate summaries for crawled entities",
	Long: `Drain one batch of unsummarized issues and projects through the LLM
provider and persist the summaries. With --all, keep draining batches
until the backlog is empty.`,
	Args: cobra.NoArgs,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().BoolVar(&summarizeAll, "all", false, "drain the whole backlog, not just one batch")
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
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

	total := 0
	for {
		written, err := c.Pipeline.SummarizeBatch(cmd.Context())
		if err != nil {
			return fmt.Errorf("summarizing: %w", err)
		}
		total += written
		if !summarizeAll || written == 0 {
			break
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "summaries written: %d\n", total)
	return nil
}
