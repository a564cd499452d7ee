package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var vectorDimensions int

var vectorCmd = &cobra.Command{
	Use:   "vector",
	Short: "Manage the vector store collection",
}

var vectorCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the collection if it does not exist",
	Args:  cobra.NoArgs,
	RunE:  runVectorCreate,
}

var vectorDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the collection and every point in it",
	Args:  cobra.NoArgs,
	RunE:  runVectorDelete,
}

var vectorStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the collection's point count",
	Args:  cobra.NoArgs,
	RunE:  runVectorStats,
}

func init() {
	vectorCreateCmd.Flags().IntVar(&vectorDimensions, "dimensions", 0, "vector size (overrides vector.dimensions)")
	vectorCmd.AddCommand(vectorCreateCmd)
	vectorCmd.AddCommand(vectorDeleteCmd)
	vectorCmd.AddCommand(vectorStatsCmd)
	rootCmd.AddCommand(vectorCmd)
}

func runVectorCreate(cmd *cobra.Command, args []string) error {
	c, err := vectorComponents()
	if err != nil {
		return err
	}
	defer c.Store.Close()

	dims := vectorDimensions
	if dims <= 0 {
		dims = c.Config.Vector.Dimensions
	}
	if err := c.Vector.EnsureCollection(cmd.Context(), dims); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "collection %s ready (%d dimensions)\n", c.Vector.Collection(), dims)
	return nil
}

func runVectorDelete(cmd *cobra.Command, args []string) error {
	c, err := vectorComponents()
	if err != nil {
		return err
	}
	defer c.Store.Close()

	if err := c.Vector.DropCollection(cmd.Context()); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "collection %s deleted\n", c.Vector.Collection())
	return nil
}

func runVectorStats(cmd *cobra.Command, args []string) error {
	c, err := vectorComponents()
	if err != nil {
		return err
	}
	defer c.Store.Close()

	info, err := c.Vector.Info(cmd.Context())
	if err != nil {
		return fmt.Errorf("querying collection: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "collection: %s\npoints:     %d\n", c.Vector.Collection(), info.PointsCount)
	return nil
}

func vectorComponents() (*components, error) {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	c, err := initComponents(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing components: %w", err)
	}
	return c, nil
}
