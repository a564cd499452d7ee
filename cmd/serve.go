package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jacklau/scout/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP control surface",
	Long: `Start the HTTP server exposing the crawl trigger, search, chat,
comment and vector-admin endpoints. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	if c.GitHub == nil {
		return fmt.Errorf("no GitHub credentials configured; the /run endpoint needs them")
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	srv := server.New(server.Deps{
		Runner:     c.Pipeline,
		Searcher:   c.Searcher,
		Completer:  c.Completer,
		Vector:     c.Vector,
		Comments:   c.Store,
		Logger:     logger,
		Dimensions: cfg.Vector.Dimensions,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx, addr)
}
