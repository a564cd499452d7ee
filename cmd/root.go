package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jacklau/scout/internal/config"
	"github.com/jacklau/scout/internal/github"
	"github.com/jacklau/scout/internal/pipeline"
	"github.com/jacklau/scout/internal/provider"
	"github.com/jacklau/scout/internal/search"
	"github.com/jacklau/scout/internal/store"
	"github.com/jacklau/scout/internal/summarize"
	"github.com/jacklau/scout/internal/vector"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Crawl GitHub repos and answer questions about them",
	Long: `Scout crawls GitHub repositories, issues and pull requests into a
local store, summarizes them with LLMs, indexes the summaries in a
vector store, and answers natural-language questions over the result.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default %s)", defaultConfigPath()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scout/config.yaml"
	}
	return home + "/.scout/config.yaml"
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = defaultConfigPath()
	}
	return config.Load(path)
}

// components holds initialized components for use by subcommands.
type components struct {
	Config    *config.Config
	Store     *store.DB
	GitHub    *github.Client
	Embedder  provider.Embedder
	Completer provider.Completer
	Vector    *vector.Client
	Generator *summarize.Generator
	Searcher  *search.Searcher
	Pipeline  *pipeline.Pipeline
	Logger    *slog.Logger
}

// initComponents creates all components from config. The GitHub client is
// nil when no credentials are configured; commands that crawl check for it.
func initComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	c := &components{
		Config: cfg,
		Logger: logger,
	}

	// Open store
	db, err := store.Open(config.ExpandPath(cfg.Store.Path))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	c.Store = db

	// Create GitHub client
	if cfg.GitHub.Token != "" || cfg.GitHub.AppID != "" {
		opts := github.Options{
			Token:          cfg.GitHub.Token,
			PrivateKey:     []byte(cfg.GitHub.PrivateKey),
			PrivateKeyPath: cfg.GitHub.PrivateKeyPath,
			MaxPages:       cfg.Crawl.MaxPages,
			PageSize:       cfg.Crawl.PageSize,
		}
		if cfg.GitHub.AppID != "" {
			opts.AppID, err = strconv.ParseInt(cfg.GitHub.AppID, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing app_id: %w", err)
			}
			opts.InstallationID, err = strconv.ParseInt(cfg.GitHub.InstallationID, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing installation_id: %w", err)
			}
		}
		client, err := github.NewClient(opts)
		if err != nil {
			return nil, fmt.Errorf("creating GitHub client: %w", err)
		}
		c.GitHub = client
	}

	// Create providers
	c.Embedder, err = provider.NewEmbedder(provider.Config{
		Type:   cfg.Providers.Embedding.Type,
		Model:  cfg.Providers.Embedding.Model,
		APIKey: cfg.Providers.Embedding.APIKey,
		URL:    cfg.Providers.Embedding.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}
	c.Completer, err = provider.NewCompleter(provider.Config{
		Type:   cfg.Providers.LLM.Type,
		Model:  cfg.Providers.LLM.Model,
		APIKey: cfg.Providers.LLM.APIKey,
		URL:    cfg.Providers.LLM.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	// Create vector store client
	c.Vector = vector.NewClient(cfg.Vector.URL, cfg.Vector.Collection).WithAPIKey(cfg.Vector.APIKey)

	// Create summary generator
	c.Generator = summarize.NewGenerator(c.Completer, summarize.Config{
		ShortInputThreshold: cfg.Summarize.ShortInputThreshold,
		LongInputMaxChars:   cfg.Summarize.LongInputMaxChars,
		ShortMaxTokens:      cfg.Summarize.ShortMaxTokens,
		LongMaxTokens:       cfg.Summarize.LongMaxTokens,
	})

	// Create searcher
	c.Searcher = search.NewSearcher(c.Embedder, c.Vector, search.Config{
		HybridThreshold: cfg.Search.HybridThreshold,
		PlainThreshold:  cfg.Search.PlainThreshold,
		CandidateLimit:  cfg.Search.CandidateLimit,
		ResultLimit:     cfg.Search.ResultLimit,
	})

	// Create pipeline
	c.Pipeline = pipeline.New(pipeline.Deps{
		Crawler:            c.GitHub,
		Store:              c.Store,
		Generator:          c.Generator,
		Embedder:           c.Embedder,
		Index:              c.Vector,
		Logger:             logger,
		SummarizeBatchSize: cfg.Summarize.BatchSize,
		IndexBatchSize:     cfg.Index.BatchSize,
	})

	return c, nil
}
