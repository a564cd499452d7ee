package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacklau/scout/internal/pipeline"
)

var (
	crawlRepos    bool
	crawlOpen     bool
	crawlClosed   bool
	crawlAssigned bool
	crawlPulls    bool
	crawlComments bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <query>",
	Short: "Crawl GitHub search results into the local store",
	Long: `Run the GitHub search walks for a query and persist everything found:
repositories, open and closed issues, assignments, merged pull requests
and (optionally) issue comment threads.

The query uses GitHub search syntax, e.g. "repo:golang/go label:bug".`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().BoolVar(&crawlRepos, "repos", true, "walk repository results")
	crawlCmd.Flags().BoolVar(&crawlOpen, "open-issues", true, "walk open issue results")
	crawlCmd.Flags().BoolVar(&crawlClosed, "closed-issues", true, "walk closed issue results")
	crawlCmd.Flags().BoolVar(&crawlAssigned, "assigned", true, "walk assigned issue results")
	crawlCmd.Flags().BoolVar(&crawlPulls, "pulls", true, "walk merged pull request results")
	crawlCmd.Flags().BoolVar(&crawlComments, "comments", false, "fetch comment threads for open issues")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("no GitHub credentials configured; set github.token or github.app_id in %s", defaultConfigPath())
	}

	query := args[0]
	queries := pipeline.CrawlQueries{FetchComments: crawlComments}
	if crawlRepos {
		queries.Repos = query
	}
	if crawlOpen {
		queries.OpenIssues = query
	}
	if crawlClosed {
		queries.ClosedIssues = query
	}
	if crawlAssigned {
		queries.AssignedIssues = query
	}
	if crawlPulls {
		queries.Pulls = query
	}

	stats, err := c.Pipeline.Crawl(cmd.Context(), queries)
	if err != nil {
		return fmt.Errorf("crawling: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "projects:        %d\n", stats.Projects)
	fmt.Fprintf(out, "open issues:     %d\n", stats.OpenIssues)
	fmt.Fprintf(out, "closed issues:   %d\n", stats.ClosedIssues)
	fmt.Fprintf(out, "assignments:     %d\n", stats.AssignedIssues)
	fmt.Fprintf(out, "pull requests:   %d\n", stats.Pulls)
	if crawlComments {
		fmt.Fprintf(out, "comments:        %d\n", stats.Comments)
	}
	return nil
}
