// Package pipeline orchestrates the crawl → summarize → index flow.
// Entities move through three states: crawled rows with no summary record
// are unsummarized; a summaries row with indexed=0 awaits a vector upsert;
// the indexed flag flips only after the upsert succeeds. Batches isolate
// per-item failures so one bad entity never stalls the rest.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jacklau/scout/internal/github"
	"github.com/jacklau/scout/internal/provider"
	"github.com/jacklau/scout/internal/retry"
	"github.com/jacklau/scout/internal/store"
	"github.com/jacklau/scout/internal/summarize"
	"github.com/jacklau/scout/internal/vector"
)

const (
	// DefaultBatchSize caps how many entities a summarize or index batch
	// drains per cycle.
	DefaultBatchSize = 50

	// embedAttempts is how often a failed embedding is retried during
	// indexing.
	embedAttempts = 3
)

// Crawler is the subset of the GitHub client the pipeline drives.
type Crawler interface {
	SearchRepos(ctx context.Context, query string) ([]github.RepoData, error)
	SearchOpenIssues(ctx context.Context, query string) ([]github.OpenIssue, error)
	SearchClosedIssues(ctx context.Context, query string) ([]github.ClosedIssue, error)
	SearchAssignedIssues(ctx context.Context, query string) ([]github.AssignedIssue, error)
	SearchPullRequests(ctx context.Context, query string) ([]github.MergedPull, error)
	FetchComments(ctx context.Context, issueURL string) ([]github.IssueComment, error)
}

// Summarizer generates summaries for issues and projects.
type Summarizer interface {
	Issue(ctx context.Context, in summarize.Issue) (summarize.Result, error)
	Project(ctx context.Context, in summarize.Project) (summarize.Result, error)
}

// Indexer is the subset of the vector store client the pipeline writes to.
type Indexer interface {
	Upsert(ctx context.Context, points []vector.Point) error
}

// Deps holds the pipeline's collaborators.
type Deps struct {
	Crawler   Crawler
	Store     store.Store
	Generator Summarizer
	Embedder  provider.Embedder
	Index     Indexer
	Logger    *slog.Logger

	SummarizeBatchSize int
	IndexBatchSize     int
}

// Pipeline runs crawl, summarize and index cycles.
type Pipeline struct {
	deps Deps
}

// New creates a Pipeline. Zero batch sizes get the default.
func New(deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.SummarizeBatchSize <= 0 {
		deps.SummarizeBatchSize = DefaultBatchSize
	}
	if deps.IndexBatchSize <= 0 {
		deps.IndexBatchSize = DefaultBatchSize
	}
	return &Pipeline{deps: deps}
}

// CrawlQueries names the search strings for one crawl cycle. An empty
// field skips that walk.
type CrawlQueries struct {
	Repos          string
	OpenIssues     string
	ClosedIssues   string
	AssignedIssues string
	Pulls          string

	// FetchComments pulls the comment threads of every open issue found
	// in this cycle.
	FetchComments bool
}

// CrawlStats counts what one crawl cycle persisted.
type CrawlStats struct {
	Projects       int
	OpenIssues     int
	ClosedIssues   int
	AssignedIssues int
	Pulls          int
	Comments       int
}

// Crawl runs the requested walks and persists the results. A failed walk
// aborts the cycle; a failed row write is logged and skipped so the rest
// of the page still lands.
func (p *Pipeline) Crawl(ctx context.Context, queries CrawlQueries) (*CrawlStats, error) {
	log := p.deps.Logger
	stats := &CrawlStats{}

	if queries.Repos != "" {
		repos, err := p.deps.Crawler.SearchRepos(ctx, queries.Repos)
		if err != nil {
			return stats, err
		}
		for _, r := range repos {
			err := p.deps.Store.UpsertProject(&store.Project{
				ProjectID:   r.ProjectID,
				Logo:        r.Logo,
				Language:    r.MainLanguage,
				Stars:       r.Stars,
				Description: r.Description,
				Readme:      r.Readme,
			})
			if err != nil {
				log.Error("storing project", "project", r.ProjectID, "error", err)
				continue
			}
			stats.Projects++
		}
	}

	if queries.OpenIssues != "" {
		issues, err := p.deps.Crawler.SearchOpenIssues(ctx, queries.OpenIssues)
		if err != nil {
			return stats, err
		}
		for _, issue := range issues {
			err := p.deps.Store.InsertOpenIssue(&store.OpenIssue{
				IssueID:     issue.IssueID,
				ProjectID:   issue.ProjectID,
				Title:       issue.Title,
				Creator:     issue.Creator,
				Description: issue.Description,
			})
			if err != nil {
				log.Error("storing open issue", "issue", issue.IssueID, "error", err)
				continue
			}
			stats.OpenIssues++

			if queries.FetchComments {
				n, err := p.crawlComments(ctx, issue.IssueID)
				if err != nil {
					log.Error("fetching comments", "issue", issue.IssueID, "error", err)
					continue
				}
				stats.Comments += n
			}
		}
	}

	if queries.ClosedIssues != "" {
		issues, err := p.deps.Crawler.SearchClosedIssues(ctx, queries.ClosedIssues)
		if err != nil {
			return stats, err
		}
		for _, issue := range issues {
			err := p.deps.Store.InsertClosedIssue(&store.ClosedIssue{
				IssueID:   issue.IssueID,
				Assignees: issue.Assignees,
				LinkedPR:  issue.LinkedPR,
			})
			if err != nil {
				log.Error("storing closed issue", "issue", issue.IssueID, "error", err)
				continue
			}
			stats.ClosedIssues++
		}
	}

	if queries.AssignedIssues != "" {
		issues, err := p.deps.Crawler.SearchAssignedIssues(ctx, queries.AssignedIssues)
		if err != nil {
			return stats, err
		}
		for _, issue := range issues {
			err := p.deps.Store.InsertAssignedIssue(&store.AssignedIssue{
				IssueID:      issue.IssueID,
				Assignee:     issue.Assignee,
				DateAssigned: issue.DateAssigned,
			})
			if err != nil {
				log.Error("storing assignment", "issue", issue.IssueID, "error", err)
				continue
			}
			stats.AssignedIssues++
		}
	}

	if queries.Pulls != "" {
		pulls, err := p.deps.Crawler.SearchPullRequests(ctx, queries.Pulls)
		if err != nil {
			return stats, err
		}
		for _, pull := range pulls {
			err := p.deps.Store.InsertPullRequest(&store.PullRequest{
				PullID:    pull.PullID,
				Title:     pull.Title,
				Author:    pull.Author,
				ProjectID: pull.ProjectID,
				MergedAt:  pull.MergedAt,
			})
			if err != nil {
				log.Error("storing pull request", "pull", pull.PullID, "error", err)
				continue
			}
			stats.Pulls++
		}
	}

	log.Info("crawl cycle complete",
		"projects", stats.Projects,
		"open_issues", stats.OpenIssues,
		"closed_issues", stats.ClosedIssues,
		"assignments", stats.AssignedIssues,
		"pulls", stats.Pulls,
		"comments", stats.Comments,
	)
	return stats, nil
}

func (p *Pipeline) crawlComments(ctx context.Context, issueURL string) (int, error) {
	comments, err := p.deps.Crawler.FetchComments(ctx, issueURL)
	if err != nil {
		return 0, err
	}
	stored := 0
	for _, c := range comments {
		err := p.deps.Store.InsertComment(&store.Comment{
			IssueID: c.IssueID,
			Creator: c.Creator,
			Date:    c.CreatedAt,
			Body:    c.Body,
		})
		if err != nil {
			p.deps.Logger.Error("storing comment", "issue", c.IssueID, "error", err)
			continue
		}
		stored++
	}
	return stored, nil
}

// repoQueryLimit caps how many stored projects one re-crawl cycle covers.
const repoQueryLimit = 100

// RunCycle re-crawls the stored projects and drains one summarize and one
// index batch. This is the periodic refresh behind the /run endpoint.
func (p *Pipeline) RunCycle(ctx context.Context) error {
	query, err := p.deps.Store.ProjectRepoQuery(repoQueryLimit)
	if err != nil {
		return err
	}
	if query != "" {
		if _, err := p.Crawl(ctx, CrawlQueries{Repos: query}); err != nil {
			return err
		}
	}
	if _, err := p.SummarizeBatch(ctx); err != nil {
		return err
	}
	if _, err := p.IndexBatch(ctx); err != nil {
		return err
	}
	return nil
}

// SummarizeBatch drains one batch of unsummarized issues and projects
// through the generator. A completion failure skips the entity, leaving it
// in the backlog; an unparseable reply persists an empty summary so the
// entity is not re-queued. Returns how many summaries were written.
func (p *Pipeline) SummarizeBatch(ctx context.Context) (int, error) {
	log := p.deps.Logger
	written := 0

	issues, err := p.deps.Store.UnsummarizedIssues(p.deps.SummarizeBatchSize)
	if err != nil {
		return 0, err
	}
	for _, issue := range issues {
		res, err := p.deps.Generator.Issue(ctx, summarize.Issue{
			ID:          issue.IssueID,
			Title:       issue.Title,
			Description: issue.Description,
		})
		if err != nil {
			log.Error("summarizing issue", "issue", issue.IssueID, "error", err)
			continue
		}
		if err := p.deps.Store.UpsertSummary(issue.IssueID, res.Summary, res.Keywords); err != nil {
			log.Error("storing summary", "issue", issue.IssueID, "error", err)
			continue
		}
		written++
	}

	projects, err := p.deps.Store.UnsummarizedProjects(p.deps.SummarizeBatchSize)
	if err != nil {
		return written, err
	}
	for _, project := range projects {
		res, err := p.deps.Generator.Project(ctx, summarize.Project{
			ID:           project.ProjectID,
			Description:  project.Description,
			Readme:       project.Readme,
			MainLanguage: project.Language,
		})
		if err != nil {
			log.Error("summarizing project", "project", project.ProjectID, "error", err)
			continue
		}
		if err := p.deps.Store.UpsertSummary(project.ProjectID, res.Summary, res.Keywords); err != nil {
			log.Error("storing summary", "project", project.ProjectID, "error", err)
			continue
		}
		written++
	}

	log.Info("summarize batch complete", "written", written)
	return written, nil
}

// IndexBatch drains one batch of summaries with indexed=0: embed the
// summary text, upsert the point, then flip the indexed flag. Any failure
// leaves the flag at 0 so the entity is retried next cycle. Returns how
// many entities were indexed.
func (p *Pipeline) IndexBatch(ctx context.Context) (int, error) {
	log := p.deps.Logger

	summaries, err := p.deps.Store.UnindexedSummaries(p.deps.IndexBatchSize)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, s := range summaries {
		var vec []float32
		err := retry.DoIf(ctx, embedAttempts, func() error {
			var embedErr error
			vec, embedErr = p.deps.Embedder.Embed(ctx, s.Summary)
			return embedErr
		}, provider.IsRetryable)
		if err != nil {
			log.Error("embedding summary", "entity", s.EntityID, "error", err)
			continue
		}

		point := vector.Point{
			ID:     uuid.NewString(),
			Vector: vec,
			Payload: vector.Payload{
				EntityID: s.EntityID,
				Kind:     vector.KindForEntity(s.EntityID),
				Text:     s.Summary,
			},
		}
		if err := p.deps.Index.Upsert(ctx, []vector.Point{point}); err != nil {
			log.Error("upserting vector", "entity", s.EntityID, "error", err)
			continue
		}

		// The flag flips only after the upsert landed.
		if err := p.deps.Store.MarkIndexed(s.EntityID); err != nil {
			log.Error("marking indexed", "entity", s.EntityID, "error", err)
			continue
		}
		indexed++
	}

	log.Info("index batch complete", "indexed", indexed)
	return indexed, nil
}
