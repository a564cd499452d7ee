package store

// Store defines the storage operations used by the crawl pipeline and the
// summarization/indexing batches. It is satisfied by *DB and can be replaced
// with a mock for testing.
type Store interface {
	// UpsertProject inserts or merges a project record.
	UpsertProject(p *Project) error

	// InsertOpenIssue records an issue sighting (insert-only).
	InsertOpenIssue(issue *OpenIssue) error

	// InsertClosedIssue appends a close event.
	InsertClosedIssue(issue *ClosedIssue) error

	// InsertAssignedIssue appends an assignment event.
	InsertAssignedIssue(issue *AssignedIssue) error

	// InsertComment records a comment, ignoring composite-key duplicates.
	InsertComment(c *Comment) error

	// InsertPullRequest records a merged pull request.
	InsertPullRequest(pull *PullRequest) error

	// UpsertSummary inserts or overwrites an entity's summary and keywords.
	UpsertSummary(entityID, summary string, keywords []string) error

	// ProjectRepoQuery renders stored projects as a repo: search clause.
	ProjectRepoQuery(limit int) (string, error)

	// UnsummarizedIssues selects the issue backlog by anti-join.
	UnsummarizedIssues(limit int) ([]OpenIssue, error)

	// UnsummarizedProjects selects the project backlog by anti-join.
	UnsummarizedProjects(limit int) ([]Project, error)

	// UnindexedSummaries selects summaries awaiting a vector upsert.
	UnindexedSummaries(limit int) ([]Summary, error)

	// MarkIndexed flips the indexed flag after a successful upsert.
	MarkIndexed(entityID string) error
}

// Compile-time check that *DB satisfies the Store interface.
var _ Store = (*DB)(nil)
