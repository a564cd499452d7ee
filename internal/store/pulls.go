package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// PullRequest represents a merged pull request.
type PullRequest struct {
	PullID    string
	Title     string
	Author    string
	ProjectID string
	MergedAt  string
}

// InsertPullRequest records a merged pull request. Insert-only; a repeat
// sighting of the same pull_id is ignored.
func (d *DB) InsertPullRequest(pull *PullRequest) error {
	_, err := d.db.Exec(`
		INSERT INTO pull_requests (pull_id, pull_title, pull_author, project_id, date_merged)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(pull_id) DO NOTHING`,
		pull.PullID, pull.Title, pull.Author, pull.ProjectID, pull.MergedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting pull request: %w", err)
	}
	return nil
}

// PullRequestExists reports whether a pull request row exists.
func (d *DB) PullRequestExists(pullID string) (bool, error) {
	var one int
	err := d.db.QueryRow(`SELECT 1 FROM pull_requests WHERE pull_id = ?`, pullID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking pull request existence: %w", err)
	}
	return true, nil
}
