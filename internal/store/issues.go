package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// OpenIssue represents an issue first observed in the open state.
type OpenIssue struct {
	IssueID     string
	ProjectID   string
	Title       string
	Creator     string
	Budget      *int64
	Description string
}

// ClosedIssue is an append-only close event for an issue.
type ClosedIssue struct {
	IssueID   string
	Assignees []string
	LinkedPR  string
}

// AssignedIssue is an append-only assignment event for an issue.
type AssignedIssue struct {
	IssueID      string
	Assignee     string
	DateAssigned string
}

// InsertOpenIssue records an issue sighting. Issues are insert-only: a
// second sighting of the same issue_id is ignored, never merged.
func (d *DB) InsertOpenIssue(issue *OpenIssue) error {
	_, err := d.db.Exec(`
		INSERT INTO issues_open (issue_id, project_id, issue_title, issue_creator, issue_budget, issue_description)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(issue_id) DO NOTHING`,
		issue.IssueID, issue.ProjectID, issue.Title, issue.Creator, issue.Budget, issue.Description,
	)
	if err != nil {
		return fmt.Errorf("inserting open issue: %w", err)
	}
	return nil
}

// GetOpenIssue retrieves an open issue by id.
func (d *DB) GetOpenIssue(issueID string) (*OpenIssue, error) {
	var issue OpenIssue
	var creator, description sql.NullString
	var budget sql.NullInt64

	err := d.db.QueryRow(`
		SELECT issue_id, project_id, issue_title, issue_creator, issue_budget, issue_description
		FROM issues_open WHERE issue_id = ?`,
		issueID,
	).Scan(&issue.IssueID, &issue.ProjectID, &issue.Title, &creator, &budget, &description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting open issue: %w", err)
	}

	issue.Creator = creator.String
	issue.Description = description.String
	if budget.Valid {
		issue.Budget = &budget.Int64
	}
	return &issue, nil
}

// IssueExists reports whether an issue row exists.
func (d *DB) IssueExists(issueID string) (bool, error) {
	var one int
	err := d.db.QueryRow(`SELECT 1 FROM issues_open WHERE issue_id = ?`, issueID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking issue existence: %w", err)
	}
	return true, nil
}

// InsertClosedIssue appends a close event. The assignee list is stored as JSON.
func (d *DB) InsertClosedIssue(issue *ClosedIssue) error {
	assigneesJSON, err := json.Marshal(issue.Assignees)
	if err != nil {
		return fmt.Errorf("marshaling assignees: %w", err)
	}

	_, err = d.db.Exec(`
		INSERT INTO issues_closed (issue_id, issue_assignees, issue_linked_pr)
		VALUES (?, ?, ?)`,
		issue.IssueID, string(assigneesJSON), issue.LinkedPR,
	)
	if err != nil {
		return fmt.Errorf("inserting closed issue: %w", err)
	}
	return nil
}

// InsertAssignedIssue appends an assignment event.
func (d *DB) InsertAssignedIssue(issue *AssignedIssue) error {
	_, err := d.db.Exec(`
		INSERT INTO issues_assigned (issue_id, issue_assignee, date_assigned)
		VALUES (?, ?, ?)`,
		issue.IssueID, issue.Assignee, issue.DateAssigned,
	)
	if err != nil {
		return fmt.Errorf("inserting assigned issue: %w", err)
	}
	return nil
}

// UnsummarizedIssues returns up to limit open issues with no summary record
// (anti-join selection, see UnsummarizedProjects).
func (d *DB) UnsummarizedIssues(limit int) ([]OpenIssue, error) {
	rows, err := d.db.Query(`
		SELECT issue_id, project_id, issue_title, issue_creator, issue_budget, issue_description
		FROM issues_open
		WHERE issue_id NOT IN (SELECT entity_id FROM summaries)
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying unsummarized issues: %w", err)
	}
	defer rows.Close()

	var issues []OpenIssue
	for rows.Next() {
		var issue OpenIssue
		var creator, description sql.NullString
		var budget sql.NullInt64
		if err := rows.Scan(&issue.IssueID, &issue.ProjectID, &issue.Title, &creator, &budget, &description); err != nil {
			return nil, fmt.Errorf("scanning issue: %w", err)
		}
		issue.Creator = creator.String
		issue.Description = description.String
		if budget.Valid {
			issue.Budget = &budget.Int64
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}
