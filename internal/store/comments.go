package store

import "fmt"

// Comment is a single issue comment, deduplicated on (issue_id, comment_date).
type Comment struct {
	IssueID string
	Creator string
	Date    string
	Body    string
}

// InsertComment records a comment. A duplicate (issue_id, comment_date) pair
// is silently ignored so concurrent crawlers converge without surfacing
// constraint violations.
func (d *DB) InsertComment(c *Comment) error {
	_, err := d.db.Exec(`
		INSERT INTO issue_comments (issue_id, comment_creator, comment_date, comment_body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(issue_id, comment_date) DO NOTHING`,
		c.IssueID, c.Creator, c.Date, c.Body,
	)
	if err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}
	return nil
}

// CommentsForIssue returns all stored comments for an issue in date order.
func (d *DB) CommentsForIssue(issueID string) ([]Comment, error) {
	rows, err := d.db.Query(`
		SELECT issue_id, comment_creator, comment_date, comment_body
		FROM issue_comments WHERE issue_id = ? ORDER BY comment_date`,
		issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.IssueID, &c.Creator, &c.Date, &c.Body); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
