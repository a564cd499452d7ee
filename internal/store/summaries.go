package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Summary is the bridge record between the relational store and the vector
// index: entity_id is a project or issue id (shared namespace), and the
// indexed flag flips to true only after a successful vector upsert.
type Summary struct {
	EntityID string
	Summary  string
	Keywords []string
	Indexed  bool
}

// UpsertSummary inserts or overwrites the summary record for an entity.
// Both summary text and keyword tags are overwritten on conflict; the
// indexed flag is left untouched so a re-summarized entity keeps its
// place in the indexing backlog.
func (d *DB) UpsertSummary(entityID, summary string, keywords []string) error {
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("marshaling keywords: %w", err)
	}

	_, err = d.db.Exec(`
		INSERT INTO summaries (entity_id, summary, keyword_tags)
		VALUES (?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			summary = excluded.summary,
			keyword_tags = excluded.keyword_tags`,
		entityID, summary, string(keywordsJSON),
	)
	if err != nil {
		return fmt.Errorf("upserting summary: %w", err)
	}
	return nil
}

// GetSummary retrieves the summary record for an entity.
func (d *DB) GetSummary(entityID string) (*Summary, error) {
	var s Summary
	var keywords string
	var indexed int

	err := d.db.QueryRow(`
		SELECT entity_id, summary, keyword_tags, indexed
		FROM summaries WHERE entity_id = ?`,
		entityID,
	).Scan(&s.EntityID, &s.Summary, &keywords, &indexed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting summary: %w", err)
	}

	s.Indexed = indexed != 0
	if keywords != "" {
		_ = json.Unmarshal([]byte(keywords), &s.Keywords)
	}
	return &s, nil
}

// UnindexedSummaries returns up to limit summary records whose content has
// not yet been upserted into the vector index.
func (d *DB) UnindexedSummaries(limit int) ([]Summary, error) {
	rows, err := d.db.Query(`
		SELECT entity_id, summary, keyword_tags, indexed
		FROM summaries WHERE indexed = 0 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying unindexed summaries: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var s Summary
		var keywords string
		var indexed int
		if err := rows.Scan(&s.EntityID, &s.Summary, &keywords, &indexed); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		s.Indexed = indexed != 0
		if keywords != "" {
			_ = json.Unmarshal([]byte(keywords), &s.Keywords)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// MarkIndexed flips the indexed flag for an entity after a successful
// vector-index upsert.
func (d *DB) MarkIndexed(entityID string) error {
	_, err := d.db.Exec(`UPDATE summaries SET indexed = 1 WHERE entity_id = ?`, entityID)
	if err != nil {
		return fmt.Errorf("marking summary indexed: %w", err)
	}
	return nil
}

// BacklogCounts returns the number of unsummarized entities and the number
// of summarized-but-unindexed records, for operational visibility.
func (d *DB) BacklogCounts() (unsummarized, unindexed int, err error) {
	err = d.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM issues_open WHERE issue_id NOT IN (SELECT entity_id FROM summaries)) +
			(SELECT COUNT(*) FROM projects WHERE project_id NOT IN (SELECT entity_id FROM summaries)),
			(SELECT COUNT(*) FROM summaries WHERE indexed = 0)`,
	).Scan(&unsummarized, &unindexed)
	if err != nil {
		return 0, 0, fmt.Errorf("counting backlog: %w", err)
	}
	return unsummarized, unindexed, nil
}
