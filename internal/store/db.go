package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// ErrNotFound is returned by row-level getters when no matching row exists.
// Existence checks never return it; they report absence as (false, nil).
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite database connection for crawl and summary storage.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database (useful for testing).
func Open(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	} else {
		dsn = ":memory:?_pragma=foreign_keys(ON)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set connection pool to 1 for SQLite
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &DB{db: sqlDB}
	if err := store.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Conn returns the underlying *sql.DB for advanced use cases.
func (d *DB) Conn() *sql.DB {
	return d.db
}

func (d *DB) migrate() error {
	var version int
	err := d.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("reading user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := d.migrateV1(); err != nil {
			return err
		}
	}

	_, err = d.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	if err != nil {
		return fmt.Errorf("setting user_version: %w", err)
	}

	return nil
}

func (d *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			project_id TEXT PRIMARY KEY,
			project_logo TEXT,
			main_language TEXT,
			repo_stars INTEGER NOT NULL DEFAULT 0,
			project_description TEXT,
			project_readme TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS issues_open (
			issue_id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			issue_title TEXT NOT NULL,
			issue_creator TEXT,
			issue_budget INTEGER,
			issue_description TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_open_project ON issues_open(project_id)`,
		`CREATE TABLE IF NOT EXISTS issues_closed (
			issue_id TEXT NOT NULL,
			issue_assignees TEXT,
			issue_linked_pr TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_closed_issue ON issues_closed(issue_id)`,
		`CREATE TABLE IF NOT EXISTS issues_assigned (
			issue_id TEXT NOT NULL,
			issue_assignee TEXT,
			date_assigned TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_assigned_issue ON issues_assigned(issue_id)`,
		`CREATE TABLE IF NOT EXISTS issue_comments (
			issue_id TEXT NOT NULL,
			comment_creator TEXT,
			comment_date TEXT NOT NULL,
			comment_body TEXT,
			UNIQUE(issue_id, comment_date)
		)`,
		`CREATE TABLE IF NOT EXISTS pull_requests (
			pull_id TEXT PRIMARY KEY,
			pull_title TEXT,
			pull_author TEXT,
			project_id TEXT,
			date_merged TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS summaries (
			entity_id TEXT PRIMARY KEY,
			summary TEXT NOT NULL,
			keyword_tags TEXT NOT NULL DEFAULT '[]',
			indexed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_indexed ON summaries(indexed)`,
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration statement: %w", err)
		}
	}

	return tx.Commit()
}
