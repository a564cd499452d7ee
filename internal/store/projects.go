package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Project represents a crawled repository.
type Project struct {
	ProjectID   string
	Logo        string
	Language    string
	Stars       int64
	Description string
	Readme      string
}

// UpsertProject inserts a project or merges it into the existing row.
// Non-empty incoming text fields overwrite stored values; empty fields
// leave the stored value intact (last-write-wins merge). Stars always
// reflect the latest sighting.
func (d *DB) UpsertProject(p *Project) error {
	_, err := d.db.Exec(`
		INSERT INTO projects (project_id, project_logo, main_language, repo_stars, project_description, project_readme)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			project_logo = CASE WHEN excluded.project_logo <> '' THEN excluded.project_logo ELSE projects.project_logo END,
			main_language = CASE WHEN excluded.main_language <> '' THEN excluded.main_language ELSE projects.main_language END,
			repo_stars = excluded.repo_stars,
			project_description = CASE WHEN excluded.project_description <> '' THEN excluded.project_description ELSE projects.project_description END,
			project_readme = CASE WHEN excluded.project_readme <> '' THEN excluded.project_readme ELSE projects.project_readme END`,
		p.ProjectID, p.Logo, p.Language, p.Stars, p.Description, p.Readme,
	)
	if err != nil {
		return fmt.Errorf("upserting project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by its id.
func (d *DB) GetProject(projectID string) (*Project, error) {
	var p Project
	var logo, language, description, readme sql.NullString

	err := d.db.QueryRow(`
		SELECT project_id, project_logo, main_language, repo_stars, project_description, project_readme
		FROM projects WHERE project_id = ?`,
		projectID,
	).Scan(&p.ProjectID, &logo, &language, &p.Stars, &description, &readme)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}

	p.Logo = logo.String
	p.Language = language.String
	p.Description = description.String
	p.Readme = readme.String
	return &p, nil
}

// ProjectExists reports whether a project row exists. Absence is not an
// error; the error return is reserved for I/O failures.
func (d *DB) ProjectExists(projectID string) (bool, error) {
	var one int
	err := d.db.QueryRow(`SELECT 1 FROM projects WHERE project_id = ?`, projectID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking project existence: %w", err)
	}
	return true, nil
}

// ListProjectIDs returns up to limit project ids, oldest first.
func (d *DB) ListProjectIDs(limit int) ([]string, error) {
	rows, err := d.db.Query(`SELECT project_id FROM projects ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing project ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ProjectRepoQuery renders up to limit stored projects as a GitHub search
// clause of repo:owner/name terms, used to re-crawl known repositories.
// Project ids that are not GitHub repo URLs are skipped.
func (d *DB) ProjectRepoQuery(limit int) (string, error) {
	ids, err := d.ListProjectIDs(limit)
	if err != nil {
		return "", err
	}

	var terms []string
	for _, id := range ids {
		parts := strings.Split(id, "/")
		if len(parts) < 5 || parts[3] == "" || parts[4] == "" {
			continue
		}
		terms = append(terms, "repo:"+parts[3]+"/"+parts[4])
	}
	return strings.Join(terms, " "), nil
}

// UnsummarizedProjects returns up to limit projects that have no summary
// record at all (anti-join): the presence of any summaries row, indexed or
// not, removes a project from this backlog.
func (d *DB) UnsummarizedProjects(limit int) ([]Project, error) {
	rows, err := d.db.Query(`
		SELECT project_id, project_logo, main_language, repo_stars, project_description, project_readme
		FROM projects
		WHERE project_id NOT IN (SELECT entity_id FROM summaries)
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying unsummarized projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		var logo, language, description, readme sql.NullString
		if err := rows.Scan(&p.ProjectID, &logo, &language, &p.Stars, &description, &readme); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		p.Logo = logo.String
		p.Language = language.String
		p.Description = description.String
		p.Readme = readme.String
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
