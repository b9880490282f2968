// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/review-engine/pkg/types"
)

// ErrNotFound reports a lookup for a row that does not exist.
var ErrNotFound = errors.New("not found")

// CreateProject inserts a new project and returns its ID.
func (s *Store) CreateProject(ctx context.Context, p *types.Project) (int64, error) {
	if p.Name == "" {
		return 0, fmt.Errorf("project name is required")
	}

	pico, err := marshalJSON(p.Criteria)
	if err != nil {
		return 0, err
	}
	inclusion, err := marshalJSON(p.InclusionCriteria)
	if err != nil {
		return 0, err
	}
	exclusion, err := marshalJSON(p.ExclusionCriteria)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (name, research_question, pico_criteria,
			inclusion_criteria, exclusion_criteria, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.ResearchQuestion, pico, inclusion, exclusion,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("inserting project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading project ID: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return id, nil
}

// UpdateProjectCriteria replaces the screening criteria of a project.
func (s *Store) UpdateProjectCriteria(ctx context.Context, id int64, criteria types.PICOCriteria, inclusion, exclusion []string) error {
	pico, err := marshalJSON(criteria)
	if err != nil {
		return err
	}
	inc, err := marshalJSON(inclusion)
	if err != nil {
		return err
	}
	exc, err := marshalJSON(exclusion)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET pico_criteria = ?, inclusion_criteria = ?,
			exclusion_criteria = ?, updated_at = ?
		WHERE id = ?`,
		pico, inc, exc, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating project criteria: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetProject loads one project by ID.
func (s *Store) GetProject(ctx context.Context, id int64) (*types.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, research_question, pico_criteria,
			inclusion_criteria, exclusion_criteria, created_at, updated_at
		FROM projects WHERE id = ?`, id)

	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return p, err
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]types.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, research_question, pico_criteria,
			inclusion_criteria, exclusion_criteria, created_at, updated_at
		FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*types.Project, error) {
	var (
		p                          types.Project
		question                   sql.NullString
		pico, inclusion, exclusion sql.NullString
		createdAt, updatedAt       string
	)
	err := row.Scan(&p.ID, &p.Name, &question, &pico, &inclusion, &exclusion,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.ResearchQuestion = question.String
	if err := unmarshalJSON(pico, &p.Criteria); err != nil {
		return nil, fmt.Errorf("decoding PICO criteria: %w", err)
	}
	if err := unmarshalJSON(inclusion, &p.InclusionCriteria); err != nil {
		return nil, fmt.Errorf("decoding inclusion criteria: %w", err)
	}
	if err := unmarshalJSON(exclusion, &p.ExclusionCriteria); err != nil {
		return nil, fmt.Errorf("decoding exclusion criteria: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}
