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

const articleColumns = `id, project_id, pdf_path, original_filename,
	file_size_bytes, title, authors, journal, year, doi,
	full_text, abstract, methods, results, discussion,
	extraction_status, extraction_error, created_at, updated_at`

// InsertArticle inserts a freshly ingested article and returns its ID.
func (s *Store) InsertArticle(ctx context.Context, a *types.Article) (int64, error) {
	if a.ProjectID == 0 {
		return 0, fmt.Errorf("article requires a project ID")
	}

	status := a.ExtractionStatus
	if status == "" {
		status = types.ExtractionPending
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (project_id, pdf_path, original_filename,
			file_size_bytes, title, authors, journal, year, doi,
			full_text, abstract, methods, results, discussion,
			extraction_status, extraction_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ProjectID, a.PDFPath, a.OriginalFilename,
		a.FileSizeBytes, a.Title, a.Authors, a.Journal, a.Year, a.DOI,
		a.FullText, a.Abstract, a.Methods, a.Results, a.Discussion,
		status, a.ExtractionError,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("inserting article: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading article ID: %w", err)
	}
	a.ID = id
	a.ExtractionStatus = status
	a.CreatedAt = now
	a.UpdatedAt = now
	return id, nil
}

// UpdateArticle rewrites the mutable fields of an article: extracted text,
// sections, bibliographic metadata, and extraction status.
func (s *Store) UpdateArticle(ctx context.Context, a *types.Article) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE articles SET title = ?, authors = ?, journal = ?, year = ?,
			doi = ?, full_text = ?, abstract = ?, methods = ?, results = ?,
			discussion = ?, extraction_status = ?, extraction_error = ?,
			updated_at = ?
		WHERE id = ?`,
		a.Title, a.Authors, a.Journal, a.Year, a.DOI,
		a.FullText, a.Abstract, a.Methods, a.Results, a.Discussion,
		a.ExtractionStatus, a.ExtractionError,
		time.Now().UTC().Format(time.RFC3339), a.ID)
	if err != nil {
		return fmt.Errorf("updating article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("article %d: %w", a.ID, ErrNotFound)
	}
	return nil
}

// GetArticle loads one article by ID.
func (s *Store) GetArticle(ctx context.Context, id int64) (*types.Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)

	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("article %d: %w", id, ErrNotFound)
	}
	return a, err
}

// ListArticles returns the articles of a project in ingestion order.
func (s *Store) ListArticles(ctx context.Context, projectID int64) ([]types.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE project_id = ? ORDER BY id`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

// SearchArticles runs a full-text query over title, abstract, and body of a
// project's articles, ranked by relevance.
func (s *Store) SearchArticles(ctx context.Context, projectID int64, query string) ([]types.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+articleColumns+` FROM articles
		WHERE project_id = ? AND id IN
			(SELECT rowid FROM articles_fts WHERE articles_fts MATCH ? ORDER BY rank)`,
		projectID, query)
	if err != nil {
		return nil, fmt.Errorf("searching articles: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

func collectArticles(rows *sql.Rows) ([]types.Article, error) {
	var articles []types.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

func scanArticle(row rowScanner) (*types.Article, error) {
	var (
		a                                      types.Article
		fileSize                               sql.NullInt64
		title, authors, journal, doi           sql.NullString
		year                                   sql.NullInt64
		fullText, abstract, methods            sql.NullString
		results, discussion, extractionError   sql.NullString
		createdAt, updatedAt                   string
	)
	err := row.Scan(&a.ID, &a.ProjectID, &a.PDFPath, &a.OriginalFilename,
		&fileSize, &title, &authors, &journal, &year, &doi,
		&fullText, &abstract, &methods, &results, &discussion,
		&a.ExtractionStatus, &extractionError, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.FileSizeBytes = fileSize.Int64
	a.Title = title.String
	a.Authors = authors.String
	a.Journal = journal.String
	a.Year = int(year.Int64)
	a.DOI = doi.String
	a.FullText = fullText.String
	a.Abstract = abstract.String
	a.Methods = methods.String
	a.Results = results.String
	a.Discussion = discussion.String
	a.ExtractionError = extractionError.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}
