// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists review projects, articles, screening decisions,
// and extracted data in a SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/review-engine/pkg/types"
)

const dbFile = "review.db"

// Store manages the review SQLite database.
type Store struct {
	db      *sql.DB
	dataDir string
}

// New opens or creates the review database at dataDir/review.db and
// creates the schema if it does not exist.
func New(cfg types.StoreConfig) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dataDir: dataDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// PDFDir returns the directory for stored PDF copies of a project.
func (s *Store) PDFDir(projectID int64) string {
	return filepath.Join(s.dataDir, "pdfs", fmt.Sprintf("%d", projectID))
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			research_question TEXT,
			pico_criteria TEXT,
			inclusion_criteria TEXT,
			exclusion_criteria TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES projects(id),
			pdf_path TEXT NOT NULL,
			original_filename TEXT NOT NULL,
			file_size_bytes INTEGER,
			title TEXT,
			authors TEXT,
			journal TEXT,
			year INTEGER,
			doi TEXT,
			full_text TEXT,
			abstract TEXT,
			methods TEXT,
			results TEXT,
			discussion TEXT,
			extraction_status TEXT NOT NULL DEFAULT 'pending',
			extraction_error TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_project_id ON articles(project_id)`,
		`CREATE TABLE IF NOT EXISTS screening_decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			article_id INTEGER NOT NULL UNIQUE REFERENCES articles(id),
			decision TEXT NOT NULL,
			confidence INTEGER,
			reasoning TEXT NOT NULL,
			ai_provider TEXT NOT NULL,
			model_votes TEXT,
			consensus_type TEXT,
			cost_usd REAL NOT NULL DEFAULT 0,
			is_manual_override INTEGER NOT NULL DEFAULT 0,
			override_reason TEXT,
			decided_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS extracted_data (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			article_id INTEGER NOT NULL UNIQUE REFERENCES articles(id),
			population TEXT,
			intervention TEXT,
			comparison TEXT,
			study_design TEXT,
			sample_size INTEGER,
			primary_outcomes TEXT,
			secondary_outcomes TEXT,
			risk_of_bias TEXT,
			extracted_by TEXT NOT NULL,
			ai_model TEXT,
			extraction_confidence INTEGER,
			manual_edits_made INTEGER NOT NULL DEFAULT 0,
			extracted_at TEXT NOT NULL,
			last_edited_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ai_usage_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operation TEXT NOT NULL,
			article_id INTEGER,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			cost_usd REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error_message TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table over article text with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='articles_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE articles_fts USING fts5(title, abstract, full_text, content=articles, content_rowid=id)`,
			`CREATE TRIGGER articles_ai AFTER INSERT ON articles BEGIN
				INSERT INTO articles_fts(rowid, title, abstract, full_text)
				VALUES (new.id, new.title, new.abstract, new.full_text);
			END`,
			`CREATE TRIGGER articles_ad AFTER DELETE ON articles BEGIN
				INSERT INTO articles_fts(articles_fts, rowid, title, abstract, full_text)
				VALUES('delete', old.id, old.title, old.abstract, old.full_text);
			END`,
			`CREATE TRIGGER articles_au AFTER UPDATE ON articles BEGIN
				INSERT INTO articles_fts(articles_fts, rowid, title, abstract, full_text)
				VALUES('delete', old.id, old.title, old.abstract, old.full_text);
				INSERT INTO articles_fts(rowid, title, abstract, full_text)
				VALUES (new.id, new.title, new.abstract, new.full_text);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// marshalJSON serializes v for a nullable JSON column. Nil pointers and
// empty slices store as NULL.
func marshalJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshaling JSON column: %w", err)
	}
	str := string(data)
	if str == "null" || str == "[]" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: str, Valid: true}, nil
}

// unmarshalJSON decodes a nullable JSON column into v, leaving v untouched
// for NULL.
func unmarshalJSON(col sql.NullString, v any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), v)
}
