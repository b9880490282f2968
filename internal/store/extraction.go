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

// SaveExtractedData stores the extraction record for an article, replacing
// any previous one.
func (s *Store) SaveExtractedData(ctx context.Context, d *types.ExtractedData) error {
	if d.ArticleID == 0 {
		return fmt.Errorf("extracted data requires an article ID")
	}

	population, err := marshalJSON(d.Population)
	if err != nil {
		return err
	}
	intervention, err := marshalJSON(d.Intervention)
	if err != nil {
		return err
	}
	comparison, err := marshalJSON(d.Comparison)
	if err != nil {
		return err
	}
	primary, err := marshalJSON(d.PrimaryOutcomes)
	if err != nil {
		return err
	}
	secondary, err := marshalJSON(d.SecondaryOutcomes)
	if err != nil {
		return err
	}
	rob, err := marshalJSON(d.RiskOfBias)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	extractedAt := d.ExtractedAt
	if extractedAt.IsZero() {
		extractedAt = now
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO extracted_data (article_id, population,
			intervention, comparison, study_design, sample_size,
			primary_outcomes, secondary_outcomes, risk_of_bias,
			extracted_by, ai_model, extraction_confidence,
			manual_edits_made, extracted_at, last_edited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ArticleID, population, intervention, comparison,
		d.StudyDesign, d.SampleSize, primary, secondary, rob,
		d.ExtractedBy, d.AIModel, d.Confidence, d.ManualEditsMade,
		extractedAt.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving extracted data: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading extraction ID: %w", err)
	}
	d.ID = id
	d.ExtractedAt = extractedAt
	d.LastEditedAt = now
	return nil
}

const extractionColumns = `id, article_id, population, intervention,
	comparison, study_design, sample_size, primary_outcomes,
	secondary_outcomes, risk_of_bias, extracted_by, ai_model,
	extraction_confidence, manual_edits_made, extracted_at, last_edited_at`

// GetExtractedData loads the extraction record for an article.
func (s *Store) GetExtractedData(ctx context.Context, articleID int64) (*types.ExtractedData, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+extractionColumns+` FROM extracted_data WHERE article_id = ?`,
		articleID)

	d, err := scanExtraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("extracted data for article %d: %w", articleID, ErrNotFound)
	}
	return d, err
}

// ListExtractedData returns all extraction records of a project's articles.
func (s *Store) ListExtractedData(ctx context.Context, projectID int64) ([]types.ExtractedData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.article_id, e.population, e.intervention,
			e.comparison, e.study_design, e.sample_size, e.primary_outcomes,
			e.secondary_outcomes, e.risk_of_bias, e.extracted_by, e.ai_model,
			e.extraction_confidence, e.manual_edits_made, e.extracted_at,
			e.last_edited_at
		FROM extracted_data e
		JOIN articles a ON a.id = e.article_id
		WHERE a.project_id = ?
		ORDER BY e.article_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing extracted data: %w", err)
	}
	defer rows.Close()

	var records []types.ExtractedData
	for rows.Next() {
		d, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *d)
	}
	return records, rows.Err()
}

// CountExtracted returns the number of articles of a project with a stored
// extraction record.
func (s *Store) CountExtracted(ctx context.Context, projectID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM extracted_data e
		JOIN articles a ON a.id = e.article_id
		WHERE a.project_id = ?`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting extractions: %w", err)
	}
	return n, nil
}

func scanExtraction(row rowScanner) (*types.ExtractedData, error) {
	var (
		d                                    types.ExtractedData
		population, intervention, comparison sql.NullString
		studyDesign, aiModel                 sql.NullString
		sampleSize                           sql.NullInt64
		primary, secondary, rob              sql.NullString
		extractedAt, lastEditedAt            string
	)
	err := row.Scan(&d.ID, &d.ArticleID, &population, &intervention,
		&comparison, &studyDesign, &sampleSize, &primary, &secondary, &rob,
		&d.ExtractedBy, &aiModel, &d.Confidence, &d.ManualEditsMade,
		&extractedAt, &lastEditedAt)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(population, &d.Population); err != nil {
		return nil, fmt.Errorf("decoding population: %w", err)
	}
	if err := unmarshalJSON(intervention, &d.Intervention); err != nil {
		return nil, fmt.Errorf("decoding intervention: %w", err)
	}
	if err := unmarshalJSON(comparison, &d.Comparison); err != nil {
		return nil, fmt.Errorf("decoding comparison: %w", err)
	}
	if err := unmarshalJSON(primary, &d.PrimaryOutcomes); err != nil {
		return nil, fmt.Errorf("decoding primary outcomes: %w", err)
	}
	if err := unmarshalJSON(secondary, &d.SecondaryOutcomes); err != nil {
		return nil, fmt.Errorf("decoding secondary outcomes: %w", err)
	}
	if err := unmarshalJSON(rob, &d.RiskOfBias); err != nil {
		return nil, fmt.Errorf("decoding risk of bias: %w", err)
	}
	d.StudyDesign = studyDesign.String
	d.SampleSize = int(sampleSize.Int64)
	d.AIModel = aiModel.String
	d.ExtractedAt, _ = time.Parse(time.RFC3339, extractedAt)
	d.LastEditedAt, _ = time.Parse(time.RFC3339, lastEditedAt)
	return &d, nil
}
