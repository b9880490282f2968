// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pdiddy/review-engine/pkg/types"
)

const exportFormatVersion = "1.0"

// ProjectExport is the complete archival record of one review project.
type ProjectExport struct {
	Metadata ExportMetadata  `json:"export_metadata"`
	Project  types.Project   `json:"project"`
	Articles []ArticleExport `json:"articles"`
	Usage    UsageExport     `json:"ai_usage_summary"`
}

// ExportMetadata identifies the export format and provenance.
type ExportMetadata struct {
	Version    string    `json:"version"`
	ExportDate time.Time `json:"export_date"`
	AppVersion string    `json:"app_version"`
}

// ArticleExport joins one article with its decision and extraction.
type ArticleExport struct {
	types.Article

	ScreeningDecision *types.ScreeningDecision `json:"screening_decision,omitempty"`
	ExtractedData     *types.ExtractedData     `json:"extracted_data,omitempty"`
}

// UsageExport summarizes AI usage for the project.
type UsageExport struct {
	TotalRequests int            `json:"total_requests"`
	TotalCostUSD  float64        `json:"total_cost_usd"`
	ByOperation   map[string]int `json:"by_operation"`
	ByModel       map[string]int `json:"by_model"`
}

// AppVersion is stamped into exports; set by the build.
var AppVersion = "dev"

// WriteJSON writes the complete project archive: project, all articles
// with their decisions and extracted data, and the usage rollup.
func (m *Manager) WriteJSON(ctx context.Context, projectID int64, path string) error {
	exp, err := m.BuildExport(ctx, projectID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling project export: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// BuildExport assembles the archival record without writing it.
func (m *Manager) BuildExport(ctx context.Context, projectID int64) (*ProjectExport, error) {
	project, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	articles, err := m.store.ListArticles(ctx, projectID)
	if err != nil {
		return nil, err
	}

	decisions, err := m.store.ListScreeningDecisions(ctx, projectID)
	if err != nil {
		return nil, err
	}
	decisionByArticle := map[int64]types.ScreeningDecision{}
	for _, d := range decisions {
		decisionByArticle[d.ArticleID] = d
	}

	records, err := m.store.ListExtractedData(ctx, projectID)
	if err != nil {
		return nil, err
	}
	dataByArticle := map[int64]types.ExtractedData{}
	for _, rec := range records {
		dataByArticle[rec.ArticleID] = rec
	}

	usage, err := m.store.ProjectUsageStats(ctx, projectID)
	if err != nil {
		return nil, err
	}

	exp := &ProjectExport{
		Metadata: ExportMetadata{
			Version:    exportFormatVersion,
			ExportDate: time.Now().UTC(),
			AppVersion: AppVersion,
		},
		Project: *project,
		Usage: UsageExport{
			TotalRequests: usage.TotalRequests,
			TotalCostUSD:  usage.TotalCostUSD,
			ByOperation:   usage.ByOperation,
			ByModel:       usage.ByModel,
		},
	}
	for _, a := range articles {
		ae := ArticleExport{Article: a}
		if d, ok := decisionByArticle[a.ID]; ok {
			decision := d
			ae.ScreeningDecision = &decision
		}
		if rec, ok := dataByArticle[a.ID]; ok {
			data := rec
			ae.ExtractedData = &data
		}
		exp.Articles = append(exp.Articles, ae)
	}
	return exp, nil
}
