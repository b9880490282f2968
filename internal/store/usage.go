// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pdiddy/review-engine/pkg/types"
)

// LogUsage appends one row to the AI usage audit trail.
func (s *Store) LogUsage(ctx context.Context, rec types.UsageRecord) error {
	var articleID sql.NullInt64
	if rec.ArticleID != 0 {
		articleID = sql.NullInt64{Int64: rec.ArticleID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_usage_logs (operation, article_id, provider, model,
			latency_ms, cost_usd, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Operation, articleID, rec.Provider, rec.Model,
		rec.LatencyMS, rec.CostUSD, rec.Status, rec.ErrorMessage,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("logging usage: %w", err)
	}
	return nil
}

// UsageByMonth aggregates the usage trail per month and provider, newest
// month first. An empty month selects all months.
func (s *Store) UsageByMonth(ctx context.Context, month string) ([]types.UsageSummary, error) {
	query := `
		SELECT substr(created_at, 1, 7) AS month, provider,
			count(*), coalesce(sum(cost_usd), 0), coalesce(avg(latency_ms), 0)
		FROM ai_usage_logs`
	args := []any{}
	if month != "" {
		query += ` WHERE substr(created_at, 1, 7) = ?`
		args = append(args, month)
	}
	query += ` GROUP BY month, provider ORDER BY month DESC, provider`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarizing usage: %w", err)
	}
	defer rows.Close()

	var summaries []types.UsageSummary
	for rows.Next() {
		var sum types.UsageSummary
		if err := rows.Scan(&sum.Month, &sum.Provider, &sum.RequestCount,
			&sum.TotalCostUSD, &sum.AvgLatencyMS); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// ProjectUsage aggregates the usage trail for one project's articles.
type ProjectUsage struct {
	TotalRequests int
	TotalCostUSD  float64
	ByOperation   map[string]int
	ByModel       map[string]int
}

// ProjectUsageStats rolls up usage records scoped to a project, for the
// archival export.
func (s *Store) ProjectUsageStats(ctx context.Context, projectID int64) (ProjectUsage, error) {
	usage := ProjectUsage{
		ByOperation: map[string]int{},
		ByModel:     map[string]int{},
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT count(*), coalesce(sum(cost_usd), 0)
		FROM ai_usage_logs
		WHERE article_id IN (SELECT id FROM articles WHERE project_id = ?)`,
		projectID).Scan(&usage.TotalRequests, &usage.TotalCostUSD)
	if err != nil {
		return ProjectUsage{}, fmt.Errorf("summarizing project usage: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT operation, model, count(*)
		FROM ai_usage_logs
		WHERE article_id IN (SELECT id FROM articles WHERE project_id = ?)
		GROUP BY operation, model`, projectID)
	if err != nil {
		return ProjectUsage{}, fmt.Errorf("grouping project usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var operation, model string
		var n int
		if err := rows.Scan(&operation, &model, &n); err != nil {
			return ProjectUsage{}, err
		}
		usage.ByOperation[operation] += n
		usage.ByModel[model] += n
	}
	return usage, rows.Err()
}

// GetSetting reads one application setting, returning fallback when the key
// is absent.
func (s *Store) GetSetting(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting writes one application setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}
