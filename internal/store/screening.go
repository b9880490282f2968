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

// SaveScreeningDecision stores the current decision for an article,
// replacing any previous one. The article keeps at most one decision row.
func (s *Store) SaveScreeningDecision(ctx context.Context, d *types.ScreeningDecision) error {
	if d.ArticleID == 0 {
		return fmt.Errorf("screening decision requires an article ID")
	}

	votes, err := marshalJSON(d.Votes)
	if err != nil {
		return err
	}

	decidedAt := d.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO screening_decisions (article_id, decision,
			confidence, reasoning, ai_provider, model_votes, consensus_type,
			cost_usd, is_manual_override, override_reason, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ArticleID, d.Decision, d.Confidence, d.Reasoning, d.Provider,
		votes, d.ConsensusType, d.CostUSD, d.IsManualOverride,
		d.OverrideReason, decidedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving screening decision: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading decision ID: %w", err)
	}
	d.ID = id
	d.DecidedAt = decidedAt
	return nil
}

// GetScreeningDecision loads the current decision for an article.
func (s *Store) GetScreeningDecision(ctx context.Context, articleID int64) (*types.ScreeningDecision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, article_id, decision, confidence, reasoning, ai_provider,
			model_votes, consensus_type, cost_usd, is_manual_override,
			override_reason, decided_at
		FROM screening_decisions WHERE article_id = ?`, articleID)

	d, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("screening decision for article %d: %w", articleID, ErrNotFound)
	}
	return d, err
}

// ListScreeningDecisions returns all decisions for a project's articles.
func (s *Store) ListScreeningDecisions(ctx context.Context, projectID int64) ([]types.ScreeningDecision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.article_id, d.decision, d.confidence, d.reasoning,
			d.ai_provider, d.model_votes, d.consensus_type, d.cost_usd,
			d.is_manual_override, d.override_reason, d.decided_at
		FROM screening_decisions d
		JOIN articles a ON a.id = d.article_id
		WHERE a.project_id = ?
		ORDER BY d.article_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing screening decisions: %w", err)
	}
	defer rows.Close()

	var decisions []types.ScreeningDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, *d)
	}
	return decisions, rows.Err()
}

func scanDecision(row rowScanner) (*types.ScreeningDecision, error) {
	var (
		d                            types.ScreeningDecision
		votes                        sql.NullString
		consensusType, overrideReason sql.NullString
		decidedAt                    string
	)
	err := row.Scan(&d.ID, &d.ArticleID, &d.Decision, &d.Confidence,
		&d.Reasoning, &d.Provider, &votes, &consensusType, &d.CostUSD,
		&d.IsManualOverride, &overrideReason, &decidedAt)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(votes, &d.Votes); err != nil {
		return nil, fmt.Errorf("decoding model votes: %w", err)
	}
	d.ConsensusType = types.ConsensusType(consensusType.String)
	d.OverrideReason = overrideReason.String
	d.DecidedAt, _ = time.Parse(time.RFC3339, decidedAt)
	return &d, nil
}

// ScreeningStats summarizes decision counts for a project. Pending counts
// articles with no stored decision.
type ScreeningStats struct {
	Total    int
	Included int
	Excluded int
	Pending  int
}

// ProjectScreeningStats tallies the screening state of a project, used by
// progress reporting and the PRISMA flow export.
func (s *Store) ProjectScreeningStats(ctx context.Context, projectID int64) (ScreeningStats, error) {
	var st ScreeningStats
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*),
			count(CASE WHEN d.decision = 'include' THEN 1 END),
			count(CASE WHEN d.decision = 'exclude' THEN 1 END)
		FROM articles a
		LEFT JOIN screening_decisions d ON d.article_id = a.id
		WHERE a.project_id = ?`, projectID).
		Scan(&st.Total, &st.Included, &st.Excluded)
	if err != nil {
		return ScreeningStats{}, fmt.Errorf("computing screening stats: %w", err)
	}
	st.Pending = st.Total - st.Included - st.Excluded
	return st, nil
}
