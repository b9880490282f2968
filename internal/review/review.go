// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review orchestrates the screening and extraction workflows:
// it joins the store, the council, and the extractor, persists decisions,
// and keeps the AI usage audit trail.
package review

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/review-engine/internal/council"
	"github.com/pdiddy/review-engine/internal/store"
	"github.com/pdiddy/review-engine/pkg/types"
)

// Service runs review workflows against one store.
type Service struct {
	store     *store.Store
	council   *council.Council
	extractor *council.Extractor
	log       zerolog.Logger
}

// NewService builds a review Service.
func NewService(st *store.Store, c *council.Council, e *council.Extractor, log zerolog.Logger) *Service {
	return &Service{store: st, council: c, extractor: e, log: log}
}

// ScreenArticle screens one article with the project's criteria and
// persists the resulting decision. Every attempt, successful or not, is
// recorded in the usage trail.
func (s *Service) ScreenArticle(ctx context.Context, articleID int64, mode council.Mode) (*types.ScreeningDecision, error) {
	article, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, article.ProjectID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.council.ScreenArticle(ctx, *article, project.Criteria, mode)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		s.logUsage(ctx, types.UsageRecord{
			Operation:    "screening",
			ArticleID:    articleID,
			Provider:     string(mode),
			Model:        "unknown",
			LatencyMS:    latency,
			Status:       "failed",
			ErrorMessage: err.Error(),
		})
		return nil, err
	}

	model := "unknown"
	if len(result.Votes) > 0 {
		model = result.Votes[0].Model
	}
	s.logUsage(ctx, types.UsageRecord{
		Operation: "screening",
		ArticleID: articleID,
		Provider:  result.Provider,
		Model:     model,
		LatencyMS: latency,
		CostUSD:   result.CostUSD,
		Status:    "success",
	})

	decision := &types.ScreeningDecision{
		ArticleID:       articleID,
		ScreeningResult: result,
	}
	if err := s.store.SaveScreeningDecision(ctx, decision); err != nil {
		return nil, err
	}
	return decision, nil
}

// BatchSummary holds the outcome of a batch screening run.
type BatchSummary struct {
	Succeeded int
	Included int
	Excluded int
	Failed   int
}

// Total returns the total number of articles processed.
func (r BatchSummary) Total() int {
	return r.Succeeded + r.Failed
}

// HasFailures reports whether any articles failed screening.
func (r BatchSummary) HasFailures() bool {
	return r.Failed > 0
}

// ScreenPending screens every article of the project that has no stored
// decision yet, strictly sequentially so at most one council call is in
// flight at a time. Individual failures are reported and skipped; the run
// continues with the next article.
func (s *Service) ScreenPending(ctx context.Context, projectID int64, mode council.Mode, w io.Writer) (BatchSummary, error) {
	articles, err := s.store.ListArticles(ctx, projectID)
	if err != nil {
		return BatchSummary{}, err
	}

	var pending []types.Article
	for _, a := range articles {
		if _, err := s.store.GetScreeningDecision(ctx, a.ID); err == nil {
			continue
		}
		pending = append(pending, a)
	}
	if len(pending) == 0 {
		fmt.Fprintln(w, "nothing to screen: all articles have decisions")
		return BatchSummary{}, nil
	}

	var result BatchSummary
	for i, a := range pending {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		decision, err := s.ScreenArticle(ctx, a.ID, mode)
		if err != nil {
			fmt.Fprintf(w, "[%d/%d] failed:  %s (%v)\n", i+1, len(pending), displayName(a), err)
			result.Failed++
			continue
		}

		result.Succeeded++
		if decision.Decision == types.DecisionInclude {
			result.Included++
		} else {
			result.Excluded++
		}
		fmt.Fprintf(w, "[%d/%d] %s: %s (%s, confidence %d)\n",
			i+1, len(pending), decision.Decision, displayName(a), decision.ConsensusType, decision.Confidence)
	}

	fmt.Fprintf(w, "\nScreening summary: %d screened (%d include, %d exclude), %d failed\n",
		result.Succeeded, result.Included, result.Excluded, result.Failed)
	return result, nil
}

// ManualDecision records a human screening decision for an article,
// replacing any council decision. Manual decisions carry full confidence
// and no votes.
func (s *Service) ManualDecision(ctx context.Context, articleID int64, decision types.Decision, reason string) (*types.ScreeningDecision, error) {
	if decision != types.DecisionInclude && decision != types.DecisionExclude {
		return nil, fmt.Errorf("invalid decision %q", decision)
	}
	if _, err := s.store.GetArticle(ctx, articleID); err != nil {
		return nil, err
	}

	reasoning := reason
	if reasoning == "" {
		reasoning = "Manual decision by reviewer."
	}

	d := &types.ScreeningDecision{
		ArticleID: articleID,
		ScreeningResult: types.ScreeningResult{
			Decision:      decision,
			Confidence:    100,
			Reasoning:     reasoning,
			ConsensusType: types.ConsensusManual,
			Provider:      "manual",
		},
		IsManualOverride: true,
		OverrideReason:   reason,
	}
	if err := s.store.SaveScreeningDecision(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ExtractArticle runs structured data extraction for one article and
// persists the result. Like screening, both outcomes land in the usage
// trail.
func (s *Service) ExtractArticle(ctx context.Context, articleID int64) (*types.ExtractedData, error) {
	article, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := s.extractor.ExtractData(ctx, *article)
	latency := time.Since(start).Milliseconds()

	rec := types.UsageRecord{
		Operation: "extraction",
		ArticleID: articleID,
		Provider:  "local",
		Model:     "extraction-model",
		LatencyMS: latency,
	}
	if err != nil {
		rec.Status = "failed"
		rec.ErrorMessage = err.Error()
		s.logUsage(ctx, rec)
		return nil, err
	}
	rec.Status = "success"
	rec.CostUSD = out.CostUSD
	rec.Model = out.Data.AIModel
	s.logUsage(ctx, rec)

	data := out.Data
	if err := s.store.SaveExtractedData(ctx, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ExtractIncluded extracts every included article of the project that has
// no stored extraction yet, sequentially, continuing past failures.
func (s *Service) ExtractIncluded(ctx context.Context, projectID int64, w io.Writer) (BatchSummary, error) {
	decisions, err := s.store.ListScreeningDecisions(ctx, projectID)
	if err != nil {
		return BatchSummary{}, err
	}

	var targets []int64
	for _, d := range decisions {
		if d.Decision != types.DecisionInclude {
			continue
		}
		if _, err := s.store.GetExtractedData(ctx, d.ArticleID); err == nil {
			continue
		}
		targets = append(targets, d.ArticleID)
	}
	if len(targets) == 0 {
		fmt.Fprintln(w, "nothing to extract: no included articles without data")
		return BatchSummary{}, nil
	}

	var result BatchSummary
	for i, id := range targets {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		if _, err := s.ExtractArticle(ctx, id); err != nil {
			fmt.Fprintf(w, "[%d/%d] failed:  article %d (%v)\n", i+1, len(targets), id, err)
			result.Failed++
			continue
		}
		result.Succeeded++
		fmt.Fprintf(w, "[%d/%d] extracted: article %d\n", i+1, len(targets), id)
	}

	fmt.Fprintf(w, "\nExtraction summary: %d extracted, %d failed\n", result.Succeeded, result.Failed)
	return result, nil
}

func (s *Service) logUsage(ctx context.Context, rec types.UsageRecord) {
	if err := s.store.LogUsage(ctx, rec); err != nil {
		s.log.Warn().Err(err).Msg("usage logging failed")
	}
}

func displayName(a types.Article) string {
	if a.Title != "" {
		return a.Title
	}
	return a.OriginalFilename
}
