// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Decision is the binary screening outcome for an article.
type Decision string

const (
	DecisionInclude Decision = "include"
	DecisionExclude Decision = "exclude"
)

// ConsensusType classifies how the council arrived at a decision.
type ConsensusType string

const (
	// ConsensusUnanimous means all three models agreed.
	ConsensusUnanimous ConsensusType = "unanimous"

	// ConsensusMajority means two of three models agreed.
	ConsensusMajority ConsensusType = "2-1"

	// ConsensusSplit is retained for wire compatibility with stored
	// decisions. With three voters and a binary decision it cannot occur.
	ConsensusSplit ConsensusType = "3-way-split"

	// ConsensusManual marks a human override that bypassed the council.
	ConsensusManual ConsensusType = "manual"
)

// ModelVote is one model's answer to one screening task. Votes are written
// once and stored verbatim as decision provenance. A model that failed
// contributes a synthetic vote with zero confidence and the error text as
// reasoning.
type ModelVote struct {
	// Model is the inference model identifier (e.g. "llama3.3:70b").
	Model string `json:"model" yaml:"model"`

	// Decision is the model's include/exclude vote.
	Decision Decision `json:"decision" yaml:"decision"`

	// Confidence is the model's self-reported confidence, 0-100.
	Confidence int `json:"confidence" yaml:"confidence"`

	// Reasoning is the model's free-text justification.
	Reasoning string `json:"reasoning" yaml:"reasoning"`

	// LatencyMS is the wall-clock duration of the model call in
	// milliseconds. Zero for synthetic failure votes.
	LatencyMS int64 `json:"latency_ms" yaml:"latency_ms"`
}

// ScreeningResult is the atomic screening decision persisted per article.
// At most one current decision exists per article; re-screening or a manual
// override replaces it.
type ScreeningResult struct {
	// Decision is the reconciled include/exclude outcome.
	Decision Decision `json:"decision" yaml:"decision"`

	// Confidence is the calibrated confidence, 0-100.
	Confidence int `json:"confidence" yaml:"confidence"`

	// Reasoning summarizes the vote tally and quotes the first winning vote.
	Reasoning string `json:"reasoning" yaml:"reasoning"`

	// Votes lists every model's vote in panel declaration order. Empty for
	// manual overrides; exactly the panel size otherwise, synthetic failure
	// votes included.
	Votes []ModelVote `json:"model_votes,omitempty" yaml:"model_votes,omitempty"`

	// ConsensusType classifies the agreement pattern.
	ConsensusType ConsensusType `json:"consensus_type" yaml:"consensus_type"`

	// Provider identifies the deciding backend ("local-council", "manual").
	Provider string `json:"provider" yaml:"provider"`

	// CostUSD is the inference cost. Always zero for local inference.
	CostUSD float64 `json:"cost_usd" yaml:"cost_usd"`
}

// ScreeningDecision is a ScreeningResult bound to an article row.
type ScreeningDecision struct {
	ID        int64 `json:"id" yaml:"id"`
	ArticleID int64 `json:"article_id" yaml:"article_id"`

	ScreeningResult `yaml:",inline"`

	// IsManualOverride marks decisions recorded by a human reviewer.
	IsManualOverride bool `json:"is_manual_override" yaml:"is_manual_override"`

	// OverrideReason is the reviewer's note for a manual override.
	OverrideReason string `json:"override_reason,omitempty" yaml:"override_reason,omitempty"`

	DecidedAt time.Time `json:"decided_at" yaml:"decided_at"`
}

// UsageRecord is one row of the AI usage audit trail. Both success and
// failure paths are logged.
type UsageRecord struct {
	// Operation names the AI operation ("screening", "extraction").
	Operation string `json:"operation" yaml:"operation"`

	// ArticleID is the subject article, zero when not article-scoped.
	ArticleID int64 `json:"article_id,omitempty" yaml:"article_id,omitempty"`

	// Provider and Model identify the backend that served the call.
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`

	// LatencyMS is the end-to-end operation latency in milliseconds.
	LatencyMS int64 `json:"latency_ms" yaml:"latency_ms"`

	// CostUSD is the inference cost of the operation.
	CostUSD float64 `json:"cost_usd" yaml:"cost_usd"`

	// Status is "success" or "failed".
	Status string `json:"status" yaml:"status"`

	// ErrorMessage holds the failure description for failed operations.
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// UsageSummary aggregates usage records for one month and provider.
type UsageSummary struct {
	Month        string  `json:"month" yaml:"month"`
	Provider     string  `json:"provider" yaml:"provider"`
	RequestCount int     `json:"request_count" yaml:"request_count"`
	TotalCostUSD float64 `json:"total_cost_usd" yaml:"total_cost_usd"`
	AvgLatencyMS float64 `json:"avg_latency_ms" yaml:"avg_latency_ms"`
}
