// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// BiasRating is a Cochrane RoB2 judgement for one bias domain.
type BiasRating string

const (
	BiasLow     BiasRating = "low"
	BiasHigh    BiasRating = "high"
	BiasUnclear BiasRating = "unclear"
)

// RiskOfBias holds per-domain Cochrane RoB2 judgements.
type RiskOfBias struct {
	RandomSequenceGeneration BiasRating `json:"random_sequence_generation" yaml:"random_sequence_generation"`
	AllocationConcealment    BiasRating `json:"allocation_concealment" yaml:"allocation_concealment"`
	BlindingParticipants     BiasRating `json:"blinding_participants" yaml:"blinding_participants"`
	BlindingAssessors        BiasRating `json:"blinding_assessors" yaml:"blinding_assessors"`
	IncompleteOutcome        BiasRating `json:"incomplete_outcome" yaml:"incomplete_outcome"`
	SelectiveReporting       BiasRating `json:"selective_reporting" yaml:"selective_reporting"`
	OtherBias                BiasRating `json:"other_bias" yaml:"other_bias"`
}

// PopulationData describes the study population.
type PopulationData struct {
	Description string `json:"description" yaml:"description"`
	SampleSize  int    `json:"sample_size" yaml:"sample_size"`
	MeanAge     float64 `json:"mean_age,omitempty" yaml:"mean_age,omitempty"`
	GenderSplit string `json:"gender_distribution,omitempty" yaml:"gender_distribution,omitempty"`
}

// InterventionData describes one study arm (intervention or comparison).
type InterventionData struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Dosage      string `json:"dosage,omitempty" yaml:"dosage,omitempty"`
	Duration    string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// OutcomeResult is one reported effect. Optional numeric fields use
// pointers so that "absent in the source text" is distinguishable from a
// reported zero; the derivation helpers only fill nil fields.
type OutcomeResult struct {
	// Outcome names the measured outcome.
	Outcome string `json:"outcome" yaml:"outcome"`

	// Timepoint is the measurement timepoint as stated in the source.
	Timepoint string `json:"timepoint,omitempty" yaml:"timepoint,omitempty"`

	InterventionMean *float64 `json:"intervention_mean,omitempty" yaml:"intervention_mean,omitempty"`
	InterventionSD   *float64 `json:"intervention_sd,omitempty" yaml:"intervention_sd,omitempty"`
	InterventionN    *int     `json:"intervention_n,omitempty" yaml:"intervention_n,omitempty"`

	ControlMean *float64 `json:"control_mean,omitempty" yaml:"control_mean,omitempty"`
	ControlSD   *float64 `json:"control_sd,omitempty" yaml:"control_sd,omitempty"`
	ControlN    *int     `json:"control_n,omitempty" yaml:"control_n,omitempty"`

	PValue   *float64 `json:"p_value,omitempty" yaml:"p_value,omitempty"`
	StdError *float64 `json:"std_error,omitempty" yaml:"std_error,omitempty"`

	EffectSize     *float64 `json:"effect_size,omitempty" yaml:"effect_size,omitempty"`
	EffectSizeType string   `json:"effect_size_type,omitempty" yaml:"effect_size_type,omitempty"`

	// IsDerived marks outcomes where a statistic was back-filled
	// programmatically rather than taken verbatim from the source text.
	// The flag must survive storage and every export surface.
	IsDerived bool `json:"is_derived" yaml:"is_derived"`
}

// ExtractedData is the structured study record produced by single-model
// extraction and optionally corrected by hand afterwards.
type ExtractedData struct {
	ID        int64 `json:"id" yaml:"id"`
	ArticleID int64 `json:"article_id" yaml:"article_id"`

	Population   *PopulationData   `json:"population,omitempty" yaml:"population,omitempty"`
	Intervention *InterventionData `json:"intervention,omitempty" yaml:"intervention,omitempty"`
	Comparison   *InterventionData `json:"comparison,omitempty" yaml:"comparison,omitempty"`

	// StudyDesign is the design label as reported (e.g. "RCT").
	StudyDesign string `json:"study_design,omitempty" yaml:"study_design,omitempty"`

	// SampleSize is the total randomized sample size.
	SampleSize int `json:"sample_size,omitempty" yaml:"sample_size,omitempty"`

	PrimaryOutcomes   []OutcomeResult `json:"primary_outcomes,omitempty" yaml:"primary_outcomes,omitempty"`
	SecondaryOutcomes []OutcomeResult `json:"secondary_outcomes,omitempty" yaml:"secondary_outcomes,omitempty"`

	RiskOfBias *RiskOfBias `json:"risk_of_bias,omitempty" yaml:"risk_of_bias,omitempty"`

	// ExtractedBy identifies the producer ("ai", "manual").
	ExtractedBy string `json:"extracted_by" yaml:"extracted_by"`

	// AIModel is the model that produced the extraction.
	AIModel string `json:"ai_model,omitempty" yaml:"ai_model,omitempty"`

	// Confidence is the extraction confidence, 0-100.
	Confidence int `json:"extraction_confidence" yaml:"extraction_confidence"`

	// ManualEditsMade distinguishes raw AI output from human-corrected
	// records. Downstream exports rely on it for audit.
	ManualEditsMade bool `json:"manual_edits_made" yaml:"manual_edits_made"`

	ExtractedAt  time.Time `json:"extracted_at" yaml:"extracted_at"`
	LastEditedAt time.Time `json:"last_edited_at" yaml:"last_edited_at"`
}
