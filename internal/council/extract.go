// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package council

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/review-engine/internal/respparse"
	"github.com/pdiddy/review-engine/internal/stats"
	"github.com/pdiddy/review-engine/pkg/types"
)

const (
	defaultExtractionModel       = "llama3.3:70b"
	defaultExtractionTemperature = 0.2

	// extractionConfidence is a fixed placeholder pending real
	// calibration against hand-extracted reference data.
	extractionConfidence = 85
)

// Extractor performs single-model structured data extraction. Unlike
// screening there is no panel and no vote-averaging fallback: a parse
// failure fails the whole extraction.
type Extractor struct {
	gateway     Gateway
	model       string
	temperature float64
	log         zerolog.Logger
}

// NewExtractor builds an Extractor, defaulting to the most capable local
// model at low temperature.
func NewExtractor(gateway Gateway, cfg types.ExtractionConfig, log zerolog.Logger) *Extractor {
	model := cfg.Model
	if model == "" {
		model = defaultExtractionModel
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultExtractionTemperature
	}
	return &Extractor{gateway: gateway, model: model, temperature: temperature, log: log}
}

// ExtractionOutput is the response contract for one extraction call.
type ExtractionOutput struct {
	Data       types.ExtractedData `json:"extracted_data"`
	Confidence int                 `json:"confidence"`
	Provider   string              `json:"provider"`
	CostUSD    float64             `json:"cost_usd"`
}

// ExtractData extracts structured study data from one article. Numeric
// outcome fields are post-processed through the statistical derivation
// helpers, so back-filled statistics arrive flagged as derived.
func (e *Extractor) ExtractData(ctx context.Context, article types.Article) (ExtractionOutput, error) {
	if !article.HasContent() {
		return ExtractionOutput{}, fmt.Errorf("article %d: %w", article.ID, ErrInsufficientContent)
	}
	if !e.gateway.IsConnected() {
		return ExtractionOutput{}, fmt.Errorf("%w: inference service not connected", ErrProviderUnavailable)
	}

	prompt, err := renderExtractionPrompt(article)
	if err != nil {
		return ExtractionOutput{}, err
	}

	start := time.Now()
	raw, err := e.gateway.Generate(ctx, e.model, prompt, extractionSystemPrompt, e.temperature)
	if err != nil {
		return ExtractionOutput{}, fmt.Errorf("extraction model %s: %w", e.model, err)
	}

	var data types.ExtractedData
	if err := respparse.Unmarshal(raw, &data); err != nil {
		return ExtractionOutput{}, fmt.Errorf("extraction model %s: %w", e.model, err)
	}

	data.ArticleID = article.ID
	data.ExtractedBy = "ai"
	data.AIModel = e.model
	data.Confidence = extractionConfidence
	data.ManualEditsMade = false

	for i := range data.PrimaryOutcomes {
		stats.DeriveMissingStats(&data.PrimaryOutcomes[i])
	}
	for i := range data.SecondaryOutcomes {
		stats.DeriveMissingStats(&data.SecondaryOutcomes[i])
	}

	e.log.Info().
		Int64("article", article.ID).
		Str("model", e.model).
		Dur("latency", time.Since(start)).
		Int("primary_outcomes", len(data.PrimaryOutcomes)).
		Msg("extraction complete")

	return ExtractionOutput{
		Data:       data,
		Confidence: extractionConfidence,
		Provider:   "local",
		CostUSD:    0,
	}, nil
}
