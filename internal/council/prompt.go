// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package council

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/review-engine/pkg/types"
)

// screeningSystemPrompt instructs a model to act as a systematic review
// screener and answer with a single JSON decision object.
const screeningSystemPrompt = `You are an expert systematic review screener assisting medical researchers.

Your task is to determine if a full-text article should be INCLUDED or EXCLUDED from a systematic review based on PICO criteria.

CRITICAL RULES:
1. BASE your decision ONLY on the PICO criteria provided
2. If the article meets ALL inclusion criteria, answer INCLUDE
3. If the article violates ANY exclusion criterion, answer EXCLUDE
4. When uncertain, err on the side of INCLUSION for manual review
5. Provide SPECIFIC reasoning citing article text
6. Be conservative but fair

OUTPUT FORMAT: Respond ONLY with valid JSON matching this schema:
{
  "decision": "include" | "exclude",
  "confidence": 0-100,
  "reasoning": "Specific justification with quotes from article",
  "pico_alignment": {
    "population": "yes | no | partial - explanation",
    "intervention": "yes | no | partial - explanation",
    "comparison": "yes | no | partial - explanation",
    "outcomes": "yes | no | partial - explanation"
  }
}`

// screeningPromptTmpl is the user prompt sent to every council model for
// one screening task. All three models receive the identical rendering.
var screeningPromptTmpl = template.Must(template.New("screening").Parse(`# Systematic Review Criteria

## Research Question
{{.ResearchQuestion}}

## PICO Criteria
- **Population:** {{.Criteria.Population}}
- **Intervention:** {{.Criteria.Intervention}}
- **Comparison:** {{.Criteria.Comparison}}
- **Outcomes:** {{.Criteria.Outcomes}}

## Inclusion Criteria
{{range .InclusionCriteria}}- {{.}}
{{end}}
## Exclusion Criteria
{{range .ExclusionCriteria}}- {{.}}
{{end}}
---

# Article to Screen

## Title
{{.Title}}

## Abstract
{{.Abstract}}

## Methods Section
{{.Methods}}

## Results Section (abbreviated)
{{.Results}}

---

**Task:** Based on the criteria above, should this article be INCLUDED or EXCLUDED? Provide your decision as JSON only.`))

// extractionSystemPrompt instructs a model to extract structured study
// data for meta-analysis.
const extractionSystemPrompt = `You are an expert data extractor for systematic reviews and meta-analyses.

Your task is to extract structured data from a medical research article, focusing on:
1. PICO elements (Population, Intervention, Comparison, Outcomes)
2. Study design and methodology
3. Sample sizes and participant characteristics
4. Primary and secondary outcomes with statistical results
5. Risk of bias assessment (Cochrane RoB 2 framework)

Extract only what the article states. Use null for data the article does not report; never estimate or invent numbers.

OUTPUT FORMAT: Respond ONLY with valid JSON matching this schema:
{
  "population": {"description": "...", "sample_size": 0},
  "intervention": {"name": "...", "description": "...", "dosage": "...", "duration": "..."},
  "comparison": {"name": "...", "description": "..."},
  "study_design": "...",
  "sample_size": 0,
  "primary_outcomes": [{"outcome": "...", "timepoint": "...", "intervention_mean": null, "intervention_sd": null, "intervention_n": null, "control_mean": null, "control_sd": null, "control_n": null, "p_value": null, "effect_size": null, "effect_size_type": "MD"}],
  "secondary_outcomes": [],
  "risk_of_bias": {"random_sequence_generation": "low|high|unclear", "allocation_concealment": "low|high|unclear", "blinding_participants": "low|high|unclear", "blinding_assessors": "low|high|unclear", "incomplete_outcome": "low|high|unclear", "selective_reporting": "low|high|unclear", "other_bias": "low|high|unclear"}
}`

// extractionPromptTmpl is the user prompt for single-model extraction.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`# Article for Data Extraction

## Title
{{.Title}}

## Abstract
{{.Abstract}}

## Methods
{{.Methods}}

## Results
{{.Results}}

## Discussion (excerpt)
{{.Discussion}}

---

**Task:** Extract the structured study data as JSON only.`))

// promptData carries the rendered fields for either prompt template.
type promptData struct {
	ResearchQuestion  string
	Criteria          types.PICOCriteria
	InclusionCriteria []string
	ExclusionCriteria []string
	Title             string
	Abstract          string
	Methods           string
	Results           string
	Discussion        string
}

// renderScreeningPrompt fills the screening template from the article and
// criteria. Missing sections fall back to windows of the full text so that
// every model sees some article content.
func renderScreeningPrompt(article types.Article, pico types.PICOCriteria) (string, error) {
	data := promptData{
		ResearchQuestion:  "Systematic review screening",
		Criteria:          pico,
		InclusionCriteria: []string{"Matches PICO criteria"},
		ExclusionCriteria: []string{"Does not match PICO"},
		Title:             article.Title,
		Abstract:          fallback(article.Abstract, article.FullText, 0, 500),
		Methods:           fallback(article.Methods, article.FullText, 500, 1500),
		Results:           fallback(article.Results, article.FullText, 1500, 2500),
	}

	var b strings.Builder
	if err := screeningPromptTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering screening prompt: %w", err)
	}
	return b.String(), nil
}

// renderExtractionPrompt fills the extraction template from the article.
func renderExtractionPrompt(article types.Article) (string, error) {
	data := promptData{
		Title:      article.Title,
		Abstract:   article.Abstract,
		Methods:    article.Methods,
		Results:    article.Results,
		Discussion: fallback(article.Discussion, article.FullText, 0, 1000),
	}

	var b strings.Builder
	if err := extractionPromptTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering extraction prompt: %w", err)
	}
	return b.String(), nil
}

// fallback returns section when non-empty, otherwise the [from:to) window
// of fullText clamped to its length.
func fallback(section, fullText string, from, to int) string {
	if section != "" {
		return section
	}
	if from >= len(fullText) {
		return ""
	}
	if to > len(fullText) {
		to = len(fullText)
	}
	return fullText[from:to]
}
