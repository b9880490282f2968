// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package council implements multi-model consensus screening: the same
// classification task is dispatched to three independent local models and
// their votes are reconciled into one auditable decision.
package council

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/review-engine/internal/respparse"
	"github.com/pdiddy/review-engine/pkg/types"
)

// Mode selects the inference backend for a screening call.
type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

var (
	// ErrInsufficientContent reports an article with no screenable text.
	ErrInsufficientContent = errors.New("article has no abstract or full text")

	// ErrInvalidCriteria reports PICO criteria with a blank field.
	ErrInvalidCriteria = errors.New("PICO criteria incomplete: all four fields are required")

	// ErrProviderUnavailable reports that the requested backend cannot
	// serve the call. Cloud mode always fails with it; local mode fails
	// with it when the inference service is not connected.
	ErrProviderUnavailable = errors.New("AI provider unavailable")
)

// PanelSize is the fixed number of council models. The consensus rules
// (majority, tie behavior, confidence multipliers) assume exactly three
// voters.
const PanelSize = 3

// DefaultPanel is the default council composition.
var DefaultPanel = []string{"llama3.3:70b", "mistral-large", "gemma2:27b"}

const (
	defaultScreeningTemperature = 0.3

	providerLocalCouncil = "local-council"
)

// Gateway is the slice of the inference client the council depends on.
// *ollama.Client satisfies it; tests substitute a mock.
type Gateway interface {
	IsConnected() bool
	Generate(ctx context.Context, model, prompt, system string, temperature float64) (string, error)
}

// Council dispatches screening tasks to a fixed panel of three models and
// reconciles their votes. Construct one per composition root and pass it
// explicitly; there is no package-level instance.
type Council struct {
	gateway     Gateway
	models      []string
	temperature float64
	log         zerolog.Logger
}

// New builds a Council. An empty model list selects DefaultPanel; any
// other count than three is rejected.
func New(gateway Gateway, cfg types.CouncilConfig, log zerolog.Logger) (*Council, error) {
	models := cfg.Models
	if len(models) == 0 {
		models = DefaultPanel
	}
	if len(models) != PanelSize {
		return nil, fmt.Errorf("council requires exactly %d models, got %d", PanelSize, len(models))
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultScreeningTemperature
	}

	return &Council{
		gateway:     gateway,
		models:      models,
		temperature: temperature,
		log:         log,
	}, nil
}

// Models returns the panel in declaration order.
func (c *Council) Models() []string {
	out := make([]string, len(c.models))
	copy(out, c.models)
	return out
}

// modelDecision is the JSON decision object each model must return.
type modelDecision struct {
	Decision   string `json:"decision"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// ScreenArticle runs one consensus screening call. Input validation and
// the connectivity precondition fail before any model is dispatched; after
// dispatch, individual model failures are converted into synthetic
// conservative votes rather than surfaced, so a complete ScreeningResult
// with exactly three votes is always produced.
func (c *Council) ScreenArticle(ctx context.Context, article types.Article, pico types.PICOCriteria, mode Mode) (types.ScreeningResult, error) {
	if !article.HasContent() {
		return types.ScreeningResult{}, fmt.Errorf("article %d: %w", article.ID, ErrInsufficientContent)
	}
	if !pico.IsComplete() {
		return types.ScreeningResult{}, ErrInvalidCriteria
	}

	if mode == ModeCloud {
		// Explicit stub: cloud screening is not implemented and must not
		// silently fall back to local.
		return types.ScreeningResult{}, fmt.Errorf("%w: cloud screening not implemented", ErrProviderUnavailable)
	}

	if !c.gateway.IsConnected() {
		return types.ScreeningResult{}, fmt.Errorf("%w: inference service not connected", ErrProviderUnavailable)
	}

	prompt, err := renderScreeningPrompt(article, pico)
	if err != nil {
		return types.ScreeningResult{}, err
	}

	c.log.Info().Int64("article", article.ID).Msg("council screening article")

	votes := c.collectVotes(ctx, prompt)
	decision, confidence, reasoning, consensusType := reconcile(votes)

	return types.ScreeningResult{
		Decision:      decision,
		Confidence:    confidence,
		Reasoning:     reasoning,
		Votes:         votes,
		ConsensusType: consensusType,
		Provider:      providerLocalCouncil,
		CostUSD:       0,
	}, nil
}

// collectVotes issues the prompt to every panel model in parallel and
// joins all results. One model's failure never cancels or delays the
// others, and the vote slice follows panel declaration order rather than
// completion order so reasoning selection stays deterministic.
func (c *Council) collectVotes(ctx context.Context, prompt string) []types.ModelVote {
	votes := make([]types.ModelVote, len(c.models))

	var wg sync.WaitGroup
	for i, model := range c.models {
		wg.Add(1)
		go func(i int, model string) {
			defer wg.Done()
			votes[i] = c.askModel(ctx, model, prompt)
		}(i, model)
	}
	wg.Wait()

	return votes
}

// askModel obtains one vote. Any failure, transport, timeout, or
// unparseable output, becomes a synthetic exclude vote with zero
// confidence: excluding is reversible by human review, so it is the safer
// failure direction.
func (c *Council) askModel(ctx context.Context, model, prompt string) types.ModelVote {
	start := time.Now()

	raw, err := c.gateway.Generate(ctx, model, prompt, screeningSystemPrompt, c.temperature)
	if err != nil {
		c.log.Warn().Str("model", model).Err(err).Msg("council model failed")
		return failedVote(model, err)
	}

	latency := time.Since(start).Milliseconds()

	var parsed modelDecision
	if err := respparse.Unmarshal(raw, &parsed); err != nil {
		c.log.Warn().Str("model", model).Err(err).Msg("council model returned invalid output")
		return failedVote(model, err)
	}

	decision, ok := normalizeDecision(parsed.Decision)
	if !ok {
		c.log.Warn().Str("model", model).Str("decision", parsed.Decision).Msg("council model returned unknown decision")
		return failedVote(model, fmt.Errorf("%w: unknown decision %q", respparse.ErrInvalidOutput, parsed.Decision))
	}

	c.log.Debug().Str("model", model).Int64("latency_ms", latency).Msg("council model voted")

	return types.ModelVote{
		Model:      model,
		Decision:   decision,
		Confidence: clampConfidence(parsed.Confidence),
		Reasoning:  parsed.Reasoning,
		LatencyMS:  latency,
	}
}

// failedVote is the synthetic conservative vote recorded for a model that
// produced no usable answer.
func failedVote(model string, err error) types.ModelVote {
	return types.ModelVote{
		Model:      model,
		Decision:   types.DecisionExclude,
		Confidence: 0,
		Reasoning:  "Model error: " + err.Error(),
		LatencyMS:  0,
	}
}

// normalizeDecision maps a model's decision string onto the binary
// decision space.
func normalizeDecision(s string) (types.Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "include":
		return types.DecisionInclude, true
	case "exclude":
		return types.DecisionExclude, true
	default:
		return "", false
	}
}

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// reconcile is the deterministic reduction from a complete vote list to a
// single decision. Majority rules; with three voters an equal split cannot
// occur, and the exclude branch of the comparison would win one if it
// could. Confidence averages only the winning side's votes, scaled by a
// consensus-strength multiplier and rounded to the nearest integer.
func reconcile(votes []types.ModelVote) (types.Decision, int, string, types.ConsensusType) {
	var include, exclude []types.ModelVote
	for _, v := range votes {
		if v.Decision == types.DecisionInclude {
			include = append(include, v)
		} else {
			exclude = append(exclude, v)
		}
	}

	decision := types.DecisionExclude
	winning := exclude
	if len(include) > len(exclude) {
		decision = types.DecisionInclude
		winning = include
	}

	var consensusType types.ConsensusType
	switch {
	case len(include) == len(votes) || len(exclude) == len(votes):
		consensusType = types.ConsensusUnanimous
	case len(winning)*2 > len(votes):
		consensusType = types.ConsensusMajority
	default:
		// Unreachable with three binary votes; retained so stored
		// decisions with the legacy label still round-trip.
		consensusType = types.ConsensusSplit
	}

	confidence := 0
	if len(winning) > 0 {
		sum := 0
		for _, v := range winning {
			sum += v.Confidence
		}
		avg := float64(sum) / float64(len(winning))
		confidence = int(math.Round(avg * consensusMultiplier(consensusType)))
	}

	reasoning := fmt.Sprintf("Council decision (%s): %d models voted INCLUDE, %d voted EXCLUDE. %s",
		consensusType, len(include), len(exclude), firstReasoning(winning))

	return decision, confidence, reasoning, consensusType
}

// consensusMultiplier scales confidence by agreement strength.
func consensusMultiplier(t types.ConsensusType) float64 {
	switch t {
	case types.ConsensusUnanimous:
		return 1.0
	case types.ConsensusMajority:
		return 0.85
	default:
		return 0.5
	}
}

func firstReasoning(winning []types.ModelVote) string {
	if len(winning) == 0 || winning[0].Reasoning == "" {
		return "No reasoning provided."
	}
	return winning[0].Reasoning
}
