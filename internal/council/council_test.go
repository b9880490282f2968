package council

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/review-engine/pkg/types"
)

// --- mock gateway ---

type mockGateway struct {
	connected bool
	responses map[string]string        // model → raw response
	errs      map[string]error         // model → forced error
	delays    map[string]time.Duration // model → simulated latency
}

func (m *mockGateway) IsConnected() bool { return m.connected }

func (m *mockGateway) Generate(ctx context.Context, model, prompt, system string, temperature float64) (string, error) {
	if d, ok := m.delays[model]; ok {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(d):
		}
	}
	if err, ok := m.errs[model]; ok {
		return "", err
	}
	return m.responses[model], nil
}

func voteJSON(decision string, confidence int, reasoning string) string {
	return fmt.Sprintf(`{"decision":%q,"confidence":%d,"reasoning":%q}`, decision, confidence, reasoning)
}

func testArticle() types.Article {
	return types.Article{
		ID:       7,
		Title:    "Metformin vs placebo in type 2 diabetes",
		Abstract: "A randomized controlled trial of metformin.",
		Methods:  "Double-blind RCT, 120 participants.",
		Results:  "HbA1c reduced by 1.1% vs 0.2% (p=0.01).",
	}
}

func testPICO() types.PICOCriteria {
	return types.PICOCriteria{
		Population:   "adults with type 2 diabetes",
		Intervention: "metformin",
		Comparison:   "placebo",
		Outcomes:     "HbA1c change",
	}
}

func newTestCouncil(t *testing.T, gw Gateway) *Council {
	t.Helper()
	c, err := New(gw, types.CouncilConfig{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// --- construction ---

func TestNewPanelSize(t *testing.T) {
	gw := &mockGateway{connected: true}

	if _, err := New(gw, types.CouncilConfig{Models: []string{"a", "b"}}, zerolog.Nop()); err == nil {
		t.Error("two-model panel accepted")
	}
	if _, err := New(gw, types.CouncilConfig{Models: []string{"a", "b", "c", "d"}}, zerolog.Nop()); err == nil {
		t.Error("four-model panel accepted")
	}

	c, err := New(gw, types.CouncilConfig{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Models(); len(got) != PanelSize {
		t.Errorf("default panel size = %d", len(got))
	}
}

// --- validation and preconditions ---

func TestScreenArticleValidation(t *testing.T) {
	gw := &mockGateway{connected: true}
	c := newTestCouncil(t, gw)
	ctx := context.Background()

	t.Run("insufficient content", func(t *testing.T) {
		empty := types.Article{ID: 1, Title: "only a title"}
		_, err := c.ScreenArticle(ctx, empty, testPICO(), ModeLocal)
		if !errors.Is(err, ErrInsufficientContent) {
			t.Errorf("err = %v, want ErrInsufficientContent", err)
		}
	})

	t.Run("incomplete criteria", func(t *testing.T) {
		pico := testPICO()
		pico.Comparison = ""
		_, err := c.ScreenArticle(ctx, testArticle(), pico, ModeLocal)
		if !errors.Is(err, ErrInvalidCriteria) {
			t.Errorf("err = %v, want ErrInvalidCriteria", err)
		}
	})

	t.Run("cloud mode is an explicit stub", func(t *testing.T) {
		_, err := c.ScreenArticle(ctx, testArticle(), testPICO(), ModeCloud)
		if !errors.Is(err, ErrProviderUnavailable) {
			t.Errorf("err = %v, want ErrProviderUnavailable", err)
		}
	})

	t.Run("disconnected gateway fails before dispatch", func(t *testing.T) {
		offline := newTestCouncil(t, &mockGateway{connected: false})
		_, err := offline.ScreenArticle(ctx, testArticle(), testPICO(), ModeLocal)
		if !errors.Is(err, ErrProviderUnavailable) {
			t.Errorf("err = %v, want ErrProviderUnavailable", err)
		}
	})
}

// --- consensus scenarios ---

func TestScreenArticleUnanimous(t *testing.T) {
	gw := &mockGateway{
		connected: true,
		responses: map[string]string{
			"llama3.3:70b":  voteJSON("include", 80, "meets all PICO criteria"),
			"mistral-large": voteJSON("include", 80, "population and intervention match"),
			"gemma2:27b":    voteJSON("include", 80, "clear match"),
		},
	}
	c := newTestCouncil(t, gw)

	result, err := c.ScreenArticle(context.Background(), testArticle(), testPICO(), ModeLocal)
	if err != nil {
		t.Fatal(err)
	}

	if result.Decision != types.DecisionInclude {
		t.Errorf("decision = %s", result.Decision)
	}
	if result.ConsensusType != types.ConsensusUnanimous {
		t.Errorf("consensus = %s", result.ConsensusType)
	}
	if result.Confidence != 80 {
		t.Errorf("confidence = %d, want 80", result.Confidence)
	}
	if result.Provider != "local-council" || result.CostUSD != 0 {
		t.Errorf("provider/cost = %s/%v", result.Provider, result.CostUSD)
	}
	if len(result.Votes) != PanelSize {
		t.Fatalf("votes = %d, want %d", len(result.Votes), PanelSize)
	}
}

func TestScreenArticleMajority(t *testing.T) {
	gw := &mockGateway{
		connected: true,
		responses: map[string]string{
			"llama3.3:70b":  voteJSON("include", 90, "strong match on population"),
			"mistral-large": voteJSON("include", 85, "intervention matches"),
			"gemma2:27b":    voteJSON("exclude", 60, "outcome timepoint differs"),
		},
	}
	c := newTestCouncil(t, gw)

	result, err := c.ScreenArticle(context.Background(), testArticle(), testPICO(), ModeLocal)
	if err != nil {
		t.Fatal(err)
	}

	if result.Decision != types.DecisionInclude {
		t.Errorf("decision = %s", result.Decision)
	}
	if result.ConsensusType != types.ConsensusMajority {
		t.Errorf("consensus = %s", result.ConsensusType)
	}
	// round(avg(90,85) * 0.85) = round(74.375) = 74
	if result.Confidence != 74 {
		t.Errorf("confidence = %d, want 74", result.Confidence)
	}
	if !strings.Contains(result.Reasoning, "2 models voted INCLUDE, 1 voted EXCLUDE") {
		t.Errorf("reasoning = %q", result.Reasoning)
	}
	if !strings.Contains(result.Reasoning, "strong match on population") {
		t.Errorf("reasoning does not quote first winning vote: %q", result.Reasoning)
	}
}

func TestScreenArticleModelFailureBecomesVote(t *testing.T) {
	gw := &mockGateway{
		connected: true,
		responses: map[string]string{
			"llama3.3:70b": voteJSON("include", 90, "matches"),
			"gemma2:27b":   voteJSON("include", 70, "matches"),
		},
		errs: map[string]error{
			"mistral-large": errors.New("request timed out"),
		},
	}
	c := newTestCouncil(t, gw)

	result, err := c.ScreenArticle(context.Background(), testArticle(), testPICO(), ModeLocal)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Votes) != PanelSize {
		t.Fatalf("votes = %d, want %d", len(result.Votes), PanelSize)
	}

	failed := result.Votes[1]
	if failed.Model != "mistral-large" {
		t.Fatalf("vote order does not follow panel order: %+v", result.Votes)
	}
	if failed.Decision != types.DecisionExclude || failed.Confidence != 0 || failed.LatencyMS != 0 {
		t.Errorf("synthetic vote = %+v", failed)
	}
	if !strings.Contains(failed.Reasoning, "Model error:") {
		t.Errorf("synthetic vote reasoning = %q", failed.Reasoning)
	}

	if result.Decision != types.DecisionInclude || result.ConsensusType != types.ConsensusMajority {
		t.Errorf("decision/consensus = %s/%s", result.Decision, result.ConsensusType)
	}
}

func TestScreenArticleAllModelsFail(t *testing.T) {
	gw := &mockGateway{
		connected: true,
		errs: map[string]error{
			"llama3.3:70b":  errors.New("timeout"),
			"mistral-large": errors.New("connection reset"),
			"gemma2:27b":    errors.New("timeout"),
		},
	}
	c := newTestCouncil(t, gw)

	result, err := c.ScreenArticle(context.Background(), testArticle(), testPICO(), ModeLocal)
	if err != nil {
		t.Fatalf("all-failure screening must not error: %v", err)
	}

	if result.Decision != types.DecisionExclude {
		t.Errorf("decision = %s, want exclude", result.Decision)
	}
	if result.Confidence != 0 {
		t.Errorf("confidence = %d, want 0", result.Confidence)
	}
	if result.ConsensusType != types.ConsensusUnanimous {
		t.Errorf("consensus = %s, want unanimous", result.ConsensusType)
	}
	if len(result.Votes) != PanelSize {
		t.Errorf("votes = %d, want %d", len(result.Votes), PanelSize)
	}
}

// Two failed models plus one real include vote still excludes 2-1. The
// conservative default deliberately pushes degraded calls toward manual
// review.
func TestScreenArticleDegradedMajority(t *testing.T) {
	gw := &mockGateway{
		connected: true,
		responses: map[string]string{
			"llama3.3:70b": voteJSON("include", 95, "clear match"),
		},
		errs: map[string]error{
			"mistral-large": errors.New("timeout"),
			"gemma2:27b":    errors.New("timeout"),
		},
	}
	c := newTestCouncil(t, gw)

	result, err := c.ScreenArticle(context.Background(), testArticle(), testPICO(), ModeLocal)
	if err != nil {
		t.Fatal(err)
	}
	if result.Decision != types.DecisionExclude {
		t.Errorf("decision = %s, want exclude", result.Decision)
	}
	if result.ConsensusType != types.ConsensusMajority {
		t.Errorf("consensus = %s, want 2-1", result.ConsensusType)
	}
}

func TestScreenArticleInvalidOutputBecomesVote(t *testing.T) {
	gw := &mockGateway{
		connected: true,
		responses: map[string]string{
			"llama3.3:70b":  voteJSON("include", 90, "matches"),
			"mistral-large": "I cannot answer in JSON, sorry.",
			"gemma2:27b":    voteJSON("maybe", 50, "unsure"),
		},
	}
	c := newTestCouncil(t, gw)

	result, err := c.ScreenArticle(context.Background(), testArticle(), testPICO(), ModeLocal)
	if err != nil {
		t.Fatal(err)
	}

	// Both the non-JSON response and the unknown decision collapse into
	// synthetic exclude votes.
	if result.Decision != types.DecisionExclude {
		t.Errorf("decision = %s", result.Decision)
	}
	for _, i := range []int{1, 2} {
		v := result.Votes[i]
		if v.Decision != types.DecisionExclude || v.Confidence != 0 {
			t.Errorf("vote[%d] = %+v, want synthetic exclude", i, v)
		}
	}
}

// A fast model must not reorder votes ahead of slower panel members.
func TestVoteOrderFollowsPanelOrder(t *testing.T) {
	gw := &mockGateway{
		connected: true,
		responses: map[string]string{
			"llama3.3:70b":  voteJSON("include", 90, "a"),
			"mistral-large": voteJSON("exclude", 80, "b"),
			"gemma2:27b":    voteJSON("include", 70, "c"),
		},
		delays: map[string]time.Duration{
			"llama3.3:70b":  30 * time.Millisecond,
			"mistral-large": 15 * time.Millisecond,
			"gemma2:27b":    0,
		},
	}
	c := newTestCouncil(t, gw)

	result, err := c.ScreenArticle(context.Background(), testArticle(), testPICO(), ModeLocal)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"llama3.3:70b", "mistral-large", "gemma2:27b"}
	for i, v := range result.Votes {
		if v.Model != want[i] {
			t.Fatalf("vote[%d].Model = %s, want %s", i, v.Model, want[i])
		}
	}
}

// --- reconcile properties ---

func TestReconcileConfidenceBounds(t *testing.T) {
	decisions := []types.Decision{types.DecisionInclude, types.DecisionExclude}
	confidences := []int{0, 1, 33, 50, 99, 100}

	for _, d0 := range decisions {
		for _, d1 := range decisions {
			for _, d2 := range decisions {
				for _, conf := range confidences {
					votes := []types.ModelVote{
						{Model: "a", Decision: d0, Confidence: conf},
						{Model: "b", Decision: d1, Confidence: 100 - conf},
						{Model: "c", Decision: d2, Confidence: conf / 2},
					}
					_, confidence, _, consensusType := reconcile(votes)
					if confidence < 0 || confidence > 100 {
						t.Fatalf("confidence %d out of range for votes %+v", confidence, votes)
					}
					if consensusType == types.ConsensusSplit {
						t.Fatalf("3-way split reported for binary votes %+v", votes)
					}
				}
			}
		}
	}
}

func TestReconcileConsensusType(t *testing.T) {
	mk := func(a, b, c types.Decision) []types.ModelVote {
		return []types.ModelVote{
			{Decision: a, Confidence: 50},
			{Decision: b, Confidence: 50},
			{Decision: c, Confidence: 50},
		}
	}
	in, ex := types.DecisionInclude, types.DecisionExclude

	tests := []struct {
		votes []types.ModelVote
		want  types.ConsensusType
	}{
		{mk(in, in, in), types.ConsensusUnanimous},
		{mk(ex, ex, ex), types.ConsensusUnanimous},
		{mk(in, in, ex), types.ConsensusMajority},
		{mk(ex, in, ex), types.ConsensusMajority},
	}
	for _, tt := range tests {
		_, _, _, got := reconcile(tt.votes)
		if got != tt.want {
			t.Errorf("reconcile(%v) consensus = %s, want %s", tt.votes, got, tt.want)
		}
	}
}
