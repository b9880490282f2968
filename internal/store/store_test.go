package store

import (
	"context"
	"errors"
	"testing"

	"github.com/pdiddy/review-engine/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(types.StoreConfig{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testCriteria() types.PICOCriteria {
	return types.PICOCriteria{
		Population:   "adults with type 2 diabetes",
		Intervention: "metformin",
		Comparison:   "placebo",
		Outcomes:     "HbA1c change",
	}
}

func seedProject(t *testing.T, s *Store) int64 {
	t.Helper()
	id, err := s.CreateProject(context.Background(), &types.Project{
		Name:             "metformin review",
		ResearchQuestion: "Does metformin reduce HbA1c?",
		Criteria:         testCriteria(),
	})
	if err != nil {
		t.Fatalf("creating project: %v", err)
	}
	return id
}

func seedArticle(t *testing.T, s *Store, projectID int64) int64 {
	t.Helper()
	id, err := s.InsertArticle(context.Background(), &types.Article{
		ProjectID:        projectID,
		PDFPath:          "/data/pdfs/1/trial.pdf",
		OriginalFilename: "trial.pdf",
		Title:            "Metformin versus placebo in type 2 diabetes",
		Abstract:         "A randomized controlled trial of metformin.",
		FullText:         "A randomized controlled trial of metformin. Methods. Results.",
	})
	if err != nil {
		t.Fatalf("inserting article: %v", err)
	}
	return id
}

func TestProjectRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &types.Project{
		Name:              "salt reduction",
		ResearchQuestion:  "Does dietary salt reduction lower blood pressure?",
		Criteria:          testCriteria(),
		InclusionCriteria: []string{"RCT", "adult participants"},
		ExclusionCriteria: []string{"animal studies"},
	}
	id, err := s.CreateProject(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("project ID not assigned")
	}

	got, err := s.GetProject(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != p.Name || got.ResearchQuestion != p.ResearchQuestion {
		t.Errorf("project = %+v", got)
	}
	if got.Criteria != testCriteria() {
		t.Errorf("criteria = %+v", got.Criteria)
	}
	if len(got.InclusionCriteria) != 2 || len(got.ExclusionCriteria) != 1 {
		t.Errorf("criteria lists = %v / %v", got.InclusionCriteria, got.ExclusionCriteria)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not stored")
	}
}

func TestProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetProject(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateProjectCriteria(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := seedProject(t, s)

	updated := testCriteria()
	updated.Outcomes = "fasting glucose"
	if err := s.UpdateProjectCriteria(ctx, id, updated, []string{"English language"}, nil); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetProject(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Criteria.Outcomes != "fasting glucose" {
		t.Errorf("outcomes = %q", got.Criteria.Outcomes)
	}
	if len(got.InclusionCriteria) != 1 || got.ExclusionCriteria != nil {
		t.Errorf("criteria lists = %v / %v", got.InclusionCriteria, got.ExclusionCriteria)
	}
}

func TestArticleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	projectID := seedProject(t, s)
	articleID := seedArticle(t, s, projectID)

	got, err := s.GetArticle(ctx, articleID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ProjectID != projectID || got.OriginalFilename != "trial.pdf" {
		t.Errorf("article = %+v", got)
	}
	if got.ExtractionStatus != types.ExtractionPending {
		t.Errorf("default status = %q", got.ExtractionStatus)
	}

	got.Methods = "We randomized 120 participants."
	got.ExtractionStatus = types.ExtractionComplete
	got.Year = 2023
	got.DOI = "10.1000/trial.2023"
	if err := s.UpdateArticle(ctx, got); err != nil {
		t.Fatal(err)
	}

	reread, err := s.GetArticle(ctx, articleID)
	if err != nil {
		t.Fatal(err)
	}
	if reread.Methods == "" || reread.ExtractionStatus != types.ExtractionComplete {
		t.Errorf("update not persisted: %+v", reread)
	}
	if reread.Year != 2023 || reread.DOI != "10.1000/trial.2023" {
		t.Errorf("metadata not persisted: %+v", reread)
	}
}

func TestListArticles(t *testing.T) {
	s := newTestStore(t)
	projectID := seedProject(t, s)
	seedArticle(t, s, projectID)
	seedArticle(t, s, projectID)

	articles, err := s.ListArticles(context.Background(), projectID)
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 2 {
		t.Fatalf("articles = %d, want 2", len(articles))
	}
	if articles[0].ID >= articles[1].ID {
		t.Error("articles not in ingestion order")
	}
}

func TestSearchArticles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	projectID := seedProject(t, s)
	matchID := seedArticle(t, s, projectID)

	other := &types.Article{
		ProjectID:        projectID,
		PDFPath:          "/data/pdfs/1/other.pdf",
		OriginalFilename: "other.pdf",
		Title:            "Statin therapy in cardiovascular prevention",
		Abstract:         "A trial of statins.",
	}
	if _, err := s.InsertArticle(ctx, other); err != nil {
		t.Fatal(err)
	}

	hits, err := s.SearchArticles(ctx, projectID, "metformin")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != matchID {
		t.Fatalf("hits = %+v", hits)
	}

	// Updates must propagate to the search index via the triggers.
	a, err := s.GetArticle(ctx, other.ID)
	if err != nil {
		t.Fatal(err)
	}
	a.Abstract = "A trial of statins and metformin combined."
	if err := s.UpdateArticle(ctx, a); err != nil {
		t.Fatal(err)
	}
	hits, err = s.SearchArticles(ctx, projectID, "metformin")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits after update = %d, want 2", len(hits))
	}
}

func TestScreeningDecisionReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	projectID := seedProject(t, s)
	articleID := seedArticle(t, s, projectID)

	first := &types.ScreeningDecision{
		ArticleID: articleID,
		ScreeningResult: types.ScreeningResult{
			Decision:   types.DecisionInclude,
			Confidence: 80,
			Reasoning:  "Council decision (unanimous): 3 models voted INCLUDE, 0 voted EXCLUDE. RCT matches criteria.",
			Votes: []types.ModelVote{
				{Model: "llama3.3:70b", Decision: types.DecisionInclude, Confidence: 80, Reasoning: "RCT matches criteria.", LatencyMS: 1200},
				{Model: "mistral-large", Decision: types.DecisionInclude, Confidence: 80, LatencyMS: 900},
				{Model: "gemma2:27b", Decision: types.DecisionInclude, Confidence: 80, LatencyMS: 1500},
			},
			ConsensusType: types.ConsensusUnanimous,
			Provider:      "local-council",
		},
	}
	if err := s.SaveScreeningDecision(ctx, first); err != nil {
		t.Fatal(err)
	}

	override := &types.ScreeningDecision{
		ArticleID: articleID,
		ScreeningResult: types.ScreeningResult{
			Decision:      types.DecisionExclude,
			Confidence:    100,
			Reasoning:     "Wrong population on closer reading.",
			ConsensusType: types.ConsensusManual,
			Provider:      "manual",
		},
		IsManualOverride: true,
		OverrideReason:   "Wrong population on closer reading.",
	}
	if err := s.SaveScreeningDecision(ctx, override); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetScreeningDecision(ctx, articleID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Decision != types.DecisionExclude || !got.IsManualOverride {
		t.Errorf("decision = %+v", got)
	}
	if len(got.Votes) != 0 {
		t.Errorf("manual override kept votes: %+v", got.Votes)
	}

	decisions, err := s.ListScreeningDecisions(ctx, projectID)
	if err != nil {
		t.Fatal(err)
	}
	if len(decisions) != 1 {
		t.Fatalf("decisions = %d, want 1 (replace, not append)", len(decisions))
	}
}

func TestScreeningDecisionVoteRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	projectID := seedProject(t, s)
	articleID := seedArticle(t, s, projectID)

	d := &types.ScreeningDecision{
		ArticleID: articleID,
		ScreeningResult: types.ScreeningResult{
			Decision:   types.DecisionExclude,
			Confidence: 64,
			Reasoning:  "Council decision (2-1): 1 models voted INCLUDE, 2 voted EXCLUDE. Not an RCT.",
			Votes: []types.ModelVote{
				{Model: "llama3.3:70b", Decision: types.DecisionExclude, Confidence: 70, Reasoning: "Not an RCT.", LatencyMS: 1100},
				{Model: "mistral-large", Decision: types.DecisionInclude, Confidence: 55, Reasoning: "Possibly relevant.", LatencyMS: 800},
				{Model: "gemma2:27b", Decision: types.DecisionExclude, Confidence: 0, Reasoning: "Model error: timeout"},
			},
			ConsensusType: types.ConsensusMajority,
			Provider:      "local-council",
		},
	}
	if err := s.SaveScreeningDecision(ctx, d); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetScreeningDecision(ctx, articleID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Votes) != 3 {
		t.Fatalf("votes = %d", len(got.Votes))
	}
	if got.Votes[2].Reasoning != "Model error: timeout" || got.Votes[2].Confidence != 0 {
		t.Errorf("synthetic vote not preserved: %+v", got.Votes[2])
	}
	if got.ConsensusType != types.ConsensusMajority {
		t.Errorf("consensus type = %q", got.ConsensusType)
	}
}

func TestExtractedDataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	projectID := seedProject(t, s)
	articleID := seedArticle(t, s, projectID)

	mean := -1.1
	sd := 0.9
	n := 60
	se := 0.11618
	d := &types.ExtractedData{
		ArticleID: articleID,
		Population: &types.PopulationData{
			Description: "adults with type 2 diabetes",
			SampleSize:  120,
		},
		Intervention: &types.InterventionData{Name: "metformin", Description: "850mg twice daily"},
		Comparison:   &types.InterventionData{Name: "placebo", Description: "matched placebo"},
		StudyDesign:  "RCT",
		SampleSize:   120,
		PrimaryOutcomes: []types.OutcomeResult{{
			Outcome:          "HbA1c change",
			Timepoint:        "12 weeks",
			InterventionMean: &mean,
			InterventionSD:   &sd,
			InterventionN:    &n,
			StdError:         &se,
			IsDerived:        true,
		}},
		RiskOfBias: &types.RiskOfBias{
			RandomSequenceGeneration: types.BiasLow,
			AllocationConcealment:    types.BiasUnclear,
		},
		ExtractedBy: "ai",
		AIModel:     "llama3.3:70b",
		Confidence:  85,
	}
	if err := s.SaveExtractedData(ctx, d); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetExtractedData(ctx, articleID)
	if err != nil {
		t.Fatal(err)
	}
	if got.StudyDesign != "RCT" || got.SampleSize != 120 {
		t.Errorf("design/sample = %s/%d", got.StudyDesign, got.SampleSize)
	}
	if got.Population == nil || got.Population.SampleSize != 120 {
		t.Errorf("population = %+v", got.Population)
	}
	if len(got.PrimaryOutcomes) != 1 {
		t.Fatalf("outcomes = %d", len(got.PrimaryOutcomes))
	}
	outcome := got.PrimaryOutcomes[0]
	if outcome.StdError == nil || !outcome.IsDerived {
		t.Error("derived standard error lost in round trip")
	}
	if outcome.ControlMean != nil {
		t.Error("absent field resurrected as zero")
	}
	if got.RiskOfBias == nil || got.RiskOfBias.AllocationConcealment != types.BiasUnclear {
		t.Errorf("risk of bias = %+v", got.RiskOfBias)
	}

	// Saving again replaces the row, marking manual correction.
	got.ManualEditsMade = true
	got.ExtractedBy = "manual"
	if err := s.SaveExtractedData(ctx, got); err != nil {
		t.Fatal(err)
	}
	records, err := s.ListExtractedData(ctx, projectID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if !records[0].ManualEditsMade {
		t.Error("manual edit flag lost")
	}
}

func TestProjectScreeningStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	projectID := seedProject(t, s)

	included := seedArticle(t, s, projectID)
	excluded := seedArticle(t, s, projectID)
	seedArticle(t, s, projectID) // pending

	for _, tc := range []struct {
		id       int64
		decision types.Decision
	}{
		{included, types.DecisionInclude},
		{excluded, types.DecisionExclude},
	} {
		err := s.SaveScreeningDecision(ctx, &types.ScreeningDecision{
			ArticleID: tc.id,
			ScreeningResult: types.ScreeningResult{
				Decision:      tc.decision,
				Reasoning:     "test",
				ConsensusType: types.ConsensusUnanimous,
				Provider:      "local-council",
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	st, err := s.ProjectScreeningStats(ctx, projectID)
	if err != nil {
		t.Fatal(err)
	}
	want := ScreeningStats{Total: 3, Included: 1, Excluded: 1, Pending: 1}
	if st != want {
		t.Errorf("stats = %+v, want %+v", st, want)
	}
}

func TestUsageLogAndSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []types.UsageRecord{
		{Operation: "screening", ArticleID: 1, Provider: "local-council", Model: "council", LatencyMS: 4000, Status: "success"},
		{Operation: "screening", ArticleID: 2, Provider: "local-council", Model: "council", LatencyMS: 6000, Status: "success"},
		{Operation: "extraction", ArticleID: 1, Provider: "local", Model: "llama3.3:70b", LatencyMS: 9000, Status: "failed", ErrorMessage: "timeout"},
	}
	for _, rec := range records {
		if err := s.LogUsage(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	summaries, err := s.UsageByMonth(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %+v", summaries)
	}

	byProvider := map[string]types.UsageSummary{}
	for _, sum := range summaries {
		byProvider[sum.Provider] = sum
	}
	council := byProvider["local-council"]
	if council.RequestCount != 2 || council.AvgLatencyMS != 5000 {
		t.Errorf("council summary = %+v", council)
	}
	if byProvider["local"].RequestCount != 1 {
		t.Errorf("local summary = %+v", byProvider["local"])
	}
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetSetting(ctx, "ai_provider", "local")
	if err != nil {
		t.Fatal(err)
	}
	if got != "local" {
		t.Errorf("fallback = %q", got)
	}

	if err := s.SetSetting(ctx, "ai_provider", "cloud"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting(ctx, "ai_provider", "local"); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetSetting(ctx, "ai_provider", "cloud")
	if err != nil {
		t.Fatal(err)
	}
	if got != "local" {
		t.Errorf("setting = %q", got)
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s1, err := New(types.StoreConfig{DataDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	projectID := seedProject(t, s1)
	s1.Close()

	s2, err := New(types.StoreConfig{DataDir: dir})
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer s2.Close()

	if _, err := s2.GetProject(context.Background(), projectID); err != nil {
		t.Fatalf("data lost on reopen: %v", err)
	}
}
