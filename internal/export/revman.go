// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/pdiddy/review-engine/pkg/types"
)

// Study is one included study flattened for RevMan: the first primary
// outcome joined with bibliographic and risk-of-bias data.
type Study struct {
	StudyID     string
	Authors     string
	Year        int
	Title       string
	StudyDesign string
	SampleSize  int

	InterventionName string
	InterventionN    int
	InterventionMean *float64
	InterventionSD   *float64

	ControlName string
	ControlN    int
	ControlMean *float64
	ControlSD   *float64

	OutcomeName string
	OutcomeType string
	Timepoint   string

	PValue   *float64
	StdError *float64

	// Derived marks studies whose outcome carries a back-filled
	// statistic. Such values are suffixed with "*" in the CSV.
	Derived bool

	RiskOfBias *types.RiskOfBias
}

// collectStudies builds the RevMan study list: included articles that have
// extracted data, one row per study using its first primary outcome.
func (m *Manager) collectStudies(ctx context.Context, projectID int64) ([]Study, error) {
	decisions, err := m.store.ListScreeningDecisions(ctx, projectID)
	if err != nil {
		return nil, err
	}
	included := map[int64]bool{}
	for _, d := range decisions {
		if d.Decision == types.DecisionInclude {
			included[d.ArticleID] = true
		}
	}

	records, err := m.store.ListExtractedData(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var studies []Study
	for _, rec := range records {
		if !included[rec.ArticleID] {
			continue
		}
		article, err := m.store.GetArticle(ctx, rec.ArticleID)
		if err != nil {
			return nil, err
		}
		studies = append(studies, buildStudy(len(studies)+1, article, rec))
	}
	return studies, nil
}

func buildStudy(index int, article *types.Article, rec types.ExtractedData) Study {
	s := Study{
		StudyID:     fmt.Sprintf("Study_%d", index),
		Authors:     orDefault(article.Authors, "Unknown"),
		Year:        article.Year,
		Title:       orDefault(article.Title, "Untitled"),
		StudyDesign: orDefault(rec.StudyDesign, "RCT"),
		SampleSize:  rec.SampleSize,

		InterventionName: "Intervention",
		ControlName:      "Control",
		InterventionN:    rec.SampleSize / 2,
		ControlN:         rec.SampleSize / 2,

		OutcomeName: "Primary Outcome",
		OutcomeType: "continuous",
		Timepoint:   "End of intervention",

		RiskOfBias: rec.RiskOfBias,
	}
	if s.Year == 0 {
		s.Year = time.Now().Year()
	}
	if rec.Intervention != nil && rec.Intervention.Name != "" {
		s.InterventionName = rec.Intervention.Name
	}
	if rec.Comparison != nil && rec.Comparison.Name != "" {
		s.ControlName = rec.Comparison.Name
	}

	if len(rec.PrimaryOutcomes) > 0 {
		outcome := rec.PrimaryOutcomes[0]
		s.OutcomeName = orDefault(outcome.Outcome, s.OutcomeName)
		s.Timepoint = orDefault(outcome.Timepoint, s.Timepoint)
		s.InterventionMean = outcome.InterventionMean
		s.InterventionSD = outcome.InterventionSD
		s.ControlMean = outcome.ControlMean
		s.ControlSD = outcome.ControlSD
		s.PValue = outcome.PValue
		s.StdError = outcome.StdError
		s.Derived = outcome.IsDerived
		if outcome.InterventionN != nil {
			s.InterventionN = *outcome.InterventionN
		}
		if outcome.ControlN != nil {
			s.ControlN = *outcome.ControlN
		}
	}
	return s
}

var revmanHeaders = []string{
	"Study ID", "Authors", "Year", "Title", "Study Design", "Sample Size",
	"Intervention", "Intervention N", "Intervention Mean", "Intervention SD",
	"Control", "Control N", "Control Mean", "Control SD",
	"Outcome", "Outcome Type", "Timepoint", "P Value", "Std Error",
	"RoB - Random Sequence Generation", "RoB - Allocation Concealment",
	"RoB - Blinding (Participants)", "RoB - Blinding (Outcome Assessment)",
	"RoB - Incomplete Outcome Data", "RoB - Selective Reporting",
	"RoB - Other Bias",
}

// WriteRevManCSV writes the included studies as RevMan-compatible CSV.
// Statistics that were derived rather than reported carry a "*" suffix.
func (m *Manager) WriteRevManCSV(ctx context.Context, projectID int64, path string) error {
	studies, err := m.collectStudies(ctx, projectID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(revmanHeaders); err != nil {
		return err
	}
	for _, s := range studies {
		row := []string{
			s.StudyID, s.Authors, strconv.Itoa(s.Year), s.Title,
			s.StudyDesign, strconv.Itoa(s.SampleSize),
			s.InterventionName, strconv.Itoa(s.InterventionN),
			formatFloat(s.InterventionMean, false),
			formatFloat(s.InterventionSD, s.Derived),
			s.ControlName, strconv.Itoa(s.ControlN),
			formatFloat(s.ControlMean, false),
			formatFloat(s.ControlSD, s.Derived),
			s.OutcomeName, s.OutcomeType, s.Timepoint,
			formatFloat(s.PValue, false),
			formatFloat(s.StdError, s.Derived),
			robLabel(ratingOf(s.RiskOfBias).RandomSequenceGeneration),
			robLabel(ratingOf(s.RiskOfBias).AllocationConcealment),
			robLabel(ratingOf(s.RiskOfBias).BlindingParticipants),
			robLabel(ratingOf(s.RiskOfBias).BlindingAssessors),
			robLabel(ratingOf(s.RiskOfBias).IncompleteOutcome),
			robLabel(ratingOf(s.RiskOfBias).SelectiveReporting),
			robLabel(ratingOf(s.RiskOfBias).OtherBias),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}

// formatFloat renders an optional statistic; derived values are starred.
func formatFloat(v *float64, derived bool) string {
	if v == nil {
		return ""
	}
	out := strconv.FormatFloat(*v, 'g', -1, 64)
	if derived {
		out += "*"
	}
	return out
}

func ratingOf(rob *types.RiskOfBias) types.RiskOfBias {
	if rob == nil {
		return types.RiskOfBias{}
	}
	return *rob
}

func robLabel(r types.BiasRating) string {
	switch r {
	case types.BiasLow:
		return "Low"
	case types.BiasHigh:
		return "High"
	default:
		return "Unclear"
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// RevMan 5.4 XML structures.
type revmanReview struct {
	XMLName xml.Name      `xml:"COCHRANE_REVIEW"`
	Studies []revmanStudy `xml:"STUDIES>STUDY"`
}

type revmanStudy struct {
	ID         string      `xml:"ID,attr"`
	Authors    string      `xml:"AUTHORS"`
	Year       int         `xml:"YEAR"`
	Title      string      `xml:"TITLE"`
	Design     string      `xml:"DESIGN"`
	SampleSize int         `xml:"SAMPLE_SIZE"`
	Arms       []revmanArm `xml:"ARM"`
	Outcome    revmanOutcome
	RiskOfBias revmanRoB `xml:"RISK_OF_BIAS"`
}

type revmanArm struct {
	Role string   `xml:"ROLE,attr"`
	Name string   `xml:"NAME"`
	N    int      `xml:"N"`
	Mean *float64 `xml:"MEAN,omitempty"`
	SD   *float64 `xml:"SD,omitempty"`
}

type revmanOutcome struct {
	XMLName   xml.Name `xml:"OUTCOME"`
	Name      string   `xml:"NAME"`
	Type      string   `xml:"TYPE"`
	Timepoint string   `xml:"TIMEPOINT"`
	PValue    *float64 `xml:"P_VALUE,omitempty"`
	StdError  *float64 `xml:"STD_ERROR,omitempty"`
	Derived   bool     `xml:"DERIVED,attr"`
}

type revmanRoB struct {
	RandomSequence        string `xml:"RANDOM_SEQUENCE"`
	AllocationConcealment string `xml:"ALLOCATION_CONCEALMENT"`
	BlindingParticipants  string `xml:"BLINDING_PARTICIPANTS"`
	BlindingOutcome       string `xml:"BLINDING_OUTCOME"`
	IncompleteOutcome     string `xml:"INCOMPLETE_OUTCOME"`
	SelectiveReporting    string `xml:"SELECTIVE_REPORTING"`
	OtherBias             string `xml:"OTHER_BIAS"`
}

// WriteRevManXML writes the included studies as RevMan 5.4 XML.
func (m *Manager) WriteRevManXML(ctx context.Context, projectID int64, path string) error {
	studies, err := m.collectStudies(ctx, projectID)
	if err != nil {
		return err
	}

	review := revmanReview{}
	for _, s := range studies {
		rob := ratingOf(s.RiskOfBias)
		review.Studies = append(review.Studies, revmanStudy{
			ID:         s.StudyID,
			Authors:    s.Authors,
			Year:       s.Year,
			Title:      s.Title,
			Design:     s.StudyDesign,
			SampleSize: s.SampleSize,
			Arms: []revmanArm{
				{Role: "intervention", Name: s.InterventionName, N: s.InterventionN, Mean: s.InterventionMean, SD: s.InterventionSD},
				{Role: "control", Name: s.ControlName, N: s.ControlN, Mean: s.ControlMean, SD: s.ControlSD},
			},
			Outcome: revmanOutcome{
				Name:      s.OutcomeName,
				Type:      s.OutcomeType,
				Timepoint: s.Timepoint,
				PValue:    s.PValue,
				StdError:  s.StdError,
				Derived:   s.Derived,
			},
			RiskOfBias: revmanRoB{
				RandomSequence:        robLabel(rob.RandomSequenceGeneration),
				AllocationConcealment: robLabel(rob.AllocationConcealment),
				BlindingParticipants:  robLabel(rob.BlindingParticipants),
				BlindingOutcome:       robLabel(rob.BlindingAssessors),
				IncompleteOutcome:     robLabel(rob.IncompleteOutcome),
				SelectiveReporting:    robLabel(rob.SelectiveReporting),
				OtherBias:             robLabel(rob.OtherBias),
			},
		})
	}

	data, err := xml.MarshalIndent(review, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling RevMan XML: %w", err)
	}
	return writeFile(path, append([]byte(xml.Header), append(data, '\n')...))
}
