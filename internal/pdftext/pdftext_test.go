package pdftext

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

const sampleArticle = `Metformin versus placebo in adults with type 2 diabetes
John Smith, Jane Doe
Journal of Endocrinology, 2023
DOI: 10.1000/jend.2023.042

ABSTRACT
We conducted a randomized controlled trial of metformin 850mg twice daily
against matched placebo in 120 adults with type 2 diabetes.

INTRODUCTION
Type 2 diabetes affects a growing share of the adult population.

METHODS
We randomized 120 participants 1:1 to metformin or placebo for 12 weeks.

RESULTS
HbA1c fell by 1.1 percentage points in the intervention arm (SD 0.9)
versus 0.2 in the control arm (SD 0.8), p = 0.01.

DISCUSSION
The observed reduction is consistent with earlier trials.

CONCLUSION
Metformin lowered HbA1c relative to placebo.

REFERENCES
1. Earlier trial of metformin monotherapy.
`

func TestExtractMetadata(t *testing.T) {
	md := ExtractMetadata(sampleArticle)

	if md.Title != "Metformin versus placebo in adults with type 2 diabetes" {
		t.Errorf("title = %q", md.Title)
	}
	if md.Year != 2023 {
		t.Errorf("year = %d", md.Year)
	}
	if md.DOI != "10.1000/jend.2023.042" {
		t.Errorf("doi = %q", md.DOI)
	}
}

func TestExtractMetadataDOIForms(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"labeled", "see DOI: 10.1000/abc.123 for details", "10.1000/abc.123"},
		{"url", "available at https://doi.org/10.1000/abc.123 online", "10.1000/abc.123"},
		{"bare", "identifier 10.1000/abc.123 cited", "10.1000/abc.123"},
		{"trailing punctuation", "DOI: 10.1000/abc.123.", "10.1000/abc.123"},
		{"none", "no identifier here", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractMetadata(tc.text).DOI; got != tc.want {
				t.Errorf("DOI = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractMetadataAuthorsFromText(t *testing.T) {
	md := ExtractMetadata("John Smith, Jane Doe\nSome Title\n")
	if md.Authors != "John Smith, Jane Doe" {
		t.Errorf("authors = %q", md.Authors)
	}
}

func TestExtractSections(t *testing.T) {
	s := ExtractSections(sampleArticle)

	if !strings.HasPrefix(s.Abstract, "We conducted a randomized controlled trial") {
		t.Errorf("abstract = %q", s.Abstract)
	}
	if !strings.Contains(s.Methods, "randomized 120 participants") {
		t.Errorf("methods = %q", s.Methods)
	}
	if !strings.Contains(s.Results, "HbA1c fell") {
		t.Errorf("results = %q", s.Results)
	}
	if !strings.Contains(s.Discussion, "consistent with earlier trials") {
		t.Errorf("discussion = %q", s.Discussion)
	}
	if !strings.Contains(s.Conclusion, "lowered HbA1c") {
		t.Errorf("conclusion = %q", s.Conclusion)
	}
	if !strings.Contains(s.References, "Earlier trial") {
		t.Errorf("references = %q", s.References)
	}

	// A section body must stop at the next heading.
	if strings.Contains(s.Abstract, "Type 2 diabetes affects") {
		t.Error("abstract ran into the introduction")
	}
}

func TestExtractSectionsNumberedHeadings(t *testing.T) {
	text := "Title\n\n1. INTRODUCTION\nSome background text.\n\n2. METHODS\nTrial design here.\n"
	s := ExtractSections(text)
	if !strings.Contains(s.Introduction, "background text") {
		t.Errorf("introduction = %q", s.Introduction)
	}
	if !strings.Contains(s.Methods, "Trial design") {
		t.Errorf("methods = %q", s.Methods)
	}
}

func TestAbstractFallsBackToFirstParagraph(t *testing.T) {
	text := "Short title\n\n" + strings.Repeat("A long opening paragraph. ", 10) + "\n\nSecond paragraph."
	s := ExtractSections(text)
	if !strings.HasPrefix(s.Abstract, "A long opening paragraph.") {
		t.Errorf("abstract = %q", s.Abstract)
	}
}

func TestCleanSectionText(t *testing.T) {
	got := cleanSectionText("broken- \nword  and\trandom\r\n\n\n\nspacing")
	if got != "brokenword and random spacing" {
		t.Errorf("cleaned = %q", got)
	}
}

func TestIsScannedText(t *testing.T) {
	if !IsScannedText(strings.Repeat("x", 300), 10) {
		t.Error("sparse text not flagged as scanned")
	}
	if IsScannedText(strings.Repeat("x", 5000), 10) {
		t.Error("dense text flagged as scanned")
	}
	if IsScannedText("", 0) {
		t.Error("zero pages flagged as scanned")
	}
}

// fakeExecutor simulates the pdftotext binary.
type fakeExecutor struct {
	missing bool
	output  string
	err     error
	gotArgs []string
}

func (f *fakeExecutor) LookPath(file string) (string, error) {
	if f.missing {
		return "", errors.New("not found")
	}
	return "/usr/bin/" + file, nil
}

func (f *fakeExecutor) RunPiped(name string, args []string, stdout io.Writer) error {
	f.gotArgs = args
	if f.err != nil {
		return f.err
	}
	fmt.Fprint(stdout, f.output)
	return nil
}

func TestPdftotextExtractor(t *testing.T) {
	fake := &fakeExecutor{output: "page one text\fpage two text"}
	e, err := newPdftotextExtractor("", fake)
	if err != nil {
		t.Fatal(err)
	}

	text, pages, err := e.Extract("/tmp/article.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if pages != 2 {
		t.Errorf("pages = %d, want 2", pages)
	}
	if strings.Contains(text, "\f") {
		t.Error("form feeds not stripped")
	}
	if len(fake.gotArgs) == 0 || fake.gotArgs[len(fake.gotArgs)-1] != "-" {
		t.Errorf("args = %v, want stdout output", fake.gotArgs)
	}
}

func TestPdftotextExtractorErrors(t *testing.T) {
	if _, err := newPdftotextExtractor("", &fakeExecutor{missing: true}); err == nil {
		t.Error("missing binary not reported")
	}

	e, err := newPdftotextExtractor("", &fakeExecutor{err: errors.New("exit status 1")})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Extract("/tmp/bad.pdf"); err == nil {
		t.Error("binary failure not reported")
	}

	e, err = newPdftotextExtractor("", &fakeExecutor{output: "   \n"})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Extract("/tmp/empty.pdf"); err == nil {
		t.Error("empty output not reported")
	}
}

func TestExtractPipeline(t *testing.T) {
	fake := &fakeExecutor{output: sampleArticle}
	e, err := newPdftotextExtractor("", fake)
	if err != nil {
		t.Fatal(err)
	}

	res, err := Extract(e, "/tmp/article.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if res.PageCount != 1 {
		t.Errorf("pages = %d", res.PageCount)
	}
	if res.Metadata.DOI == "" || res.Sections.Methods == "" {
		t.Errorf("pipeline result incomplete: %+v", res.Metadata)
	}
}
