// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ExtractionStatus tracks PDF text extraction for an article.
type ExtractionStatus string

const (
	ExtractionPending    ExtractionStatus = "pending"
	ExtractionProcessing ExtractionStatus = "processing"
	ExtractionComplete   ExtractionStatus = "complete"
	ExtractionFailed     ExtractionStatus = "failed"
)

// PICOCriteria holds the four screening criteria supplied once per project.
// All four fields are required before screening can run; the criteria are
// passed by value into every screening call and never mutated by the engine.
type PICOCriteria struct {
	Population   string `json:"population" yaml:"population"`
	Intervention string `json:"intervention" yaml:"intervention"`
	Comparison   string `json:"comparison" yaml:"comparison"`
	Outcomes     string `json:"outcomes" yaml:"outcomes"`
}

// IsComplete reports whether all four criteria fields are non-blank.
func (c PICOCriteria) IsComplete() bool {
	return c.Population != "" && c.Intervention != "" &&
		c.Comparison != "" && c.Outcomes != ""
}

// Project is a systematic review project owning a set of articles.
type Project struct {
	// ID is the database row identifier.
	ID int64 `json:"id" yaml:"id"`

	// Name is the user-supplied project name.
	Name string `json:"name" yaml:"name"`

	// ResearchQuestion is the free-text review question.
	ResearchQuestion string `json:"research_question,omitempty" yaml:"research_question,omitempty"`

	// Criteria are the PICO screening criteria for the project.
	Criteria PICOCriteria `json:"pico_criteria" yaml:"pico_criteria"`

	// InclusionCriteria lists additional inclusion rules shown to the models.
	InclusionCriteria []string `json:"inclusion_criteria,omitempty" yaml:"inclusion_criteria,omitempty"`

	// ExclusionCriteria lists additional exclusion rules shown to the models.
	ExclusionCriteria []string `json:"exclusion_criteria,omitempty" yaml:"exclusion_criteria,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Article holds one ingested study. Bibliographic fields are derived by
// heuristics and may be empty. The textual sections are written once at
// ingestion and read-only to the screening and extraction core.
type Article struct {
	// ID is the database row identifier.
	ID int64 `json:"id" yaml:"id"`

	// ProjectID is the owning project.
	ProjectID int64 `json:"project_id" yaml:"project_id"`

	// PDFPath is the stored copy of the source PDF.
	PDFPath string `json:"pdf_path" yaml:"pdf_path"`

	// OriginalFilename is the filename as supplied at ingestion.
	OriginalFilename string `json:"original_filename" yaml:"original_filename"`

	// FileSizeBytes is the size of the stored PDF.
	FileSizeBytes int64 `json:"file_size_bytes,omitempty" yaml:"file_size_bytes,omitempty"`

	// Title, Authors, Journal, Year, and DOI are bibliographic metadata
	// recovered from the PDF text or from CrossRef.
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Authors string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`
	Year    int    `json:"year,omitempty" yaml:"year,omitempty"`
	DOI     string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// FullText is the complete extracted text of the article.
	FullText string `json:"full_text,omitempty" yaml:"full_text,omitempty"`

	// Abstract, Methods, Results, and Discussion are the regex-located
	// sections of the full text.
	Abstract   string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Methods    string `json:"methods,omitempty" yaml:"methods,omitempty"`
	Results    string `json:"results,omitempty" yaml:"results,omitempty"`
	Discussion string `json:"discussion,omitempty" yaml:"discussion,omitempty"`

	// ExtractionStatus tracks PDF text extraction.
	ExtractionStatus ExtractionStatus `json:"extraction_status" yaml:"extraction_status"`

	// ExtractionError holds the failure message when extraction failed.
	ExtractionError string `json:"extraction_error,omitempty" yaml:"extraction_error,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// HasContent reports whether the article carries any screenable text.
func (a Article) HasContent() bool {
	return a.Abstract != "" || a.FullText != ""
}
