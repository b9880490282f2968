package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "review-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// OllamaConfig holds settings for the local inference service gateway.
type OllamaConfig struct {
	// BaseURL is the Ollama endpoint (default "http://localhost:11434").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// ConnectTimeout bounds the connectivity check (default 5s).
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`

	// GenerateTimeout bounds a single generation call (default 2m).
	// Large local models routinely take over a minute per response.
	GenerateTimeout time.Duration `json:"generate_timeout" yaml:"generate_timeout"`
}

// CouncilConfig holds settings for consensus screening.
type CouncilConfig struct {
	// Models is the council panel. Screening requires exactly three.
	Models []string `json:"models" yaml:"models"`

	// Temperature is the sampling temperature for screening calls
	// (default 0.3; low for consistent medical screening).
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// ExtractionConfig holds settings for structured data extraction.
type ExtractionConfig struct {
	// Model is the single most capable model used for extraction.
	Model string `json:"model" yaml:"model"`

	// Temperature is the sampling temperature (default 0.2).
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// StoreConfig holds settings for the review database.
type StoreConfig struct {
	// DataDir is the base directory for review data (contains review.db
	// and pdfs/).
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// IngestConfig holds settings for PDF ingestion.
type IngestConfig struct {
	HTTPConfig `yaml:",inline"`

	// PdftotextPath overrides the pdftotext binary location.
	PdftotextPath string `json:"pdftotext_path,omitempty" yaml:"pdftotext_path,omitempty"`

	// EnrichMetadata controls CrossRef metadata enrichment for articles
	// whose text contains a DOI.
	EnrichMetadata bool `json:"enrich_metadata" yaml:"enrich_metadata"`
}

// ExportConfig holds settings for the export generators.
type ExportConfig struct {
	// OutputDir is the directory for export files (default "exports").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Ollama     OllamaConfig     `json:"ollama" yaml:"ollama"`
	Council    CouncilConfig    `json:"council" yaml:"council"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Ingest     IngestConfig     `json:"ingest" yaml:"ingest"`
	Export     ExportConfig     `json:"export" yaml:"export"`
}
