// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest imports PDF files into a review project: the file is
// copied into managed storage, its text and sections are extracted, and
// bibliographic metadata is recovered, optionally enriched from CrossRef.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/review-engine/internal/pdftext"
	"github.com/pdiddy/review-engine/internal/store"
	"github.com/pdiddy/review-engine/pkg/types"
)

// BatchResult holds the outcome of a batch ingestion run.
type BatchResult struct {
	Ingested int
	Skipped  int
	Failed   int
	Articles []*types.Article
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Ingested + r.Skipped + r.Failed
}

// HasFailures reports whether any files failed ingestion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Ingestor imports PDFs into a project.
type Ingestor struct {
	store     *store.Store
	extractor pdftext.Extractor
	client    *http.Client
	cfg       types.IngestConfig
	log       zerolog.Logger
}

// New builds an Ingestor. The extractor may be nil, in which case articles
// are stored without text and flagged for later extraction.
func New(st *store.Store, extractor pdftext.Extractor, client *http.Client, cfg types.IngestConfig, log zerolog.Logger) *Ingestor {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Ingestor{store: st, extractor: extractor, client: client, cfg: cfg, log: log}
}

// IngestFile imports one PDF into the project. The file is copied under
// the project's managed PDF directory; an article row is always created,
// with extraction failures recorded on the row rather than aborting the
// import.
func (ing *Ingestor) IngestFile(ctx context.Context, projectID int64, pdfPath string, w io.Writer) (*types.Article, error) {
	info, err := os.Stat(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pdfPath, err)
	}

	filename := filepath.Base(pdfPath)
	destDir := ing.store.PDFDir(projectID)
	destPath := filepath.Join(destDir, filename)
	if err := copyFile(pdfPath, destPath); err != nil {
		return nil, err
	}

	article := &types.Article{
		ProjectID:        projectID,
		PDFPath:          destPath,
		OriginalFilename: filename,
		FileSizeBytes:    info.Size(),
		ExtractionStatus: types.ExtractionProcessing,
	}
	if _, err := ing.store.InsertArticle(ctx, article); err != nil {
		return nil, err
	}

	ing.extractText(ctx, article, destPath)

	if err := ing.store.UpdateArticle(ctx, article); err != nil {
		return nil, err
	}

	switch article.ExtractionStatus {
	case types.ExtractionComplete:
		fmt.Fprintf(w, "ingested: %s\n", filename)
	default:
		fmt.Fprintf(w, "ingested: %s (text extraction failed: %s)\n", filename, article.ExtractionError)
	}

	return article, nil
}

// extractText runs PDF text extraction and metadata recovery, mutating the
// article in place. Failures set ExtractionFailed and the error message.
func (ing *Ingestor) extractText(ctx context.Context, article *types.Article, pdfPath string) {
	if ing.extractor == nil {
		article.ExtractionStatus = types.ExtractionPending
		return
	}

	res, err := pdftext.Extract(ing.extractor, pdfPath)
	if err != nil {
		article.ExtractionStatus = types.ExtractionFailed
		article.ExtractionError = err.Error()
		return
	}
	if pdftext.IsScannedText(res.FullText, res.PageCount) {
		article.ExtractionStatus = types.ExtractionFailed
		article.ExtractionError = "document appears to be scanned; OCR is required"
		return
	}

	article.FullText = res.FullText
	article.Abstract = res.Sections.Abstract
	article.Methods = res.Sections.Methods
	article.Results = res.Sections.Results
	article.Discussion = res.Sections.Discussion
	article.Title = res.Metadata.Title
	article.Authors = res.Metadata.Authors
	article.Year = res.Metadata.Year
	article.DOI = res.Metadata.DOI
	article.ExtractionStatus = types.ExtractionComplete

	if ing.cfg.EnrichMetadata && article.DOI != "" {
		if err := ing.enrichFromCrossRef(ctx, article); err != nil {
			ing.log.Warn().Str("doi", article.DOI).Err(err).Msg("CrossRef enrichment failed")
		}
	}
}

// IngestBatch imports multiple PDFs, printing per-file status to w and
// returning a summary. It continues after individual failures.
func (ing *Ingestor) IngestBatch(ctx context.Context, projectID int64, pdfPaths []string, w io.Writer) BatchResult {
	var result BatchResult
	for _, path := range pdfPaths {
		article, err := ing.IngestFile(ctx, projectID, path, w)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", filepath.Base(path), err)
			result.Failed++
			continue
		}
		result.Ingested++
		result.Articles = append(result.Articles, article)
	}
	fmt.Fprintf(w, "\nBatch summary: %d ingested, %d skipped, %d failed (total: %d)\n",
		result.Ingested, result.Skipped, result.Failed, result.Total())
	return result
}

// IngestDir imports every .pdf file in dir, non-recursively.
func (ing *Ingestor) IngestDir(ctx context.Context, projectID int64, dir string, w io.Writer) (BatchResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return BatchResult{}, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return BatchResult{}, fmt.Errorf("no PDF files in %s", dir)
	}

	return ing.IngestBatch(ctx, projectID, paths, w), nil
}

// copyFile copies src to dest through a temp file renamed on success.
func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(dest), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".ingest-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, in)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("copying %s: %w", src, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
