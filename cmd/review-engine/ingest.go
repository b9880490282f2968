// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/review-engine/internal/ingest"
	"github.com/pdiddy/review-engine/internal/pdftext"
	"github.com/pdiddy/review-engine/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf-or-directory> [more-pdfs...]",
	Short: "Ingest PDFs into a project",
	Long: `Copy PDFs into managed storage, extract their text with pdftotext,
and register them as articles ready for screening. A directory argument
ingests every PDF directly inside it.

Extraction failures are recorded on the article rather than aborting the
batch; scanned PDFs are flagged as requiring OCR.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int64("project", 0, "target project ID (required)")
	ingestCmd.Flags().Bool("enrich", false, "enrich metadata from CrossRef when a DOI is found")
	ingestCmd.Flags().String("pdftotext", "", "path to the pdftotext binary (default: $PATH lookup)")
	ingestCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	projectID, _ := cmd.Flags().GetInt64("project")
	enrich, _ := cmd.Flags().GetBool("enrich")
	pdftotextPath, _ := cmd.Flags().GetString("pdftotext")

	log := newLogger(cmd)

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.GetProject(cmd.Context(), projectID); err != nil {
		return fmt.Errorf("project %d: %w", projectID, err)
	}

	var extractor pdftext.Extractor
	if ext, err := pdftext.NewPdftotextExtractor(pdftotextPath); err != nil {
		log.Warn().Err(err).Msg("pdftotext unavailable; articles will be stored without text")
	} else {
		extractor = ext
	}

	// CrossRef's polite pool wants a contact address in the User-Agent.
	ua := "review-engine/" + version
	if email := secretDefault("crossref-email", ""); email != "" {
		ua += " (mailto:" + email + ")"
	}

	cfg := types.IngestConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: ua,
		},
		PdftotextPath:  pdftotextPath,
		EnrichMetadata: enrich,
	}
	ing := ingest.New(st, extractor, nil, cfg, log)

	var result ingest.BatchResult
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			result, err = ing.IngestDir(cmd.Context(), projectID, args[0], cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if result.HasFailures() {
				return fmt.Errorf("%d of %d files failed", result.Failed, result.Total())
			}
			return nil
		}
	}

	result = ing.IngestBatch(cmd.Context(), projectID, args, cmd.OutOrStdout())
	if result.HasFailures() {
		return fmt.Errorf("%d of %d files failed", result.Failed, result.Total())
	}
	return nil
}
