// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract structured study data from included articles",
	Long: `Run structured data extraction against included articles: study design,
sample size, PICO details, outcome statistics, and risk-of-bias
assessment. Missing statistics that can be computed from reported ones
(standard error from SD and N, approximations from p-values) are derived
and flagged as such.`,
}

// --- included subcommand ---

var extractIncludedCmd = &cobra.Command{
	Use:   "included",
	Short: "Extract data for every included article without it",
	RunE:  runExtractIncluded,
}

// --- article subcommand ---

var extractArticleCmd = &cobra.Command{
	Use:   "article <article-id>",
	Short: "Extract data for a single article",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtractArticle,
}

func init() {
	extractCmd.PersistentFlags().String("model", "", "extraction model (default: the most capable panel model)")
	extractCmd.PersistentFlags().Float64("temperature", 0, "sampling temperature for extraction calls")

	extractIncludedCmd.Flags().Int64("project", 0, "project ID (required)")
	extractIncludedCmd.MarkFlagRequired("project")

	extractCmd.AddCommand(extractIncludedCmd)
	extractCmd.AddCommand(extractArticleCmd)
	rootCmd.AddCommand(extractCmd)
}

func runExtractIncluded(cmd *cobra.Command, args []string) error {
	projectID, _ := cmd.Flags().GetInt64("project")
	log := newLogger(cmd)

	st, svc, err := newReviewService(cmd, log, true)
	if err != nil {
		return err
	}
	defer st.Close()

	summary, err := svc.ExtractIncluded(cmd.Context(), projectID, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d articles failed extraction", summary.Failed, summary.Total())
	}
	return nil
}

func runExtractArticle(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	log := newLogger(cmd)

	st, svc, err := newReviewService(cmd, log, true)
	if err != nil {
		return err
	}
	defer st.Close()

	data, err := svc.ExtractArticle(cmd.Context(), id)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
