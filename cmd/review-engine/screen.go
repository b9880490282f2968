// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pdiddy/review-engine/internal/council"
	"github.com/pdiddy/review-engine/internal/review"
	"github.com/pdiddy/review-engine/internal/store"
	"github.com/pdiddy/review-engine/pkg/types"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen articles against the project criteria",
	Long: `Screen articles with a three-model consensus council. Each model votes
include or exclude with a confidence and reasoning; the reconciled
decision is stored with the full vote record.

Local mode requires a running Ollama service with the panel models
installed. Check with: review-engine models status`,
}

// --- pending subcommand ---

var screenPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Screen every article that has no decision yet",
	RunE:  runScreenPending,
}

// --- article subcommand ---

var screenArticleCmd = &cobra.Command{
	Use:   "article <article-id>",
	Short: "Screen a single article",
	Args:  cobra.ExactArgs(1),
	RunE:  runScreenArticle,
}

// --- manual subcommand ---

var screenManualCmd = &cobra.Command{
	Use:   "manual <article-id>",
	Short: "Record a manual include/exclude decision",
	Long: `Record a reviewer's own decision for an article. A manual decision
replaces any existing council decision and is stored with full
confidence and no model votes.`,
	Args: cobra.ExactArgs(1),
	RunE: runScreenManual,
}

func init() {
	screenCmd.PersistentFlags().StringSlice("models", nil,
		"council panel, exactly three models (default: "+strings.Join(council.DefaultPanel, ",")+")")
	screenCmd.PersistentFlags().Float64("temperature", 0, "sampling temperature for screening calls")
	screenCmd.PersistentFlags().String("mode", string(council.ModeLocal), "inference backend: local or cloud")

	screenPendingCmd.Flags().Int64("project", 0, "project ID (required)")
	screenPendingCmd.MarkFlagRequired("project")

	screenManualCmd.Flags().String("decision", "", "include or exclude (required)")
	screenManualCmd.Flags().String("reason", "", "reviewer's reasoning")
	screenManualCmd.MarkFlagRequired("decision")

	screenCmd.AddCommand(screenPendingCmd)
	screenCmd.AddCommand(screenArticleCmd)
	screenCmd.AddCommand(screenManualCmd)
	rootCmd.AddCommand(screenCmd)
}

// newReviewService wires the store, inference gateway, council, and
// extractor into a review service. Local mode probes the Ollama service
// first so that screening fails up front rather than per article.
func newReviewService(cmd *cobra.Command, log zerolog.Logger, probe bool) (*store.Store, *review.Service, error) {
	st, err := openStore(cmd)
	if err != nil {
		return nil, nil, err
	}

	client := newOllamaClient(cmd, log)
	if probe {
		if _, err := client.CheckConnection(cmd.Context()); err != nil {
			st.Close()
			return nil, nil, err
		}
	}

	models, _ := cmd.Flags().GetStringSlice("models")
	temperature, _ := cmd.Flags().GetFloat64("temperature")

	panel, err := council.New(client, types.CouncilConfig{
		Models:      models,
		Temperature: temperature,
	}, log)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	extractionModel, _ := cmd.Flags().GetString("model")
	extractor := council.NewExtractor(client, types.ExtractionConfig{
		Model:       extractionModel,
		Temperature: temperature,
	}, log)

	return st, review.NewService(st, panel, extractor, log), nil
}

func screeningMode(cmd *cobra.Command) council.Mode {
	mode, _ := cmd.Flags().GetString("mode")
	return council.Mode(mode)
}

func runScreenPending(cmd *cobra.Command, args []string) error {
	projectID, _ := cmd.Flags().GetInt64("project")
	log := newLogger(cmd)

	st, svc, err := newReviewService(cmd, log, screeningMode(cmd) == council.ModeLocal)
	if err != nil {
		return err
	}
	defer st.Close()

	summary, err := svc.ScreenPending(cmd.Context(), projectID, screeningMode(cmd), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d articles failed screening", summary.Failed, summary.Total())
	}
	return nil
}

func runScreenArticle(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	log := newLogger(cmd)

	st, svc, err := newReviewService(cmd, log, screeningMode(cmd) == council.ModeLocal)
	if err != nil {
		return err
	}
	defer st.Close()

	decision, err := svc.ScreenArticle(cmd.Context(), id, screeningMode(cmd))
	if err != nil {
		return err
	}

	fmt.Printf("Decision: %s (%s, confidence %d)\n",
		decision.Decision, decision.ConsensusType, decision.Confidence)
	fmt.Println("Reasoning:", decision.Reasoning)
	for _, v := range decision.Votes {
		fmt.Printf("  %-20s %s (confidence %d)\n", v.Model, v.Decision, v.Confidence)
	}
	return nil
}

func runScreenManual(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	decisionFlag, _ := cmd.Flags().GetString("decision")
	reason, _ := cmd.Flags().GetString("reason")

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := review.NewService(st, nil, nil, newLogger(cmd))
	decision, err := svc.ManualDecision(cmd.Context(), id, types.Decision(decisionFlag), reason)
	if err != nil {
		return err
	}

	fmt.Printf("Recorded manual decision for article %d: %s\n", id, decision.Decision)
	return nil
}
