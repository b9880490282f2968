// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show AI usage for a month",
	Long: `Summarize AI usage from the audit trail: request counts, cost, and
average latency per provider. Defaults to the current month.`,
	RunE: runUsage,
}

func init() {
	usageCmd.Flags().String("month", "", "month to report, YYYY-MM (default: current month)")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	month, _ := cmd.Flags().GetString("month")
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	summaries, err := st.UsageByMonth(cmd.Context(), month)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Printf("No AI usage recorded for %s\n", month)
		return nil
	}

	fmt.Printf("AI usage for %s:\n", month)
	for _, s := range summaries {
		fmt.Printf("  %-16s %5d requests  $%8.4f  avg %6.0f ms\n",
			s.Provider, s.RequestCount, s.TotalCostUSD, s.AvgLatencyMS)
	}
	return nil
}
