// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/review-engine/internal/export"
	"github.com/pdiddy/review-engine/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export review results",
	Long: `Generate the publication artifacts for a project: RevMan-compatible
CSV and XML of the included studies, a PRISMA 2020 flow diagram as SVG,
and a complete JSON archive. Derived statistics are marked in every
format that can carry the flag.`,
}

// --- subcommands ---

var exportAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Generate every export format",
	RunE:  runExportAll,
}

var exportRevManCSVCmd = &cobra.Command{
	Use:   "revman-csv <output-file>",
	Short: "Export included studies as RevMan CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExportOne(cmd, args[0], (*export.Manager).WriteRevManCSV)
	},
}

var exportRevManXMLCmd = &cobra.Command{
	Use:   "revman-xml <output-file>",
	Short: "Export included studies as RevMan 5.4 XML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExportOne(cmd, args[0], (*export.Manager).WriteRevManXML)
	},
}

var exportPRISMACmd = &cobra.Command{
	Use:   "prisma <output-file>",
	Short: "Export the PRISMA flow diagram as SVG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExportOne(cmd, args[0], (*export.Manager).WritePRISMA)
	},
}

var exportJSONCmd = &cobra.Command{
	Use:   "json <output-file>",
	Short: "Export the complete project archive as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExportOne(cmd, args[0], (*export.Manager).WriteJSON)
	},
}

func init() {
	exportCmd.PersistentFlags().Int64("project", 0, "project ID (required)")
	exportCmd.PersistentFlags().String("out", "exports", "output directory for 'export all'")
	exportCmd.MarkPersistentFlagRequired("project")

	exportCmd.AddCommand(exportAllCmd)
	exportCmd.AddCommand(exportRevManCSVCmd)
	exportCmd.AddCommand(exportRevManXMLCmd)
	exportCmd.AddCommand(exportPRISMACmd)
	exportCmd.AddCommand(exportJSONCmd)
	rootCmd.AddCommand(exportCmd)
}

func newExportManager(cmd *cobra.Command) (*export.Manager, func(), error) {
	st, err := openStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	outDir, _ := cmd.Flags().GetString("out")
	m := export.NewManager(st, types.ExportConfig{OutputDir: outDir})
	return m, func() { st.Close() }, nil
}

func runExportOne(cmd *cobra.Command, path string, write func(*export.Manager, context.Context, int64, string) error) error {
	projectID, _ := cmd.Flags().GetInt64("project")

	m, done, err := newExportManager(cmd)
	if err != nil {
		return err
	}
	defer done()

	if err := write(m, cmd.Context(), projectID, path); err != nil {
		return err
	}
	fmt.Println("Wrote", path)
	return nil
}

func runExportAll(cmd *cobra.Command, args []string) error {
	projectID, _ := cmd.Flags().GetInt64("project")

	m, done, err := newExportManager(cmd)
	if err != nil {
		return err
	}
	defer done()

	paths, err := m.ExportAll(cmd.Context(), projectID)
	if err != nil {
		return err
	}
	for _, p := range []string{paths.PRISMA, paths.RevManCSV, paths.RevManXML, paths.JSON} {
		fmt.Println("Wrote", p)
	}
	return nil
}
