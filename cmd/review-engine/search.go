// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over a project's articles",
	Long: `Search titles, abstracts, and full text of ingested articles. The query
uses SQLite FTS5 syntax, so phrases can be quoted and terms combined
with AND, OR, and NOT.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int64("project", 0, "project ID (required)")
	searchCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	projectID, _ := cmd.Flags().GetInt64("project")
	query := strings.Join(args, " ")

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	articles, err := st.SearchArticles(cmd.Context(), projectID, query)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Println("No matches.")
		return nil
	}

	for _, a := range articles {
		title := a.Title
		if title == "" {
			title = a.OriginalFilename
		}
		fmt.Printf("%-4d %s", a.ID, title)
		if a.Year != 0 {
			fmt.Printf(" (%d)", a.Year)
		}
		fmt.Println()
	}
	return nil
}
