// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/review-engine/internal/httputil"
	"github.com/pdiddy/review-engine/pkg/types"
)

// crossrefAPIBase is a var so tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works/"

// CrossRef API JSON structures.
type crossrefResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	Title          []string         `json:"title"`
	ContainerTitle []string         `json:"container-title"`
	Author         []crossrefAuthor `json:"author"`
	Issued         crossrefDate     `json:"issued"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

// enrichFromCrossRef replaces the heuristic bibliographic fields with
// authoritative CrossRef metadata for the article's DOI. Fields absent
// from the CrossRef record keep their heuristic values.
func (ing *Ingestor) enrichFromCrossRef(ctx context.Context, article *types.Article) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossrefAPIBase+article.DOI, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", ing.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, ing.client, req, 0)
	if err != nil {
		return fmt.Errorf("CrossRef API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("CrossRef API returned HTTP %d", resp.StatusCode)
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return fmt.Errorf("parsing CrossRef response: %w", err)
	}

	if len(cr.Message.Title) > 0 {
		article.Title = cr.Message.Title[0]
	}
	if len(cr.Message.ContainerTitle) > 0 {
		article.Journal = cr.Message.ContainerTitle[0]
	}

	var names []string
	for _, a := range cr.Message.Author {
		if name := strings.TrimSpace(a.Given + " " + a.Family); name != "" {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		article.Authors = strings.Join(names, ", ")
	}

	if len(cr.Message.Issued.DateParts) > 0 && len(cr.Message.Issued.DateParts[0]) > 0 {
		article.Year = cr.Message.Issued.DateParts[0][0]
	}
	return nil
}
