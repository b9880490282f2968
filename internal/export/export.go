// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export generates the review deliverables: RevMan-compatible CSV
// and XML, a PRISMA 2020 flow diagram, and a complete project archive in
// JSON.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/review-engine/internal/store"
	"github.com/pdiddy/review-engine/pkg/types"
)

// Manager coordinates export operations for one store.
type Manager struct {
	store *store.Store
	cfg   types.ExportConfig
}

// NewManager builds an export Manager.
func NewManager(st *store.Store, cfg types.ExportConfig) *Manager {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "exports"
	}
	return &Manager{store: st, cfg: cfg}
}

// Paths lists the files written by ExportAll.
type Paths struct {
	PRISMA    string
	RevManCSV string
	RevManXML string
	JSON      string
}

// ExportAll writes every export format for the project into the output
// directory, named after the project and the export date.
func (m *Manager) ExportAll(ctx context.Context, projectID int64) (Paths, error) {
	project, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return Paths{}, err
	}
	if err := os.MkdirAll(m.cfg.OutputDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("creating export directory: %w", err)
	}

	stem := fmt.Sprintf("%s_%s", safeName(project.Name), time.Now().UTC().Format("2006-01-02"))
	paths := Paths{
		PRISMA:    filepath.Join(m.cfg.OutputDir, stem+"_prisma.svg"),
		RevManCSV: filepath.Join(m.cfg.OutputDir, stem+"_revman.csv"),
		RevManXML: filepath.Join(m.cfg.OutputDir, stem+"_revman.xml"),
		JSON:      filepath.Join(m.cfg.OutputDir, stem+"_export.json"),
	}

	if err := m.WritePRISMA(ctx, projectID, paths.PRISMA); err != nil {
		return Paths{}, err
	}
	if err := m.WriteRevManCSV(ctx, projectID, paths.RevManCSV); err != nil {
		return Paths{}, err
	}
	if err := m.WriteRevManXML(ctx, projectID, paths.RevManXML); err != nil {
		return Paths{}, err
	}
	if err := m.WriteJSON(ctx, projectID, paths.JSON); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

var unsafeNameRE = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func safeName(name string) string {
	return strings.Trim(strings.ToLower(unsafeNameRE.ReplaceAllString(name, "_")), "_")
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
