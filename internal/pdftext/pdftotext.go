// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

const binPdftotext = "pdftotext"

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunPiped(name string, args []string, stdout io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunPiped(name string, args []string, stdout io.Writer) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = stdout
	return cmd.Run()
}

var defaultExec executor = &osExecutor{}

// PdftotextExtractor extracts text by running the poppler pdftotext binary.
// Pages in its output are separated by form feeds, which gives the page
// count without a second tool.
type PdftotextExtractor struct {
	bin  string
	exec executor
}

// NewPdftotextExtractor builds an extractor for the pdftotext binary at
// binPath (empty selects the binary from PATH). It verifies the binary is
// available before returning.
func NewPdftotextExtractor(binPath string) (*PdftotextExtractor, error) {
	return newPdftotextExtractor(binPath, defaultExec)
}

func newPdftotextExtractor(binPath string, exec executor) (*PdftotextExtractor, error) {
	bin := binPath
	if bin == "" {
		bin = binPdftotext
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}
	return &PdftotextExtractor{bin: bin, exec: exec}, nil
}

// Extract runs pdftotext over the file and returns its text and page count.
func (p *PdftotextExtractor) Extract(pdfPath string) (string, int, error) {
	var out bytes.Buffer
	args := []string{"-enc", "UTF-8", pdfPath, "-"}
	if err := p.exec.RunPiped(p.bin, args, &out); err != nil {
		return "", 0, fmt.Errorf("extracting text from %s: %w", pdfPath, err)
	}

	text := out.String()
	if strings.TrimSpace(text) == "" {
		return "", 0, fmt.Errorf("no text extracted from %s", pdfPath)
	}

	// pdftotext emits one form feed per page break.
	pages := strings.Count(text, "\f") + 1
	text = strings.ReplaceAll(text, "\f", "\n")

	return text, pages, nil
}
