// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext extracts full text, sections, and bibliographic metadata
// from medical research PDFs.
package pdftext

import (
	"regexp"
	"strconv"
	"strings"
)

// Extractor turns a PDF file into plain text. Different backends
// (pdftotext, OCR) implement this interface.
type Extractor interface {
	// Extract reads a PDF at pdfPath and returns its plain text and page
	// count.
	Extract(pdfPath string) (text string, pages int, err error)
}

// Metadata holds bibliographic fields recovered from the PDF text.
// All fields are heuristic and may be empty.
type Metadata struct {
	Title   string
	Authors string
	Year    int
	DOI     string
}

// Sections holds the recognized parts of a research article.
type Sections struct {
	Abstract     string
	Introduction string
	Methods      string
	Results      string
	Discussion   string
	Conclusion   string
	References   string
}

// Result is the outcome of one PDF extraction.
type Result struct {
	FullText  string
	PageCount int
	Metadata  Metadata
	Sections  Sections
}

// Extract runs the full pipeline: text extraction, metadata heuristics,
// and section detection.
func Extract(e Extractor, pdfPath string) (Result, error) {
	text, pages, err := e.Extract(pdfPath)
	if err != nil {
		return Result{}, err
	}
	return Result{
		FullText:  text,
		PageCount: pages,
		Metadata:  ExtractMetadata(text),
		Sections:  ExtractSections(text),
	}, nil
}

var (
	yearRE = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	// DOI patterns in decreasing order of confidence: explicit "DOI:"
	// label, a doi.org URL, then a bare 10.xxxx identifier.
	doiPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)DOI:\s*(10\.\d{4,9}/[^\s\])]+)`),
		regexp.MustCompile(`(?i)doi\.org/(10\.\d{4,9}/[^\s\])]+)`),
		regexp.MustCompile(`\b(10\.\d{4,9}/[^\s\])]+)\b`),
	}

	authorLineRE = regexp.MustCompile(`^([A-Z][a-z]+\s[A-Z][a-z]+(?:,\s[A-Z][a-z]+\s[A-Z][a-z]+){0,10})`)
)

// ExtractMetadata recovers bibliographic metadata from article text.
// Title is the first non-blank line, year the first plausible 4-digit
// year, DOI the first match of the labeled, URL, or bare forms.
func ExtractMetadata(text string) Metadata {
	var md Metadata

	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			md.Title = trimmed
			break
		}
	}

	if m := yearRE.FindString(text); m != "" {
		md.Year, _ = strconv.Atoi(m)
	}

	for _, re := range doiPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			md.DOI = strings.TrimRight(m[1], ",;.")
			break
		}
	}

	if m := authorLineRE.FindStringSubmatch(text); m != nil {
		md.Authors = m[1]
	}

	return md
}

// IsScannedText reports whether the extracted text suggests a scanned PDF
// needing OCR: under 200 characters of text per page on average.
func IsScannedText(text string, pages int) bool {
	if pages <= 0 {
		return false
	}
	return len(text)/pages < 200
}
