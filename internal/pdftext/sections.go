// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"regexp"
	"sort"
	"strings"
)

// sectionDef binds a section name to the heading pattern that opens it.
// Headings match at line start, optionally numbered, upper or mixed case.
type sectionDef struct {
	name string
	re   *regexp.Regexp
}

func headingRE(names string) *regexp.Regexp {
	return regexp.MustCompile(`(?mi)^\s*(?:\d+\.?\s*)?(?:` + names + `)\s*(?::|$)`)
}

var sectionDefs = []sectionDef{
	{"abstract", headingRE(`ABSTRACT`)},
	{"introduction", headingRE(`INTRODUCTION|BACKGROUND`)},
	{"methods", headingRE(`MATERIALS AND METHODS|METHODS|METHODOLOGY|EXPERIMENTAL DESIGN`)},
	{"results", headingRE(`RESULTS|FINDINGS`)},
	{"discussion", headingRE(`DISCUSSION`)},
	{"conclusion", headingRE(`CONCLUSIONS?`)},
	{"references", headingRE(`REFERENCES|BIBLIOGRAPHY|WORKS CITED`)},
}

type headingMatch struct {
	name       string
	start, end int
}

// ExtractSections locates the standard article sections by their headings.
// A section's body runs from the end of its heading line to the start of
// the next recognized heading. When no abstract heading exists, the first
// substantial paragraph stands in for it.
func ExtractSections(text string) Sections {
	var matches []headingMatch
	for _, def := range sectionDefs {
		if loc := def.re.FindStringIndex(text); loc != nil {
			matches = append(matches, headingMatch{def.name, loc[0], loc[1]})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	bodies := map[string]string{}
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1].start
		}
		if body := cleanSectionText(text[m.end:end]); body != "" {
			bodies[m.name] = body
		}
	}

	s := Sections{
		Abstract:     bodies["abstract"],
		Introduction: bodies["introduction"],
		Methods:      bodies["methods"],
		Results:      bodies["results"],
		Discussion:   bodies["discussion"],
		Conclusion:   bodies["conclusion"],
		References:   bodies["references"],
	}

	if s.Abstract == "" {
		s.Abstract = firstParagraph(text)
	}

	return s
}

// firstParagraph returns the first paragraph over 100 characters, cleaned.
func firstParagraph(text string) string {
	for _, p := range strings.Split(text, "\n\n") {
		if len(strings.TrimSpace(p)) > 100 {
			return cleanSectionText(p)
		}
	}
	return ""
}

var (
	multiNewlineRE = regexp.MustCompile(`\n{3,}`)
	whitespaceRE   = regexp.MustCompile(`\s+`)
)

// cleanSectionText normalizes whitespace and repairs hyphenated line
// breaks left by PDF text extraction.
func cleanSectionText(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = multiNewlineRE.ReplaceAllString(text, "\n\n")
	text = strings.ReplaceAll(text, "- \n", "")
	text = strings.ReplaceAll(text, "-\n", "")
	text = strings.ReplaceAll(text, "\t", " ")
	text = whitespaceRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
