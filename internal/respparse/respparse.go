// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package respparse locates and validates the JSON decision object inside a
// raw language-model response. Local models wrap their output in prose or
// Markdown code fences often enough that callers never parse responses
// directly.
package respparse

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidOutput reports that no parseable JSON object could be located
// in a model response. Screening callers treat this as a model failure,
// not a crash.
var ErrInvalidOutput = errors.New("model returned invalid JSON")

// Extract returns the first JSON object found in raw. Search order:
// a fenced ```json block, then the first balanced {...} span, then the
// whole text. Located JSON that does not parse fails the same way as
// absent JSON.
func Extract(raw string) (json.RawMessage, error) {
	for _, candidate := range candidates(raw) {
		var probe json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &probe); err == nil {
			trimmed := strings.TrimSpace(candidate)
			if strings.HasPrefix(trimmed, "{") {
				return json.RawMessage(trimmed), nil
			}
		}
	}
	return nil, ErrInvalidOutput
}

// Unmarshal extracts the JSON object from raw and decodes it into v.
func Unmarshal(raw string, v any) error {
	obj, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(obj, v); err != nil {
		return ErrInvalidOutput
	}
	return nil
}

// candidates yields the JSON spans to try, in preference order.
func candidates(raw string) []string {
	var out []string

	if fenced, ok := fencedBlock(raw); ok {
		out = append(out, fenced)
	}
	if span, ok := balancedObject(raw); ok {
		out = append(out, span)
	}
	out = append(out, raw)

	return out
}

// fencedBlock returns the contents of the first ```json (or bare ```)
// fenced code block.
func fencedBlock(raw string) (string, bool) {
	start := strings.Index(raw, "```")
	if start < 0 {
		return "", false
	}
	rest := raw[start+3:]

	// Skip an optional language tag on the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		tag := strings.TrimSpace(rest[:nl])
		if tag == "" || strings.EqualFold(tag, "json") {
			rest = rest[nl+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// balancedObject returns the first balanced {...} span in raw, honoring
// string literals and escapes so that braces inside reasoning text do not
// truncate the span.
func balancedObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}

	return "", false
}
