// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llmjson recovers structured JSON from noisy model output.
//
// Models frequently wrap JSON in markdown code fences, prepend prose
// ("Here is my analysis:"), or append filler. Every stage that parses model
// output goes through this package so the fallback order is in exactly one
// place:
//
//  1. Strict parse of the trimmed response.
//  2. Contents of the first fenced code block (```json or bare ```).
//  3. First brace-matched object (or bracket-matched array) in the text,
//     respecting string literals and escapes.
//  4. Caller-supplied default value.
//
// Step 4 belongs to the caller: extraction reports failure and the stage
// substitutes its deterministic default payload. Unstructured output is a
// soft failure, never an error surfaced past the stage boundary.
package llmjson

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no parseable JSON value is found in the text.
var ErrNoJSON = errors.New("llmjson: no JSON value found in text")

// Extract returns the first parseable JSON object or array embedded in text,
// as a raw JSON string, following the package's documented fallback order.
func Extract(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrNoJSON
	}

	// 1. The whole response is already valid JSON.
	if isJSONValue(trimmed) {
		return trimmed, nil
	}

	// 2. Fenced code block.
	if inner, ok := fencedBlock(trimmed); ok && isJSONValue(inner) {
		return inner, nil
	}

	// 3. Brace-matched object, then bracket-matched array.
	if candidate, ok := balancedValue(trimmed, '{', '}'); ok {
		return candidate, nil
	}
	if candidate, ok := balancedValue(trimmed, '[', ']'); ok {
		return candidate, nil
	}

	return "", ErrNoJSON
}

// ExtractInto extracts the first JSON value from text and unmarshals it
// into v. v follows the rules of encoding/json.Unmarshal.
func ExtractInto(text string, v any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

// ExtractJSON extracts the first JSON object from text as a generic map.
// Arrays are rejected; stages that expect an object use this entry point.
func ExtractJSON(text string) (map[string]any, error) {
	raw, err := Extract(text)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, ErrNoJSON
	}
	return m, nil
}

// ExtractJSONWithFallback extracts the first JSON object from text, or
// returns the fallback map. The second return value reports whether the
// extraction succeeded (false means the fallback was used).
func ExtractJSONWithFallback(text string, fallback map[string]any) (map[string]any, bool) {
	m, err := ExtractJSON(text)
	if err != nil {
		return fallback, false
	}
	return m, true
}

// isJSONValue reports whether s is a complete JSON object or array.
// Bare scalars are deliberately excluded: stages always expect structure,
// and accepting scalars would turn plain prose like `3` into a "parse".
func isJSONValue(s string) bool {
	if len(s) == 0 {
		return false
	}
	if s[0] != '{' && s[0] != '[' {
		return false
	}
	return json.Valid([]byte(s))
}

// fencedBlock returns the contents of the first markdown code fence.
func fencedBlock(text string) (string, bool) {
	lower := strings.ToLower(text)
	start := strings.Index(lower, "```")
	if start == -1 {
		return "", false
	}
	rest := text[start+3:]
	// Skip an optional language tag on the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || strings.EqualFold(firstLine, "json") {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// balancedValue scans text for the first balanced open..close span that is
// valid JSON. String literals and escape sequences are honored, so braces
// inside strings do not confuse the depth count.
func balancedValue(text string, open, close byte) (string, bool) {
	for from := 0; from < len(text); {
		start := strings.IndexByte(text[from:], open)
		if start == -1 {
			return "", false
		}
		start += from

		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			switch {
			case escaped:
				escaped = false
			case c == '\\' && inString:
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
				// Braces inside strings are payload, not structure.
			case c == open:
				depth++
			case c == close:
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					// Not valid JSON: resume scanning after this opener.
					i = len(text)
				}
			}
		}
		from = start + 1
	}
	return "", false
}
