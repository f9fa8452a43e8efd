// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
)

// FairnessAuditor computes explainable diversity and accessibility
// metrics from a generated bundle. It is a pure local scorer: no model
// call, deterministic for the same input.
type FairnessAuditor struct{}

// NewFairnessAuditor returns a stateless auditor.
func NewFairnessAuditor() *FairnessAuditor { return &FairnessAuditor{} }

// Evaluate scores the bundle and aggregates the metric values into an
// overall mean. All values are rounded to two decimals.
func (a *FairnessAuditor) Evaluate(conn datatypes.Connection, explanation string, analogies []string) datatypes.FairnessReport {
	metrics := []datatypes.FairnessMetric{
		disciplineDiversity(conn.Disciplines),
		languageAccessibility(explanation),
		analogyVariety(analogies),
	}

	var sum float64
	for _, m := range metrics {
		sum += m.Value
	}
	return datatypes.FairnessReport{
		Overall: round2(sum / float64(len(metrics))),
		Metrics: metrics,
	}
}

func disciplineDiversity(disciplines []string) datatypes.FairnessMetric {
	seen := make(map[string]struct{}, len(disciplines))
	total := 0
	for _, d := range disciplines {
		if d == "" {
			continue
		}
		seen[strings.ToLower(d)] = struct{}{}
		total++
	}
	if total == 0 {
		return datatypes.FairnessMetric{
			Label:  "Discipline diversity",
			Value:  0.0,
			Detail: "No disciplines supplied",
		}
	}
	distinct := len(seen)
	return datatypes.FairnessMetric{
		Label:  "Discipline diversity",
		Value:  round2(float64(distinct) / float64(total)),
		Detail: fmt.Sprintf("%d unique disciplines across %d steps", distinct, total),
	}
}

func languageAccessibility(explanation string) datatypes.FairnessMetric {
	if strings.TrimSpace(explanation) == "" {
		return datatypes.FairnessMetric{
			Label:  "Language accessibility",
			Value:  0.0,
			Detail: "No explanation text available",
		}
	}

	fields := strings.Fields(explanation)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := strings.ToLower(strings.Trim(f, ".,;:!?()")); w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return datatypes.FairnessMetric{
			Label:  "Language accessibility",
			Value:  0.0,
			Detail: "Explanation was empty",
		}
	}

	short := 0
	for _, w := range words {
		// Rune count, not byte length: accented words are not longer.
		if utf8.RuneCountInString(w) <= 6 {
			short++
		}
	}
	return datatypes.FairnessMetric{
		Label:  "Language accessibility",
		Value:  round2(float64(short) / float64(len(words))),
		Detail: fmt.Sprintf("%d/%d words are short (<=6 chars)", short, len(words)),
	}
}

func analogyVariety(analogies []string) datatypes.FairnessMetric {
	lines := make([]string, 0, len(analogies))
	for _, a := range analogies {
		if s := strings.Trim(strings.TrimSpace(a), "- "); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) == 0 {
		return datatypes.FairnessMetric{
			Label:  "Analogy variety",
			Value:  0.0,
			Detail: "No analogies generated",
		}
	}

	// Variety is judged by how the analogies open: repeated starting
	// metaphors ("Like a...", "Like a...") score low.
	starters := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		starters[strings.ToLower(strings.Fields(line)[0])] = struct{}{}
	}
	unique := len(starters)
	return datatypes.FairnessMetric{
		Label:  "Analogy variety",
		Value:  round2(float64(unique) / float64(len(lines))),
		Detail: fmt.Sprintf("%d unique starting metaphors across %d analogies", unique, len(lines)),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
