// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionFinderUserRendersLearnerContext(t *testing.T) {
	out, err := ConnectionFinderUser.Format(map[string]any{
		"concept_a":           "Photosynthesis",
		"concept_b":           "Solar Panels",
		"history":             "none",
		"level":               "beginner",
		"education_level":     "high school",
		"education_system":    "UK",
		"concept_a_knowledge": 2,
		"concept_b_knowledge": 4,
		"preferences":         "none",
	})
	require.NoError(t, err)
	require.Contains(t, out, `"Photosynthesis" and "Solar Panels"`)
	require.Contains(t, out, "Learner knowledge level: beginner")
	require.Contains(t, out, `Prior knowledge of "Photosynthesis": 2/5`)
	require.Contains(t, out, "appropriate for a beginner learner")
}

func TestConnectionFinderSystemKeepsJSONSchemaLiteral(t *testing.T) {
	out, err := ConnectionFinderSystem.Format(map[string]any{"level": "advanced"})
	require.NoError(t, err)
	require.Contains(t, out, "learner's level: advanced")
	// The schema braces must survive template rendering untouched.
	require.Contains(t, out, `"path": ["Concept A", "Intermediate 1", "Intermediate 2", "Concept B"]`)
	require.Contains(t, out, `"strength": 0.9`)
}

func TestStaticSystemPromptsRender(t *testing.T) {
	for name, tmpl := range map[string]interface {
		Format(map[string]any) (string, error)
	}{
		"explainer": ExplainerSystem,
		"bias":      BiasSystem,
		"review":    ReviewSystem,
	} {
		out, err := tmpl.Format(map[string]any{})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !strings.Contains(out, "JSON") {
			t.Fatalf("%s: expected schema instructions, got %q", name, out[:80])
		}
	}
}

func TestReviewUserRendersContent(t *testing.T) {
	out, err := ReviewUser.Format(map[string]any{
		"level":               "intermediate",
		"education_level":     "undergraduate",
		"education_system":    "US",
		"concept_a":           "Entropy",
		"concept_b":           "Markets",
		"concept_a_knowledge": 3,
		"concept_b_knowledge": 1,
		"content":             `{"explanations": "..."}`,
	})
	require.NoError(t, err)
	require.Contains(t, out, `"Entropy": 3/5`)
	require.Contains(t, out, `{"explanations": "..."}`)
}
