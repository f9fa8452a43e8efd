// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"fmt"
	"strings"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
)

// learnerVars builds the template variables shared by every prompt that
// renders the learner profile.
func learnerVars(qc datatypes.QueryContext) map[string]any {
	p := qc.Profile
	return map[string]any{
		"concept_a":           qc.ConceptA,
		"concept_b":           qc.ConceptB,
		"level":               qc.Level,
		"education_level":     orUnspecified(p.EducationLevel),
		"education_system":    orUnspecified(p.EducationSystem),
		"concept_a_knowledge": p.ConceptAKnowledge,
		"concept_b_knowledge": p.ConceptBKnowledge,
	}
}

// renderHistory flattens prior session queries into a short prompt line.
func renderHistory(history []datatypes.ConceptPair) string {
	if len(history) == 0 {
		return "none"
	}
	pairs := make([]string, 0, len(history))
	for _, h := range history {
		pairs = append(pairs, fmt.Sprintf("%s to %s", h.ConceptA, h.ConceptB))
	}
	return strings.Join(pairs, "; ")
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unspecified"
	}
	return s
}
