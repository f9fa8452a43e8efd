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

// At most this many learner comments are quoted back into the guidance.
const maxQuotedComments = 3

// FeedbackAdapter turns stored learner feedback into a short guidance
// string injected into generation prompts. Pure and deterministic.
type FeedbackAdapter struct{}

// NewFeedbackAdapter returns a stateless adapter.
func NewFeedbackAdapter() *FeedbackAdapter { return &FeedbackAdapter{} }

// Summarise derives guidance from feedback rows for the given level.
// With no rows it returns a generic clarity instruction.
func (a *FeedbackAdapter) Summarise(rows []datatypes.Feedback, level string) string {
	if len(rows) == 0 {
		return fmt.Sprintf("Focus on clarity and discipline balance appropriate for a %s learner.", level)
	}

	var (
		ratingSum   int
		ratingCount int
		comments    []string
	)
	for _, row := range rows {
		if row.Rating != nil {
			ratingSum += *row.Rating
			ratingCount++
		}
		if c := strings.TrimSpace(row.Comment); c != "" {
			comments = append(comments, c)
		}
	}

	var parts []string
	if ratingCount > 0 {
		avg := float64(ratingSum) / float64(ratingCount)
		switch {
		case avg < 3:
			parts = append(parts, "Learners previously rated clarity low; simplify language and add concrete steps.")
		case avg < 4:
			parts = append(parts, "Maintain clarity and add vivid examples to improve engagement.")
		default:
			parts = append(parts, "Past feedback is positive; preserve approachable tone and structured explanations.")
		}
	}

	if len(comments) > 0 {
		if len(comments) > maxQuotedComments {
			comments = comments[:maxQuotedComments]
		}
		parts = append(parts, "Specific learner notes: "+strings.Join(comments, " | "))
	}

	parts = append(parts, fmt.Sprintf("Ensure the response stays aligned with a %s learner's expectations.", level))
	return strings.Join(parts, " ")
}
