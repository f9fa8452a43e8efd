// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"strings"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
)

// MaxRetries bounds regeneration attempts beyond the initial pass. With
// the default of 2 only the emphasis and simplification strategies are
// reachable.
const MaxRetries = 2

// Strategy names a retry escalation tier.
type Strategy string

const (
	StrategyEmphasis       Strategy = "emphasis"
	StrategySimplification Strategy = "simplification"
	StrategyRestructure    Strategy = "restructure"
)

// strategyFor maps a 1-based attempt number to its escalation tier.
func strategyFor(attempt int) Strategy {
	switch attempt {
	case 1:
		return StrategyEmphasis
	case 2:
		return StrategySimplification
	default:
		return StrategyRestructure
	}
}

// prefix returns the instruction that opens the regeneration guidance.
func (s Strategy) prefix() string {
	switch s {
	case StrategyEmphasis:
		return "Address the reported issues with high priority."
	case StrategySimplification:
		return "Use simpler language and structure."
	default:
		return "Reorganize the explanation with a fresh approach."
	}
}

// needsMitigation is the loop's trigger condition: flagged bias or level
// misalignment. Fairness scores are reported but never trigger a retry.
func needsMitigation(bias datatypes.BiasVerdict, review datatypes.ContentVerdict) bool {
	return bias.HasBias || !review.LevelAlignment
}

// composeGuidance builds the regeneration instruction for one attempt:
// strategy prefix, then prior guidance, then the reviewer's suggested
// actions, then the bias reasons. When everything besides the prefix is
// empty a generic rewrite instruction is appended so the model always
// receives a concrete ask.
func composeGuidance(strategy Strategy, prior string, review datatypes.ContentVerdict, bias datatypes.BiasVerdict) string {
	parts := []string{strategy.prefix()}

	detail := 0
	if p := strings.TrimSpace(prior); p != "" {
		parts = append(parts, p)
		detail++
	}
	if actions := joinSentences(review.SuggestedActions); actions != "" {
		parts = append(parts, actions)
		detail++
	}
	if reasons := joinSentences(bias.Reasons); reasons != "" {
		parts = append(parts, reasons)
		detail++
	}
	if detail == 0 {
		parts = append(parts, "Rewrite the content for clarity and inclusivity.")
	}
	return strings.Join(parts, " ")
}

func joinSentences(items []string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " ")
}
