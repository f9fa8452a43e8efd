// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
)

func TestStrategyLadder(t *testing.T) {
	assert.Equal(t, StrategyEmphasis, strategyFor(1))
	assert.Equal(t, StrategySimplification, strategyFor(2))
	assert.Equal(t, StrategyRestructure, strategyFor(3))
	assert.Equal(t, StrategyRestructure, strategyFor(7))
}

func TestNeedsMitigation(t *testing.T) {
	aligned := datatypes.ContentVerdict{LevelAlignment: true}
	misaligned := datatypes.ContentVerdict{LevelAlignment: false}
	clean := datatypes.BiasVerdict{}
	flagged := datatypes.BiasVerdict{HasBias: true}

	assert.False(t, needsMitigation(clean, aligned))
	assert.True(t, needsMitigation(flagged, aligned))
	assert.True(t, needsMitigation(clean, misaligned))
	assert.True(t, needsMitigation(flagged, misaligned))
}

func TestComposeGuidanceJoinsAllInputs(t *testing.T) {
	got := composeGuidance(StrategyEmphasis,
		"Keep the friendly tone.",
		datatypes.ContentVerdict{SuggestedActions: []string{"Define jargon.", "Shorten sentences."}},
		datatypes.BiasVerdict{Reasons: []string{"US-only examples."}},
	)

	assert.Equal(t,
		"Address the reported issues with high priority. Keep the friendly tone. Define jargon. Shorten sentences. US-only examples.",
		got)
}

func TestComposeGuidanceGenericFallback(t *testing.T) {
	got := composeGuidance(StrategySimplification, "  ",
		datatypes.ContentVerdict{}, datatypes.BiasVerdict{})

	assert.Equal(t,
		"Use simpler language and structure. Rewrite the content for clarity and inclusivity.",
		got)
}

func TestComposeGuidanceSkipsBlankItems(t *testing.T) {
	got := composeGuidance(StrategyRestructure, "",
		datatypes.ContentVerdict{SuggestedActions: []string{" ", "Add examples."}},
		datatypes.BiasVerdict{})

	assert.Equal(t,
		"Reorganize the explanation with a fresh approach. Add examples.",
		got)
}
