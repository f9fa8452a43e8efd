// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IThioye/Concept-Connector/pkg/logging"
	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
	"github.com/IThioye/Concept-Connector/services/llm"
)

// stubClient replays canned responses and records what it was asked.
type stubClient struct {
	responses []string
	err       error

	calls   int
	prompts []string
	systems []string
}

func (s *stubClient) Generate(_ context.Context, prompt string, params llm.GenerationParams) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	s.systems = append(s.systems, params.System)
	if s.err != nil {
		return "", s.err
	}
	idx := s.calls - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Quiet: true})
}

func testQuery() datatypes.QueryContext {
	return datatypes.QueryContext{
		SessionID: "s-1",
		ConceptA:  "Photosynthesis",
		ConceptB:  "Solar Panels",
		Level:     datatypes.LevelBeginner,
		Profile:   datatypes.DefaultProfile("s-1"),
	}
}

func TestConnectionFinderParsesModelJSON(t *testing.T) {
	stub := &stubClient{responses: []string{
		`Here you go:
{"path": ["Photosynthesis", "Energy Conversion", "Solar Panels"],
 "disciplines": ["biology", "physics", "engineering"],
 "strength": 0.95}`,
	}}
	finder := NewConnectionFinder(stub, testLogger())

	conn, err := finder.Find(context.Background(), testQuery())
	require.NoError(t, err)
	assert.Equal(t, []string{"Photosynthesis", "Energy Conversion", "Solar Panels"}, conn.Path)
	assert.Equal(t, []string{"biology", "physics", "engineering"}, conn.Disciplines)
	assert.InDelta(t, 0.95, conn.Strength, 1e-9)

	require.Len(t, stub.prompts, 1)
	assert.Contains(t, stub.prompts[0], `"Photosynthesis" and "Solar Panels"`)
	assert.Contains(t, stub.systems[0], "learner's level: beginner")
}

func TestConnectionFinderAcceptsWrappedConnections(t *testing.T) {
	stub := &stubClient{responses: []string{
		`{"connections": [{"path": ["A", "B"], "disciplines": ["x", "y"], "strength": 0.4}]}`,
	}}
	finder := NewConnectionFinder(stub, testLogger())

	conn, err := finder.Find(context.Background(), testQuery())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, conn.Path)
}

func TestConnectionFinderFallbackOnGarbage(t *testing.T) {
	stub := &stubClient{responses: []string{"I could not think of a path, sorry."}}
	finder := NewConnectionFinder(stub, testLogger())

	conn, err := finder.Find(context.Background(), testQuery())
	require.NoError(t, err)
	assert.Equal(t, []string{"Photosynthesis", "bridge concept", "Solar Panels"}, conn.Path)
	assert.InDelta(t, 0.5, conn.Strength, 1e-9)
	// Normalize pads disciplines to path length.
	assert.Len(t, conn.Disciplines, 3)
}

func TestConnectionFinderPropagatesTransportError(t *testing.T) {
	stub := &stubClient{err: errors.New("connection refused")}
	finder := NewConnectionFinder(stub, testLogger())

	_, err := finder.Find(context.Background(), testQuery())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestExplanationBuilderParsesNarrative(t *testing.T) {
	stub := &stubClient{responses: []string{
		"```json\n" +
			`{"explanation_markdown": "## Bridge\n\nBoth convert light.",
  "analogies": ["Leaves are tiny solar panels", "  ", "Chloroplasts are photovoltaic cells"]}` +
			"\n```",
	}}
	builder := NewExplanationBuilder(stub, testLogger())

	narrative, err := builder.Build(context.Background(), datatypes.Connection{
		Path:        []string{"Photosynthesis", "Solar Panels"},
		Disciplines: []string{"biology", "engineering"},
		Strength:    0.9,
	}, testQuery())
	require.NoError(t, err)
	assert.Contains(t, narrative.Explanation, "Both convert light.")
	assert.Equal(t, []string{"Leaves are tiny solar panels", "Chloroplasts are photovoltaic cells"}, narrative.Analogies)
}

func TestParseNarrativeTrimsBulletMarkers(t *testing.T) {
	n := parseNarrative(`{"explanation": "Both follow cycles.",
  "analogies": ["- Seasons are a thermostat", "2. Tides are a clock", "• Moons are metronomes"]}`)
	assert.Equal(t, []string{
		"Seasons are a thermostat",
		"Tides are a clock",
		"Moons are metronomes",
	}, n.Analogies)
}

func TestParseNarrativeStripsFillerEnding(t *testing.T) {
	n := parseNarrative("The bridge works through energy conversion.\nDo you want me to expand on any step?")
	assert.Equal(t, "The bridge works through energy conversion.", n.Explanation)
	assert.Empty(t, n.Analogies)
}

func TestParseBiasVerdict(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		hasBias bool
		reasons int
		note    string
	}{
		{
			name:    "embedded json",
			text:    `Verdict: {"has_bias": true, "reasons": ["Geographic bias: US-only examples"]}`,
			hasBias: true,
			reasons: 1,
		},
		{
			name:    "json no bias",
			text:    `{"has_bias": false, "reasons": []}`,
			hasBias: false,
		},
		{
			name:    "prefix protocol",
			text:    "HAS_BIAS:true\n- gendered analogy\n- car-centric example",
			hasBias: true,
			reasons: 2,
		},
		{
			name:    "prefix protocol clean",
			text:    "has_bias:false",
			hasBias: false,
		},
		{
			name:    "garbage defaults clean with note",
			text:    "  the content looks fine to me  ",
			hasBias: false,
			note:    "the content looks fine to me",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := parseBiasVerdict(tt.text)
			assert.Equal(t, tt.hasBias, verdict.HasBias)
			assert.Len(t, verdict.Reasons, tt.reasons)
			assert.Equal(t, tt.note, verdict.Note)
		})
	}
}

func TestBiasNoteStaysOutOfGuidanceReasons(t *testing.T) {
	verdict := parseBiasVerdict("I could not produce the requested format, but here it is in prose.")
	assert.False(t, verdict.HasBias)
	assert.Empty(t, verdict.Reasons, "free-form text must not become a mitigation reason")
	assert.Equal(t, "I could not produce the requested format, but here it is in prose.", verdict.Note)
}

func TestParseReviewVerdictDefaults(t *testing.T) {
	verdict := parseReviewVerdict(`{"issues": ["too dense"]}`)
	assert.True(t, verdict.LevelAlignment, "omitted alignment defaults to aligned")
	assert.Equal(t, "unknown", verdict.ReadingLevel)
	assert.Equal(t, []string{"too dense"}, verdict.Issues)
	assert.Equal(t, []string{}, verdict.SuggestedActions)
	assert.Equal(t, datatypes.BiasRiskUnknown, verdict.BiasRisk)
}

func TestParseReviewVerdictNonJSON(t *testing.T) {
	verdict := parseReviewVerdict("  This is way too complex for a beginner.  ")
	assert.False(t, verdict.LevelAlignment)
	assert.Equal(t, "unknown", verdict.ReadingLevel)
	assert.Equal(t, []string{"This is way too complex for a beginner."}, verdict.Issues)
	assert.Equal(t, []string{"Rewrite to match the requested learner level."}, verdict.SuggestedActions)
	assert.Equal(t, datatypes.BiasRiskUnknown, verdict.BiasRisk)
}

func TestParseReviewVerdictNormalizesBiasRisk(t *testing.T) {
	verdict := parseReviewVerdict(`{"level_alignment": false, "bias_risk": "HIGH "}`)
	assert.False(t, verdict.LevelAlignment)
	assert.Equal(t, datatypes.BiasRiskHigh, verdict.BiasRisk)

	verdict = parseReviewVerdict(`{"bias_risk": "catastrophic"}`)
	assert.Equal(t, datatypes.BiasRiskUnknown, verdict.BiasRisk)
}
