// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/IThioye/Concept-Connector/pkg/llmjson"
	"github.com/IThioye/Concept-Connector/pkg/logging"
	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
	"github.com/IThioye/Concept-Connector/services/bridge/prompts"
	"github.com/IThioye/Concept-Connector/services/llm"
)

var reviewerTracer = otel.Tracer("connector.agents.reviewer")

const reviewerTemperature = 0.2

// ContentReviewer checks whether generated content fits the learner
// profile: vocabulary, depth, prior-knowledge assumptions, structure.
type ContentReviewer struct {
	llm llm.Client
	log *logging.Logger
}

// NewContentReviewer wires a reviewer to a model client.
func NewContentReviewer(client llm.Client, log *logging.Logger) *ContentReviewer {
	return &ContentReviewer{llm: client, log: log}
}

// LevelAlignment is a pointer so a verdict that omits the field defaults
// to aligned rather than to Go's zero value.
type reviewWire struct {
	LevelAlignment   *bool    `json:"level_alignment"`
	ReadingLevel     string   `json:"reading_level"`
	Issues           []string `json:"issues"`
	SuggestedActions []string `json:"suggested_actions"`
	BiasRisk         string   `json:"bias_risk"`
}

// Evaluate reviews the content bundle against the learner profile in qc.
// Transport errors propagate; any other output yields a usable verdict.
func (r *ContentReviewer) Evaluate(ctx context.Context, content string, qc datatypes.QueryContext) (datatypes.ContentVerdict, error) {
	ctx, span := reviewerTracer.Start(ctx, "ContentReviewer.Evaluate")
	defer span.End()

	system, err := prompts.ReviewSystem.Format(map[string]any{})
	if err != nil {
		return datatypes.ContentVerdict{}, fmt.Errorf("reviewer: render system prompt: %w", err)
	}
	vars := learnerVars(qc)
	vars["content"] = content
	user, err := prompts.ReviewUser.Format(vars)
	if err != nil {
		return datatypes.ContentVerdict{}, fmt.Errorf("reviewer: render user prompt: %w", err)
	}

	text, err := r.llm.Generate(ctx, user, llm.GenerationParams{
		System:      system,
		Temperature: llm.Temp(reviewerTemperature),
	})
	if err != nil {
		return datatypes.ContentVerdict{}, fmt.Errorf("reviewer: %w", err)
	}

	r.log.Slog().Debug("raw reviewer output", "text", text)
	return parseReviewVerdict(text), nil
}

// parseReviewVerdict recovers a verdict from model text. Non-JSON output
// is treated as a misalignment report with the raw text as the issue.
func parseReviewVerdict(text string) datatypes.ContentVerdict {
	var w reviewWire
	if err := llmjson.ExtractInto(text, &w); err != nil {
		return datatypes.ContentVerdict{
			LevelAlignment:   false,
			ReadingLevel:     "unknown",
			Issues:           []string{strings.TrimSpace(text)},
			SuggestedActions: []string{"Rewrite to match the requested learner level."},
			BiasRisk:         datatypes.BiasRiskUnknown,
		}
	}

	verdict := datatypes.ContentVerdict{
		LevelAlignment:   true,
		ReadingLevel:     w.ReadingLevel,
		Issues:           w.Issues,
		SuggestedActions: w.SuggestedActions,
		BiasRisk:         normalizeBiasRisk(w.BiasRisk),
	}
	if w.LevelAlignment != nil {
		verdict.LevelAlignment = *w.LevelAlignment
	}
	if verdict.ReadingLevel == "" {
		verdict.ReadingLevel = "unknown"
	}
	if verdict.Issues == nil {
		verdict.Issues = []string{}
	}
	if verdict.SuggestedActions == nil {
		verdict.SuggestedActions = []string{}
	}
	return verdict
}

func normalizeBiasRisk(s string) datatypes.BiasRisk {
	switch datatypes.BiasRisk(strings.ToLower(strings.TrimSpace(s))) {
	case datatypes.BiasRiskLow:
		return datatypes.BiasRiskLow
	case datatypes.BiasRiskMedium:
		return datatypes.BiasRiskMedium
	case datatypes.BiasRiskHigh:
		return datatypes.BiasRiskHigh
	default:
		return datatypes.BiasRiskUnknown
	}
}
