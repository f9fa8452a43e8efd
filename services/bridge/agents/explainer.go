// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/IThioye/Concept-Connector/pkg/llmjson"
	"github.com/IThioye/Concept-Connector/pkg/logging"
	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
	"github.com/IThioye/Concept-Connector/services/bridge/prompts"
	"github.com/IThioye/Concept-Connector/services/llm"
)

var explainerTracer = otel.Tracer("connector.agents.explainer")

const explainerTemperature = 0.6

// Chatty models append an offer to keep going. Strip it.
var fillerEnding = regexp.MustCompile(`(?i)do you want me to[^\n]*`)

// Models sometimes return analogies as a rendered list.
var bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)

// ExplanationBuilder asks the model to explain a connection and craft
// analogies for the learner. Callers wrap it with the fallback logic for
// empty output; the builder itself only reports what the model produced.
type ExplanationBuilder struct {
	llm llm.Client
	log *logging.Logger
}

// NewExplanationBuilder wires a builder to a model client.
func NewExplanationBuilder(client llm.Client, log *logging.Logger) *ExplanationBuilder {
	return &ExplanationBuilder{llm: client, log: log}
}

type narrativeWire struct {
	ExplanationMarkdown string   `json:"explanation_markdown"`
	Explanation         string   `json:"explanation"`
	Analogies           []string `json:"analogies"`
}

// Build generates a narrative for conn. Transport errors propagate. A
// parse failure returns an empty narrative and no error; the caller
// decides what to substitute.
func (b *ExplanationBuilder) Build(ctx context.Context, conn datatypes.Connection, qc datatypes.QueryContext) (datatypes.Narrative, error) {
	ctx, span := explainerTracer.Start(ctx, "ExplanationBuilder.Build")
	defer span.End()

	connJSON, err := json.Marshal(conn)
	if err != nil {
		return datatypes.Narrative{}, fmt.Errorf("explainer: encode connection: %w", err)
	}

	system, err := prompts.ExplainerSystem.Format(map[string]any{})
	if err != nil {
		return datatypes.Narrative{}, fmt.Errorf("explainer: render system prompt: %w", err)
	}
	vars := learnerVars(qc)
	vars["connection"] = string(connJSON)
	vars["guidance"] = orUnspecified(qc.Guidance)
	user, err := prompts.ExplainerUser.Format(vars)
	if err != nil {
		return datatypes.Narrative{}, fmt.Errorf("explainer: render user prompt: %w", err)
	}

	text, err := b.llm.Generate(ctx, user, llm.GenerationParams{
		System:      system,
		Temperature: llm.Temp(explainerTemperature),
	})
	if err != nil {
		return datatypes.Narrative{}, fmt.Errorf("explainer: %w", err)
	}

	b.log.Slog().Debug("raw explainer output", "text", text)
	return parseNarrative(text), nil
}

// parseNarrative recovers a narrative from model text. Unstructured text
// is treated as the explanation itself rather than discarded.
func parseNarrative(text string) datatypes.Narrative {
	var w narrativeWire
	if err := llmjson.ExtractInto(text, &w); err != nil {
		return datatypes.Narrative{Explanation: stripFiller(text)}
	}
	explanation := w.ExplanationMarkdown
	if explanation == "" {
		explanation = w.Explanation
	}
	analogies := make([]string, 0, len(w.Analogies))
	for _, a := range w.Analogies {
		s := strings.TrimSpace(bulletPrefix.ReplaceAllString(a, ""))
		if s != "" {
			analogies = append(analogies, s)
		}
	}
	return datatypes.Narrative{
		Explanation: stripFiller(explanation),
		Analogies:   analogies,
	}
}

func stripFiller(s string) string {
	return strings.TrimSpace(fillerEnding.ReplaceAllString(s, ""))
}
