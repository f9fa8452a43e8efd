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

var biasTracer = otel.Tracer("connector.agents.bias")

const biasTemperature = 0.2

// BiasMonitor reviews generated content for bias, stereotype, and
// accessibility issues.
type BiasMonitor struct {
	llm llm.Client
	log *logging.Logger
}

// NewBiasMonitor wires a monitor to a model client.
func NewBiasMonitor(client llm.Client, log *logging.Logger) *BiasMonitor {
	return &BiasMonitor{llm: client, log: log}
}

type biasWire struct {
	HasBias bool     `json:"has_bias"`
	Reasons []string `json:"reasons"`
}

// Review evaluates the content bundle. Transport errors propagate.
// Parsing degrades in order: embedded JSON, then the bare
// "HAS_BIAS:true|false" prefix protocol some models fall into, then a
// clean verdict carrying the raw output as a note.
func (m *BiasMonitor) Review(ctx context.Context, content string) (datatypes.BiasVerdict, error) {
	ctx, span := biasTracer.Start(ctx, "BiasMonitor.Review")
	defer span.End()

	system, err := prompts.BiasSystem.Format(map[string]any{})
	if err != nil {
		return datatypes.BiasVerdict{}, fmt.Errorf("bias: render system prompt: %w", err)
	}
	user, err := prompts.BiasUser.Format(map[string]any{"content": content})
	if err != nil {
		return datatypes.BiasVerdict{}, fmt.Errorf("bias: render user prompt: %w", err)
	}

	text, err := m.llm.Generate(ctx, user, llm.GenerationParams{
		System:      system,
		Temperature: llm.Temp(biasTemperature),
	})
	if err != nil {
		return datatypes.BiasVerdict{}, fmt.Errorf("bias: %w", err)
	}

	m.log.Slog().Debug("raw bias output", "text", text)
	return parseBiasVerdict(text), nil
}

func parseBiasVerdict(text string) datatypes.BiasVerdict {
	var w biasWire
	if err := llmjson.ExtractInto(text, &w); err == nil {
		return datatypes.BiasVerdict{HasBias: w.HasBias, Reasons: w.Reasons}
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	if strings.HasPrefix(lower, "has_bias:") {
		verdict := datatypes.BiasVerdict{
			HasBias: strings.HasPrefix(lower, "has_bias:true"),
		}
		// Remaining lines, if any, are the stated reasons.
		for _, line := range strings.Split(text, "\n")[1:] {
			if s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-")); s != "" {
				verdict.Reasons = append(verdict.Reasons, s)
			}
		}
		return verdict
	}

	// Unrecognized shape: assume no bias but keep the raw text so the
	// model's actual words survive into the stored result.
	return datatypes.BiasVerdict{Note: strings.TrimSpace(text)}
}
