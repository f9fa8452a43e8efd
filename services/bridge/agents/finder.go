// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agents implements the model-facing and local stages of the
// bridge pipeline: connection finding, narrative building, bias review,
// pedagogy review, fairness auditing, and feedback summarisation.
//
// Stages that call the model propagate transport errors to the caller.
// Malformed model output never errors: each stage parses strictly first,
// then leniently, then falls back to a deterministic default payload.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/IThioye/Concept-Connector/pkg/llmjson"
	"github.com/IThioye/Concept-Connector/pkg/logging"
	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
	"github.com/IThioye/Concept-Connector/services/bridge/prompts"
	"github.com/IThioye/Concept-Connector/services/llm"
)

var finderTracer = otel.Tracer("connector.agents.finder")

const finderTemperature = 0.5

// ConnectionFinder asks the model for a conceptual path between two
// concepts.
//
// # Thread Safety
//
// Safe for concurrent use; all state is per-call.
type ConnectionFinder struct {
	llm llm.Client
	log *logging.Logger
}

// NewConnectionFinder wires a finder to a model client.
func NewConnectionFinder(client llm.Client, log *logging.Logger) *ConnectionFinder {
	return &ConnectionFinder{llm: client, log: log}
}

// connectionWire is the shape the model is instructed to return. Some
// models wrap the object in a "connections" array; accept both.
type connectionWire struct {
	Path        []string         `json:"path"`
	Disciplines []string         `json:"disciplines"`
	Strength    float64          `json:"strength"`
	Connections []connectionWire `json:"connections,omitempty"`
}

// Find returns a normalized connection between the two concepts in qc.
// Transport errors propagate; unparseable output degrades to a single
// direct bridge with neutral strength.
func (f *ConnectionFinder) Find(ctx context.Context, qc datatypes.QueryContext) (datatypes.Connection, error) {
	ctx, span := finderTracer.Start(ctx, "ConnectionFinder.Find")
	defer span.End()
	span.SetAttributes(
		attribute.String("concept.a", qc.ConceptA),
		attribute.String("concept.b", qc.ConceptB),
		attribute.String("level", qc.Level),
	)

	system, err := prompts.ConnectionFinderSystem.Format(map[string]any{"level": qc.Level})
	if err != nil {
		return datatypes.Connection{}, fmt.Errorf("finder: render system prompt: %w", err)
	}
	vars := learnerVars(qc)
	vars["history"] = renderHistory(qc.History)
	vars["preferences"] = orUnspecified(qc.Guidance)
	user, err := prompts.ConnectionFinderUser.Format(vars)
	if err != nil {
		return datatypes.Connection{}, fmt.Errorf("finder: render user prompt: %w", err)
	}

	text, err := f.llm.Generate(ctx, user, llm.GenerationParams{
		System:      system,
		Temperature: llm.Temp(finderTemperature),
	})
	if err != nil {
		return datatypes.Connection{}, fmt.Errorf("finder: %w", err)
	}

	conn, ok := parseConnection(text)
	if !ok {
		f.log.Warn("finder returned unparseable output, using fallback path",
			"concept_a", qc.ConceptA, "concept_b", qc.ConceptB)
		conn = fallbackConnection(qc.ConceptA, qc.ConceptB)
	}
	return conn.Normalize(), nil
}

// parseConnection extracts a connection from raw model text. It accepts a
// bare object, an object wrapped in "connections", or an array of
// candidate objects (first entry wins).
func parseConnection(text string) (datatypes.Connection, bool) {
	raw, err := llmjson.Extract(text)
	if err != nil {
		return datatypes.Connection{}, false
	}

	var wires []connectionWire
	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		if err := json.Unmarshal([]byte(raw), &wires); err != nil {
			return datatypes.Connection{}, false
		}
	} else {
		var w connectionWire
		if err := json.Unmarshal([]byte(raw), &w); err != nil {
			return datatypes.Connection{}, false
		}
		if len(w.Connections) > 0 {
			wires = w.Connections
		} else {
			wires = []connectionWire{w}
		}
	}

	for _, w := range wires {
		if len(w.Path) >= datatypes.MinPathLen {
			return datatypes.Connection{
				Path:        w.Path,
				Disciplines: w.Disciplines,
				Strength:    w.Strength,
			}, true
		}
	}
	return datatypes.Connection{}, false
}

// fallbackConnection is the deterministic path used when the model output
// carries no usable structure.
func fallbackConnection(conceptA, conceptB string) datatypes.Connection {
	return datatypes.Connection{
		Path:        []string{conceptA, "bridge concept", conceptB},
		Disciplines: []string{},
		Strength:    0.5,
	}
}
