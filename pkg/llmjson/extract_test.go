// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llmjson

import (
	"reflect"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   bool
		wantField string
		wantValue any
	}{
		{
			name:      "clean JSON",
			input:     `{"has_bias":true,"reasons":[]}`,
			wantErr:   false,
			wantField: "has_bias",
			wantValue: true,
		},
		{
			name:      "JSON with whitespace",
			input:     `   {"has_bias":false}   `,
			wantErr:   false,
			wantField: "has_bias",
			wantValue: false,
		},
		{
			name:      "markdown JSON block",
			input:     "```json\n{\"has_bias\":true}\n```",
			wantErr:   false,
			wantField: "has_bias",
			wantValue: true,
		},
		{
			name:      "generic code block",
			input:     "```\n{\"has_bias\":true}\n```",
			wantErr:   false,
			wantField: "has_bias",
			wantValue: true,
		},
		{
			name:      "JSON with preamble",
			input:     "Here is my review:\n{\"has_bias\":true}",
			wantErr:   false,
			wantField: "has_bias",
			wantValue: true,
		},
		{
			name:      "JSON with postamble",
			input:     "{\"has_bias\":true}\nHope this helps!",
			wantErr:   false,
			wantField: "has_bias",
			wantValue: true,
		},
		{
			name:      "nested braces in string",
			input:     `{"reasoning":"something {with} braces","has_bias":true}`,
			wantErr:   false,
			wantField: "has_bias",
			wantValue: true,
		},
		{
			name:      "escaped quotes in string",
			input:     `{"reasoning":"it said \"experts\" only","has_bias":true}`,
			wantErr:   false,
			wantField: "has_bias",
			wantValue: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			input:   "   \t\n  ",
			wantErr: true,
		},
		{
			name:    "no JSON",
			input:   "This is just plain prose without any JSON",
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			input:   "{has_bias: true}",
			wantErr: true,
		},
		{
			name:    "incomplete JSON",
			input:   "{\"has_bias\":true",
			wantErr: true,
		},
		{
			name:      "multiple JSON objects - first valid taken",
			input:     `{"first":1} {"second":2}`,
			wantErr:   false,
			wantField: "first",
			wantValue: float64(1),
		},
		{
			name:      "JSON in code block with uppercase tag",
			input:     "```JSON\n{\"has_bias\":true}\n```",
			wantErr:   false,
			wantField: "has_bias",
			wantValue: true,
		},
		{
			name:      "deeply nested object",
			input:     `{"outer":{"inner":{"has_bias":true}}}`,
			wantErr:   false,
			wantField: "outer",
			wantValue: map[string]any{"inner": map[string]any{"has_bias": true}},
		},
		{
			name:      "array field in JSON",
			input:     `{"reasons":["a","b"],"has_bias":true}`,
			wantErr:   false,
			wantField: "reasons",
			wantValue: []any{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", result)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, ok := result[tt.wantField]
			if !ok {
				t.Fatalf("field %q missing in %v", tt.wantField, result)
			}
			if !reflect.DeepEqual(got, tt.wantValue) {
				t.Errorf("field %q = %v, want %v", tt.wantField, got, tt.wantValue)
			}
		})
	}
}

func TestExtractArray(t *testing.T) {
	var analogies []string
	err := ExtractInto("Some preamble\n[\"like a relay race\", \"like a bridge toll\"]", &analogies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(analogies) != 2 || analogies[0] != "like a relay race" {
		t.Errorf("unexpected analogies: %v", analogies)
	}
}

func TestExtractIntoStruct(t *testing.T) {
	type verdict struct {
		LevelAlignment bool     `json:"level_alignment"`
		Issues         []string `json:"issues"`
	}
	var v verdict
	input := "The content fits.\n```json\n{\"level_alignment\": true, \"issues\": []}\n```"
	if err := ExtractInto(input, &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.LevelAlignment {
		t.Error("expected level_alignment true")
	}
}

func TestExtractJSONWithFallback(t *testing.T) {
	fallback := map[string]any{"has_bias": false}

	got, ok := ExtractJSONWithFallback("no structure here", fallback)
	if ok {
		t.Error("expected fallback path")
	}
	if !reflect.DeepEqual(got, fallback) {
		t.Errorf("fallback not returned: %v", got)
	}

	got, ok = ExtractJSONWithFallback(`{"has_bias":true}`, fallback)
	if !ok {
		t.Error("expected parse path")
	}
	if got["has_bias"] != true {
		t.Errorf("unexpected value: %v", got)
	}
}
