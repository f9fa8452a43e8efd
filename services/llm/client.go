// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides clients for text-generation backends.
//
// The bridge pipeline talks to generation models exclusively through the
// Client interface, so the backend (Ollama for local models, OpenAI for
// hosted ones) is a deployment decision. Transport failures — unreachable
// endpoint, timeout, non-success status — surface as errors from Generate;
// how those are absorbed or propagated is the pipeline's business.
package llm

import "context"

// GenerationParams tunes a single generation call. Nil pointer fields mean
// "use the backend default".
type GenerationParams struct {
	// System is the system prompt prepended to the request.
	System string `json:"system,omitempty"`

	Temperature *float32 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Client is the standard interface for any generation backend.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Temp is a convenience for building a GenerationParams temperature pointer.
func Temp(v float32) *float32 { return &v }
