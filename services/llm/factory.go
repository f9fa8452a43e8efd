// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/IThioye/Concept-Connector/pkg/logging"
)

// NewFromEnv selects and constructs a generation backend from environment
// variables:
//
//	LLM_BACKEND_TYPE   "ollama" (default) or "openai"
//	OLLAMA_BASE_URL    Ollama server address (default http://localhost:11434)
//	OLLAMA_MODEL       Ollama model name (default gemma3:4b)
//	OPENAI_API_KEY     OpenAI key (or /run/secrets/openai_api_key)
//	OPENAI_MODEL       OpenAI model name (default gpt-4o-mini)
//
// Deliberately env-driven: the backend is a deployment decision, not part
// of the service config file.
func NewFromEnv(log *logging.Logger) (Client, error) {
	backend := os.Getenv("LLM_BACKEND_TYPE")
	switch backend {
	case "openai":
		log.Info("using OpenAI generation backend")
		return NewOpenAIClient(os.Getenv("OPENAI_MODEL"), log)
	case "ollama", "":
		if backend == "" {
			log.Warn("LLM_BACKEND_TYPE not set, defaulting to ollama")
		} else {
			log.Info("using Ollama generation backend")
		}
		baseURL := os.Getenv("OLLAMA_BASE_URL")
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			model = "gemma3:4b"
		}
		return NewOllamaClient(OllamaConfig{
			BaseURL: baseURL,
			Model:   model,
			Timeout: 2 * time.Minute,
		}, log)
	default:
		return nil, fmt.Errorf("llm: unknown LLM_BACKEND_TYPE %q", backend)
	}
}
