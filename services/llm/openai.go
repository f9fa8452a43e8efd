// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	openai "github.com/sashabaranov/go-openai"

	"github.com/IThioye/Concept-Connector/pkg/logging"
)

// openaiSecretPath is checked when OPENAI_API_KEY is unset (container
// secret mount convention).
const openaiSecretPath = "/run/secrets/openai_api_key"

// OpenAIClient is a Client backed by the OpenAI chat-completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
	log    *logging.Logger
}

// NewOpenAIClient creates a client for the OpenAI API. The key is read from
// OPENAI_API_KEY or the container secret file, sealed into a memguard
// enclave while the SDK client is constructed, and the working copy wiped
// afterwards so the raw key does not linger on the Go heap longer than
// necessary.
func NewOpenAIClient(model string, log *logging.Logger) (*OpenAIClient, error) {
	keyBytes := []byte(os.Getenv("OPENAI_API_KEY"))
	if len(keyBytes) == 0 {
		fileBytes, err := os.ReadFile(openaiSecretPath)
		if err != nil {
			return nil, fmt.Errorf("openai: OPENAI_API_KEY not set and secret %s not found", openaiSecretPath)
		}
		keyBytes = []byte(strings.TrimSpace(string(fileBytes)))
		log.Info("read OpenAI API key from secret file")
	}

	enclave := memguard.NewEnclave(keyBytes)
	view, err := enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("openai: open key enclave: %w", err)
	}
	client := openai.NewClient(view.String())
	view.Destroy()

	if model == "" {
		model = openai.GPT4oMini
		log.Warn("OpenAI model not configured, defaulting", "model", model)
	}
	log.Info("initializing OpenAI client", "model", model)
	return &OpenAIClient{client: client, model: model, log: log}, nil
}

// Generate implements the Client interface.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	system := params.System
	if system == "" {
		system = "You are a helpful assistant."
	}
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		o.log.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("openai: API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: returned no choices")
	}
	o.log.Debug("received OpenAI response", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
