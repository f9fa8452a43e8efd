// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IThioye/Concept-Connector/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Quiet: true})
}

func TestOllamaGenerate(t *testing.T) {
	var gotReq ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Model:    gotReq.Model,
			Response: "gravity bends spacetime",
			Done:     true,
		})
	}))
	defer server.Close()

	client, err := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "gemma3:4b"}, testLogger())
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}

	out, err := client.Generate(context.Background(), "explain gravity",
		GenerationParams{System: "be brief", Temperature: Temp(0.5)})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "gravity bends spacetime" {
		t.Errorf("unexpected output %q", out)
	}
	if gotReq.System != "be brief" {
		t.Errorf("system prompt not forwarded: %q", gotReq.System)
	}
	if gotReq.Stream {
		t.Error("stream should be false")
	}
	if temp, ok := gotReq.Options["temperature"].(float64); !ok || temp != 0.5 {
		t.Errorf("temperature not forwarded: %v", gotReq.Options)
	}
}

func TestOllamaGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "missing"}, testLogger())
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}
	if _, err := client.Generate(context.Background(), "x", GenerationParams{}); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestOllamaConfigValidation(t *testing.T) {
	if _, err := NewOllamaClient(OllamaConfig{Model: "m"}, testLogger()); err == nil {
		t.Error("expected error without BaseURL")
	}
	if _, err := NewOllamaClient(OllamaConfig{BaseURL: "http://x"}, testLogger()); err == nil {
		t.Error("expected error without Model")
	}
}
