// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
	"github.com/IThioye/Concept-Connector/services/bridge/handlers"
	"github.com/IThioye/Concept-Connector/services/bridge/pipeline"
)

func TestConnectRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/connect", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req datatypes.ConnectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "music", req.ConceptA)

		json.NewEncoder(w).Encode(datatypes.Result{
			ConceptA: req.ConceptA,
			ConceptB: req.ConceptB,
			Connection: datatypes.Connection{
				Path: []string{"music", "waves", "physics"},
			},
		})
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL, "")
	result, err := client.Connect(context.Background(), datatypes.ConnectRequest{
		ConceptA: "music",
		ConceptB: "physics",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"music", "waves", "physics"}, result.Connection.Path)
}

func TestConnectServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(datatypes.ErrorResponse{Error: "connection stage: model unreachable"})
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL, "")
	_, err := client.Connect(context.Background(), datatypes.ConnectRequest{
		ConceptA: "a", ConceptB: "b",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unreachable")
	assert.Contains(t, err.Error(), "500")
}

func TestMetricsSendsAdminToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Token") != "s3cret" {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(datatypes.ErrorResponse{Error: "invalid admin token"})
			return
		}
		json.NewEncoder(w).Encode(handlers.AdminMetricsResponse{
			Pipeline: pipeline.Summary{CacheHits: 3, CacheMisses: 1, CacheHitRate: 0.75},
		})
	}))
	defer srv.Close()

	_, err := newAPIClient(srv.URL, "wrong").Metrics(context.Background())
	require.Error(t, err)

	metrics, err := newAPIClient(srv.URL, "s3cret").Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), metrics.Pipeline.CacheHits)
	assert.InDelta(t, 0.75, metrics.Pipeline.CacheHitRate, 1e-9)
}

func TestRenderResultJSONWhenForced(t *testing.T) {
	var buf bytes.Buffer
	result := &datatypes.Result{
		ConceptA: "music",
		ConceptB: "math",
		Connection: datatypes.Connection{
			Path: []string{"music", "ratios", "math"},
		},
	}
	require.NoError(t, renderResult(&buf, result, true))

	var got datatypes.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, result.Connection.Path, got.Connection.Path)
}
