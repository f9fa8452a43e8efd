// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IThioye/Concept-Connector/pkg/logging"
	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
	"github.com/IThioye/Concept-Connector/services/bridge/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeConnector struct{}

func (fakeConnector) ProcessQuery(ctx context.Context, q pipeline.Query) (*datatypes.Result, error) {
	return &datatypes.Result{
		ConceptA: q.ConceptA,
		ConceptB: q.ConceptB,
		Connection: datatypes.Connection{
			Path: []string{q.ConceptA, "shared structure", q.ConceptB},
		},
	}, nil
}

func (fakeConnector) MetricsSummary() pipeline.Summary { return pipeline.Summary{} }

func newTestRouter(opts Options) *gin.Engine {
	router := gin.New()
	SetupRoutes(router, fakeConnector{}, nil, nil, nil, logging.New(logging.Config{Quiet: true}), opts)
	return router
}

func TestSetupRoutesHealthAndMetrics(t *testing.T) {
	router := newTestRouter(Options{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRoutesConnect(t *testing.T) {
	router := newTestRouter(Options{})

	body, _ := json.Marshal(map[string]string{
		"concept_a": "jazz",
		"concept_b": "statistics",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/connect", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var result datatypes.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, []string{"jazz", "shared structure", "statistics"}, result.Connection.Path)
}

func TestSetupRoutesAdminGated(t *testing.T) {
	router := newTestRouter(Options{AdminToken: func() string { return "top" }})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/admin/metrics", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/admin/metrics", nil)
	req.Header.Set("X-Admin-Token", "top")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRoutesProfileUnavailableWithoutStore(t *testing.T) {
	router := newTestRouter(Options{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/profile/sess-1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
