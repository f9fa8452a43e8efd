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
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
	"github.com/IThioye/Concept-Connector/services/bridge/handlers"
)

// apiClient is a thin HTTP client for the bridge API.
type apiClient struct {
	baseURL    string
	adminToken string
	http       *http.Client
}

func newAPIClient(baseURL, adminToken string) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminToken: adminToken,
		// Query latency is dominated by model calls, so the timeout
		// is generous.
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *apiClient) Connect(ctx context.Context, req datatypes.ConnectRequest) (*datatypes.Result, error) {
	var result datatypes.Result
	if err := c.do(ctx, http.MethodPost, "/v1/connect", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) SendFeedback(ctx context.Context, req datatypes.FeedbackRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/feedback", req, nil)
}

func (c *apiClient) GetProfile(ctx context.Context, sessionID string) (datatypes.Profile, error) {
	var profile datatypes.Profile
	err := c.do(ctx, http.MethodGet, "/v1/profile/"+sessionID, nil, &profile)
	return profile, err
}

func (c *apiClient) Metrics(ctx context.Context) (handlers.AdminMetricsResponse, error) {
	var metrics handlers.AdminMetricsResponse
	err := c.do(ctx, http.MethodGet, "/v1/admin/metrics", nil, &metrics)
	return metrics, err
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.adminToken != "" {
		req.Header.Set("X-Admin-Token", c.adminToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr datatypes.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
