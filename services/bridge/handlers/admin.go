// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IThioye/Concept-Connector/pkg/logging"
	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
	"github.com/IThioye/Concept-Connector/services/bridge/pipeline"
)

// AdminTokenHeader carries the shared admin secret.
const AdminTokenHeader = "X-Admin-Token"

// RequireAdmin gates a route group on the X-Admin-Token header. The
// token function is consulted per request so a config reload can rotate
// the secret without rebuilding the router. A nil function or an empty
// token disables the group entirely rather than leaving it open.
func RequireAdmin(token func() string, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var want string
		if token != nil {
			want = token()
		}
		if want == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				datatypes.ErrorResponse{Error: "admin endpoints are disabled"})
			return
		}
		supplied := c.GetHeader(AdminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(want)) != 1 {
			log.Warn("admin token rejected", "remote", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden,
				datatypes.ErrorResponse{Error: "invalid admin token"})
			return
		}
		c.Next()
	}
}

// StatsSource reports whole-store history counts. *store.Store
// satisfies it.
type StatsSource interface {
	Stats(ctx context.Context) (datatypes.StoreStats, error)
}

// AdminMetricsResponse is the body of GET /v1/admin/metrics.
type AdminMetricsResponse struct {
	Pipeline pipeline.Summary      `json:"pipeline"`
	Store    *datatypes.StoreStats `json:"store,omitempty"`
}

// HandleAdminMetrics serves GET /v1/admin/metrics: the in-memory pipeline
// collector snapshot (cache, retries, stage timings, failures) plus
// store-level counts when persistence is configured.
func HandleAdminMetrics(conn Connector, stats StatsSource, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := AdminMetricsResponse{Pipeline: conn.MetricsSummary()}
		if stats != nil {
			counts, err := stats.Stats(c.Request.Context())
			if err != nil {
				log.Warn("store stats failed", "error", err)
			} else {
				resp.Store = &counts
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
