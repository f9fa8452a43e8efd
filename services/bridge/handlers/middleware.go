// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
	"github.com/IThioye/Concept-Connector/services/bridge/observability"
)

// RequestLimit rejects requests beyond the limiter's sustained rate
// (burst allowed) with 429. The caller owns the limiter and may retune
// it at runtime via SetLimit/SetBurst, e.g. on a config reload. This is
// HTTP backpressure; the model-call rate limiter inside the pipeline is
// a separate, stricter gate.
func RequestLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				datatypes.ErrorResponse{Error: "rate limit exceeded, retry shortly"})
			return
		}
		c.Next()
	}
}

// Observe records per-route request counts and latencies.
func Observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.RecordRequest(route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
