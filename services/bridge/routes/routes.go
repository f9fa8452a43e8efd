// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/IThioye/Concept-Connector/pkg/logging"
	"github.com/IThioye/Concept-Connector/services/bridge/handlers"
)

// Options tunes route-level behavior; zero values disable the feature.
// Both fields are read per request so a config reload can retune them
// on a running server.
type Options struct {
	// AdminToken returns the current secret guarding /v1/admin. Nil,
	// or an empty return value, disables the group.
	AdminToken func() string

	// Limiter applies HTTP backpressure on the /v1 group. Nil disables
	// it.
	Limiter *rate.Limiter
}

// SetupRoutes wires the bridge API onto the router.
func SetupRoutes(router *gin.Engine, conn handlers.Connector, profiles handlers.ProfileStore,
	feedback handlers.FeedbackSink, stats handlers.StatsSource, log *logging.Logger, opts Options) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(handlers.Observe())
	if opts.Limiter != nil {
		v1.Use(handlers.RequestLimit(opts.Limiter))
	}
	{
		v1.POST("/connect", handlers.HandleConnect(conn, profiles, log))
		v1.GET("/connect/ws", handlers.HandleConnectWebSocket(conn, profiles, log))
		v1.POST("/feedback", handlers.HandleFeedback(feedback, log))
		v1.GET("/profile/:sessionID", handlers.HandleGetProfile(profiles, log))
		v1.PUT("/profile/:sessionID", handlers.HandlePutProfile(profiles, log))

		// Operator routes
		admin := v1.Group("/admin", handlers.RequireAdmin(opts.AdminToken, log))
		{
			admin.GET("/metrics", handlers.HandleAdminMetrics(conn, stats, log))
		}
	}
}
