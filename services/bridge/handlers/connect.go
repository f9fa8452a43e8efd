// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin handlers for the bridge HTTP API.
// Each handler is a closure over its collaborators so routes.SetupRoutes
// can wire them without package-level state.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/IThioye/Concept-Connector/pkg/logging"
	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
	"github.com/IThioye/Concept-Connector/services/bridge/pipeline"
)

var handlerTracer = otel.Tracer("connector.bridge.handlers")

// Connector runs bridge queries. *pipeline.Orchestrator satisfies it.
type Connector interface {
	ProcessQuery(ctx context.Context, q pipeline.Query) (*datatypes.Result, error)
	MetricsSummary() pipeline.Summary
}

// ProfileStore persists and recalls learner profiles.
// *store.Store satisfies it.
type ProfileStore interface {
	Profile(ctx context.Context, sessionID string) (datatypes.Profile, bool, error)
	UpsertProfile(ctx context.Context, sessionID string, overrides *datatypes.ProfileOverrides) (datatypes.Profile, error)
}

// FeedbackSink stores learner feedback rows. *store.Store satisfies it.
type FeedbackSink interface {
	SaveFeedback(ctx context.Context, fb datatypes.Feedback) error
}

// HandleConnect serves POST /v1/connect: validate the request, upsert the
// profile when a session is named, then run the query pipeline.
// Profiles may be nil when the service runs without a store.
func HandleConnect(conn Connector, profiles ProfileStore, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleConnect")
		defer span.End()

		var req datatypes.ConnectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Warn("failed to parse connect request", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		// A named session makes the request's profile fields durable.
		// Anonymous requests only override for this one query.
		if req.SessionID != "" && profiles != nil {
			if _, err := profiles.UpsertProfile(ctx, req.SessionID, req.Overrides()); err != nil {
				log.Warn("profile upsert failed", "session_id", req.SessionID, "error", err)
			}
		}

		result, err := conn.ProcessQuery(ctx, pipeline.Query{
			ConceptA:  req.ConceptA,
			ConceptB:  req.ConceptB,
			Level:     req.KnowledgeLevel,
			SessionID: req.SessionID,
			Overrides: req.Overrides(),
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Error("query pipeline failed", "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
