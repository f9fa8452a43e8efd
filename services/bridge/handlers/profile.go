// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IThioye/Concept-Connector/pkg/logging"
	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
)

// HandleGetProfile serves GET /v1/profile/:sessionID.
func HandleGetProfile(profiles ProfileStore, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleGetProfile")
		defer span.End()

		sessionID := c.Param("sessionID")
		if profiles == nil {
			c.JSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{Error: "profile storage is not configured"})
			return
		}
		profile, found, err := profiles.Profile(ctx, sessionID)
		if err != nil {
			span.RecordError(err)
			log.Error("profile lookup failed", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: "failed to load profile"})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: "no profile stored for this session"})
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

// HandlePutProfile serves PUT /v1/profile/:sessionID. The body carries
// partial overrides; absent fields keep their stored values.
func HandlePutProfile(profiles ProfileStore, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandlePutProfile")
		defer span.End()

		sessionID := c.Param("sessionID")
		if profiles == nil {
			c.JSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{Error: "profile storage is not configured"})
			return
		}
		var overrides datatypes.ProfileOverrides
		if err := c.ShouldBindJSON(&overrides); err != nil {
			log.Warn("failed to parse profile overrides", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body"})
			return
		}
		profile, err := profiles.UpsertProfile(ctx, sessionID, &overrides)
		if err != nil {
			span.RecordError(err)
			log.Error("profile upsert failed", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: "failed to store profile"})
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}
