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

// HandleFeedback serves POST /v1/feedback. Stored rows feed the guidance
// summariser on later queries for the same session.
func HandleFeedback(sink FeedbackSink, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleFeedback")
		defer span.End()

		var req datatypes.FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warn("failed to parse feedback request", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		if sink == nil {
			c.JSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{Error: "feedback storage is not configured"})
			return
		}

		fb := datatypes.Feedback{
			SessionID: req.SessionID,
			Rating:    req.Rating,
			Comment:   req.Comment,
		}
		if err := sink.SaveFeedback(ctx, fb); err != nil {
			span.RecordError(err)
			log.Error("feedback save failed", "session_id", req.SessionID, "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: "failed to store feedback"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "recorded"})
	}
}
