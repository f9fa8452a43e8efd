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
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/IThioye/Concept-Connector/pkg/logging"
	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
	"github.com/IThioye/Concept-Connector/services/bridge/pipeline"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// WSEvent is one server-to-client frame. Type is "session", "stage",
// "result", or "error"; exactly one payload field is set per frame.
type WSEvent struct {
	Type      string                   `json:"type"`
	SessionID string                   `json:"session_id,omitempty"`
	Stage     *datatypes.TimelineEntry `json:"stage,omitempty"`
	Result    *datatypes.Result        `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

func sendEvent(ws *websocket.Conn, log *logging.Logger, ev WSEvent) error {
	err := ws.WriteJSON(ev)
	if err != nil {
		log.Warn("failed to write websocket frame", "error", err)
	}
	return err
}

// HandleConnectWebSocket serves GET /v1/connect/ws. Each client message
// is a connect request; the server streams one "stage" frame per
// pipeline step and closes the turn with a "result" frame. A connection
// without a client-supplied session ID gets a generated one so history
// accumulates across the socket's lifetime.
func HandleConnectWebSocket(conn Connector, profiles ProfileStore, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		sessionID := uuid.NewString()
		log.Info("websocket session started", "session_id", sessionID)
		if sendEvent(ws, log, WSEvent{Type: "session", SessionID: sessionID}) != nil {
			return
		}

		for {
			var req datatypes.ConnectRequest
			if err := ws.ReadJSON(&req); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn("websocket read failed", "error", err)
				}
				return
			}
			if err := req.Validate(); err != nil {
				if sendEvent(ws, log, WSEvent{Type: "error", Error: err.Error()}) != nil {
					return
				}
				continue
			}
			if req.SessionID == "" {
				req.SessionID = sessionID
			}
			if profiles != nil {
				if _, err := profiles.UpsertProfile(c.Request.Context(), req.SessionID, req.Overrides()); err != nil {
					log.Warn("profile upsert failed", "session_id", req.SessionID, "error", err)
				}
			}

			// Progress fires on the querying goroutine, so frames
			// stay ordered without extra locking.
			result, err := conn.ProcessQuery(c.Request.Context(), pipeline.Query{
				ConceptA:  req.ConceptA,
				ConceptB:  req.ConceptB,
				Level:     req.KnowledgeLevel,
				SessionID: req.SessionID,
				Overrides: req.Overrides(),
				Progress: func(entry datatypes.TimelineEntry) {
					e := entry
					_ = sendEvent(ws, log, WSEvent{Type: "stage", Stage: &e})
				},
			})
			if err != nil {
				log.Error("websocket query failed", "error", err)
				if sendEvent(ws, log, WSEvent{Type: "error", Error: err.Error()}) != nil {
					return
				}
				continue
			}
			if sendEvent(ws, log, WSEvent{Type: "result", Result: result}) != nil {
				return
			}
		}
	}
}
