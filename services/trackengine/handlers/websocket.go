// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/trackengine/pkg/logging"
	"github.com/AleutianAI/trackengine/pkg/validation"
	"github.com/AleutianAI/trackengine/services/trackengine/config"
	"github.com/AleutianAI/trackengine/services/trackengine/datatypes"
	"github.com/AleutianAI/trackengine/services/trackengine/geometry"
	"github.com/AleutianAI/trackengine/services/trackengine/observability"
	"github.com/AleutianAI/trackengine/services/trackengine/resilience"
	"github.com/AleutianAI/trackengine/services/trackengine/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

// HandleTrackStream serves GET /v1/tracks/ws.
//
// Admission order matters: the client identity is validated and pushed
// through the sliding-window rate limiter before the websocket upgrade, so
// a rate-limited client never gets a session state machine at all.
func HandleTrackStream(pipeline *geometry.Pipeline, limiter *resilience.AdmissionLimiter,
	manager *config.Manager, log *logging.Logger) gin.HandlerFunc {

	return func(c *gin.Context) {
		clientID := c.GetHeader("X-Client-ID")
		if clientID == "" {
			clientID = c.ClientIP()
		}
		if err := validation.ValidateClientID(clientID); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Code:    datatypes.ErrCodeInvalidRequest,
				Message: "invalid client identity",
			})
			return
		}

		if err := limiter.Admit(clientID); err != nil {
			if errors.Is(err, resilience.ErrRateLimited) {
				if m := observability.DefaultMetrics; m != nil {
					m.SessionRejectionsTotal.WithLabelValues("rate_limited").Inc()
				}
				log.Info("connection rate limited", "client_id", clientID)
				c.JSON(http.StatusTooManyRequests, datatypes.ErrorResponse{
					Code:    datatypes.ErrCodeRateLimited,
					Message: "too many connection attempts, retry later",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				Code:    datatypes.ErrCodeInvalidRequest,
				Message: "admission check failed",
			})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			if m := observability.DefaultMetrics; m != nil {
				m.SessionRejectionsTotal.WithLabelValues("upgrade_failed").Inc()
			}
			log.Error("websocket upgrade failed", "error", err.Error())
			return
		}

		streamCfg := manager.Current().Stream
		sess := session.New(ws, pipeline, log, session.Options{
			FrameInterval: streamCfg.FrameInterval.Std(),
			IdleTimeout:   streamCfg.IdleTimeout.Std(),
			LapDuration:   streamCfg.LapDuration.Std(),
		})

		if m := observability.DefaultMetrics; m != nil {
			m.SessionsTotal.Inc()
			m.ActiveSessions.Inc()
			defer m.ActiveSessions.Dec()
		}

		log.Info("websocket client connected", "client_id", clientID, "session_id", sess.ID())
		reason := sess.Run(c.Request.Context())
		if m := observability.DefaultMetrics; m != nil {
			m.DisconnectsTotal.WithLabelValues(reason).Inc()
		}
	}
}
