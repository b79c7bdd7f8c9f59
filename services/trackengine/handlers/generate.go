// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers of the track engine API.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/trackengine/pkg/logging"
	"github.com/AleutianAI/trackengine/services/trackengine/datatypes"
	"github.com/AleutianAI/trackengine/services/trackengine/geometry"
	"github.com/AleutianAI/trackengine/services/trackengine/observability"
	"github.com/AleutianAI/trackengine/services/trackengine/resilience"
)

// HandleGenerateTrack serves POST /v1/tracks.
//
// The request body is optional; omitted fields take the documented
// TrackConfig defaults. Generation runs behind the circuit breaker: an open
// circuit yields 503 with a retryable error code, never a stack trace or
// internal detail.
func HandleGenerateTrack(pipeline *geometry.Pipeline, breaker *resilience.CircuitBreaker,
	log *logging.Logger) gin.HandlerFunc {

	return func(c *gin.Context) {
		var req datatypes.GenerateTrackRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
					Code:    datatypes.ErrCodeInvalidRequest,
					Message: "request options failed validation",
				})
				return
			}
		}

		var result geometry.Result
		start := time.Now()
		err := breaker.Execute(c.Request.Context(), func() error {
			result = pipeline.Generate(req.ToTrackConfig())
			return nil
		})

		if errors.Is(err, resilience.ErrCircuitOpen) {
			if m := observability.DefaultMetrics; m != nil {
				m.BreakerRejectionsTotal.Inc()
			}
			c.JSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{
				Code:    datatypes.ErrCodeCircuitOpen,
				Message: "track generation temporarily unavailable, retry later",
			})
			return
		}
		if err != nil {
			// Unreachable given the fallback guarantee, but the error
			// code stays distinct from transport-level failures.
			log.Error("generation failed", "error", err.Error())
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				Code:    datatypes.ErrCodeGenerationFailed,
				Message: "track generation failed",
			})
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			layout := "random"
			if result.UsedFallback {
				layout = "fallback"
			}
			m.GenerationsTotal.WithLabelValues(layout).Inc()
			m.GenerationDurationSeconds.Observe(time.Since(start).Seconds())
		}

		log.Info("track generated",
			"fallback", result.UsedFallback,
			"attempts", result.Attempts,
			"outer_points", len(result.Descriptor.Outer),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		c.JSON(http.StatusOK, datatypes.NewTrackDescriptorResponse(result.Descriptor))
	}
}
