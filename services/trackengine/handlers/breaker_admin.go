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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/trackengine/pkg/logging"
	"github.com/AleutianAI/trackengine/services/trackengine/resilience"
)

// HandleBreakerStats serves GET /v1/breaker with a snapshot of the
// generation circuit breaker.
func HandleBreakerStats(breaker *resilience.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, breaker.Stats())
	}
}

// HandleBreakerReset serves POST /v1/breaker/reset. Resetting forces the
// breaker closed and advances its epoch, so outcomes from calls already in
// flight are discarded rather than re-tripping the fresh breaker.
func HandleBreakerReset(breaker *resilience.CircuitBreaker, log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		breaker.Reset()
		log.Info("circuit breaker reset", "remote_addr", c.ClientIP())
		c.JSON(http.StatusOK, breaker.Stats())
	}
}
