// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/trackengine/pkg/logging"
	"github.com/AleutianAI/trackengine/services/trackengine/config"
	"github.com/AleutianAI/trackengine/services/trackengine/geometry"
	"github.com/AleutianAI/trackengine/services/trackengine/handlers"
	"github.com/AleutianAI/trackengine/services/trackengine/resilience"
)

func SetupRoutes(router *gin.Engine, pipeline *geometry.Pipeline,
	breaker *resilience.CircuitBreaker, limiter *resilience.AdmissionLimiter,
	manager *config.Manager, log *logging.Logger) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/tracks", handlers.HandleGenerateTrack(pipeline, breaker, log))
		v1.GET("/tracks/ws", handlers.HandleTrackStream(pipeline, limiter, manager, log))
		// Breaker administration routes
		breakerAdmin := v1.Group("/breaker")
		{
			breakerAdmin.GET("", handlers.HandleBreakerStats(breaker))
			breakerAdmin.POST("/reset", handlers.HandleBreakerReset(breaker, log))
		}
	}
}
