// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the track engine.
//
// Metrics are exposed on /metrics. All operations are thread-safe via
// Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "trackengine"

	generationSubsystem = "generation"
	streamingSubsystem  = "streaming"
)

// EngineMetrics holds all Prometheus metrics for generation and streaming.
type EngineMetrics struct {
	// GenerationsTotal counts pipeline runs by layout source.
	// Labels: layout (random, fallback)
	GenerationsTotal *prometheus.CounterVec

	// GenerationDurationSeconds measures one full pipeline run.
	GenerationDurationSeconds prometheus.Histogram

	// BreakerRejectionsTotal counts requests rejected by the open circuit.
	BreakerRejectionsTotal prometheus.Counter

	// BreakerTransitionsTotal counts breaker state transitions.
	// Labels: from, to
	BreakerTransitionsTotal *prometheus.CounterVec

	// ActiveSessions tracks currently running streaming sessions.
	ActiveSessions prometheus.Gauge

	// SessionsTotal counts accepted sessions.
	SessionsTotal prometheus.Counter

	// SessionRejectionsTotal counts sessions rejected before admission.
	// Labels: reason (rate_limited, upgrade_failed)
	SessionRejectionsTotal *prometheus.CounterVec

	// FramesTotal counts emitted streaming frames.
	FramesTotal prometheus.Counter

	// DisconnectsTotal counts finished sessions by disconnect reason.
	// Labels: reason (stopped, idle_timeout, transport_closed, server_shutdown)
	DisconnectsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance, initialized by InitMetrics.
var DefaultMetrics *EngineMetrics

// InitMetrics creates and registers all metrics. Call once at startup.
func InitMetrics() *EngineMetrics {
	if DefaultMetrics != nil {
		return DefaultMetrics
	}
	DefaultMetrics = &EngineMetrics{
		GenerationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: generationSubsystem,
			Name:      "runs_total",
			Help:      "Pipeline runs by layout source.",
		}, []string{"layout"}),

		GenerationDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: generationSubsystem,
			Name:      "duration_seconds",
			Help:      "Duration of one full pipeline run.",
			Buckets:   prometheus.DefBuckets,
		}),

		BreakerRejectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: generationSubsystem,
			Name:      "breaker_rejections_total",
			Help:      "Requests rejected because the circuit breaker was open.",
		}),

		BreakerTransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: generationSubsystem,
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions.",
		}, []string{"from", "to"}),

		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: streamingSubsystem,
			Name:      "active_sessions",
			Help:      "Currently running streaming sessions.",
		}),

		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: streamingSubsystem,
			Name:      "sessions_total",
			Help:      "Accepted streaming sessions.",
		}),

		SessionRejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: streamingSubsystem,
			Name:      "session_rejections_total",
			Help:      "Sessions rejected before admission.",
		}, []string{"reason"}),

		FramesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: streamingSubsystem,
			Name:      "frames_total",
			Help:      "Streaming frames emitted.",
		}),

		DisconnectsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: streamingSubsystem,
			Name:      "disconnects_total",
			Help:      "Finished sessions by disconnect reason.",
		}, []string{"reason"}),
	}
	return DefaultMetrics
}
