// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the wire-level request, response, and streaming
// message shapes exposed by the track engine API.
package datatypes

import "github.com/AleutianAI/trackengine/services/trackengine/geometry"

// PointJSON is the serialized form of a 2D coordinate.
type PointJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundsJSON is the sampling rectangle of a generation request.
type BoundsJSON struct {
	Width  float64 `json:"width" binding:"omitempty,gt=0"`
	Height float64 `json:"height" binding:"omitempty,gt=0"`
}

// GenerateTrackRequest is the body of POST /v1/tracks. Zero-valued fields
// take the documented TrackConfig defaults.
//
// The num_points bounds mirror geometry.MinControlPoints and
// geometry.MaxControlPoints.
type GenerateTrackRequest struct {
	NumPoints           int        `json:"num_points" binding:"omitempty,gte=4,lte=512"`
	TrackWidth          float64    `json:"track_width" binding:"omitempty,gt=0"`
	MinRadius           float64    `json:"min_radius" binding:"omitempty,gt=0"`
	SmoothingIterations *int       `json:"smoothing_iterations,omitempty" binding:"omitempty"`
	Bounds              BoundsJSON `json:"bounds"`
}

// ToTrackConfig maps the request onto a pipeline configuration. Omitted
// fields stay zero so Normalize applies the defaults; an explicit zero for
// smoothing_iterations is preserved (it is a valid request for no
// smoothing).
func (r GenerateTrackRequest) ToTrackConfig() geometry.TrackConfig {
	iterations := -1
	if r.SmoothingIterations != nil {
		iterations = *r.SmoothingIterations
	}
	return geometry.TrackConfig{
		NumPoints:           r.NumPoints,
		TrackWidth:          r.TrackWidth,
		MinRadius:           r.MinRadius,
		SmoothingIterations: iterations,
		Bounds:              geometry.Bounds{Width: r.Bounds.Width, Height: r.Bounds.Height},
	}
}

// TrackBoundaries holds both edges of the corridor.
type TrackBoundaries struct {
	Outer []PointJSON `json:"outer"`
	Inner []PointJSON `json:"inner"`
}

// TrackDescriptorResponse is the serialized TrackDescriptor returned by the
// generation endpoint and embedded in streaming acknowledgments.
type TrackDescriptorResponse struct {
	StartPosition PointJSON       `json:"start_position"`
	Boundaries    TrackBoundaries `json:"boundaries"`
	TrackWidth    float64         `json:"track_width"`
	Width         float64         `json:"width"`
	Height        float64         `json:"height"`
}

// NewTrackDescriptorResponse converts a pipeline descriptor to its wire
// form.
func NewTrackDescriptorResponse(d geometry.TrackDescriptor) TrackDescriptorResponse {
	return TrackDescriptorResponse{
		StartPosition: PointJSON{X: d.StartPosition.X, Y: d.StartPosition.Y},
		Boundaries: TrackBoundaries{
			Outer: toPointJSON(d.Outer),
			Inner: toPointJSON(d.Inner),
		},
		TrackWidth: d.TrackWidth,
		Width:      d.Width,
		Height:     d.Height,
	}
}

func toPointJSON(poly geometry.BoundaryPolygon) []PointJSON {
	out := make([]PointJSON, len(poly))
	for i, p := range poly {
		out[i] = PointJSON{X: p.X, Y: p.Y}
	}
	return out
}

// ErrorResponse is the generic error body for REST endpoints. Code is a
// stable category, never an internal detail.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stable error codes crossing the external boundary.
const (
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeGenerationFailed = "generation_failed"
	ErrCodeCircuitOpen      = "circuit_open"
	ErrCodeRateLimited      = "rate_limited"
)
