// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package geometry

import "math"

// Named defaults and tuning constants for the generation pipeline. Every
// numeric tunable lives here; the stage implementations never use inline
// literals for these values.
const (
	// MinControlPoints is the smallest point count that can form a loop.
	MinControlPoints = 4

	// MaxControlPoints caps the control point count a single request may
	// ask for. The hull walk is quadratic in the cloud size, so an
	// unbounded count is a resource-exhaustion vector on the public
	// endpoints.
	MaxControlPoints = 512

	// DefaultNumPoints is the control point count used when a request
	// omits it.
	DefaultNumPoints = 16

	// DefaultTrackWidth is the corridor width between the outer and inner
	// boundaries, in world units.
	DefaultTrackWidth = 60.0

	// DefaultMinRadius is the smallest acceptable local turn radius along
	// the outer boundary.
	DefaultMinRadius = 40.0

	// DefaultSmoothingIterations is the number of Catmull-Rom subdivision
	// passes applied to the hull.
	DefaultSmoothingIterations = 2

	// DefaultBoundsWidth and DefaultBoundsHeight define the sampling
	// rectangle used when a request omits bounds.
	DefaultBoundsWidth  = 1000.0
	DefaultBoundsHeight = 800.0

	// SamplingMarginFraction keeps sampled points away from the bounds
	// edge so the offset boundary stays inside the requested rectangle.
	SamplingMarginFraction = 0.1

	// DuplicateEpsilon is the distance under which two points are treated
	// as the same vertex during hull deduplication.
	DuplicateEpsilon = 1e-9

	// MaxGenerationAttempts bounds how many random layouts the pipeline
	// tries before switching to the deterministic fallback.
	MaxGenerationAttempts = 3

	// MaxOffsetRepairPasses bounds the local clamping loop in the inward
	// offset stage.
	MaxOffsetRepairPasses = 4

	// SmoothingDisplacementLimit caps how far an interpolated point may
	// move from the chord midpoint, as a fraction of the local edge
	// length. Keeps smoothing shape-preserving so the curve cannot fold
	// onto itself.
	SmoothingDisplacementLimit = 0.25
)

// Bounds is the axis-aligned sampling rectangle for a generation request.
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MaxFeasibleMinRadius returns the largest minimum turn radius any layout
// inside the bounds can honor: the arc radius of the fallback stadium,
// which is the roundest track that fits the sampling region.
func MaxFeasibleMinRadius(b Bounds) float64 {
	availW := b.Width * (1 - 2*SamplingMarginFraction)
	availH := b.Height * (1 - 2*SamplingMarginFraction)
	return math.Min(availW, availH) / 2
}

// TrackConfig is the immutable per-request configuration of the pipeline.
//
// A zero field means "use the documented default"; Normalize fills those in.
// Configs are passed by value and never mutated after Normalize.
type TrackConfig struct {
	// NumPoints is the number of control points to sample. Must be at
	// least MinControlPoints once normalized.
	NumPoints int

	// TrackWidth is the corridor width between outer and inner boundary.
	TrackWidth float64

	// MinRadius is the minimum acceptable local turn radius.
	MinRadius float64

	// SmoothingIterations is the number of Catmull-Rom passes.
	// Negative means "use default"; zero is a valid explicit value.
	SmoothingIterations int

	// Bounds is the sampling rectangle.
	Bounds Bounds
}

// DefaultTrackConfig returns the config used when a request supplies nothing.
func DefaultTrackConfig() TrackConfig {
	return TrackConfig{
		NumPoints:           DefaultNumPoints,
		TrackWidth:          DefaultTrackWidth,
		MinRadius:           DefaultMinRadius,
		SmoothingIterations: DefaultSmoothingIterations,
		Bounds:              Bounds{Width: DefaultBoundsWidth, Height: DefaultBoundsHeight},
	}
}

// Normalize returns a copy of the config with every unset field replaced by
// its documented default, and clamps fields that exceed what the pipeline
// can honor: NumPoints is capped at MaxControlPoints, and MinRadius at the
// largest radius the bounds can accommodate, so the fallback layout always
// satisfies the turn-radius invariant. It does not otherwise validate;
// callers that accept external input validate at the transport boundary
// before normalizing.
func (c TrackConfig) Normalize() TrackConfig {
	out := c
	if out.NumPoints == 0 {
		out.NumPoints = DefaultNumPoints
	}
	if out.NumPoints > MaxControlPoints {
		out.NumPoints = MaxControlPoints
	}
	if out.TrackWidth == 0 {
		out.TrackWidth = DefaultTrackWidth
	}
	if out.MinRadius == 0 {
		out.MinRadius = DefaultMinRadius
	}
	if out.SmoothingIterations < 0 {
		out.SmoothingIterations = DefaultSmoothingIterations
	}
	if out.Bounds.Width == 0 {
		out.Bounds.Width = DefaultBoundsWidth
	}
	if out.Bounds.Height == 0 {
		out.Bounds.Height = DefaultBoundsHeight
	}
	if maxR := MaxFeasibleMinRadius(out.Bounds); out.MinRadius > maxR {
		out.MinRadius = maxR
	}
	return out
}

// TrackDescriptor is the pipeline's output: a closed drivable corridor.
//
// Invariants (guaranteed by ValidateAndFinalize):
//   - Outer and Inner each have at least 3 vertices and no duplicate
//     consecutive vertices.
//   - Inner lies inside Outer at a perpendicular offset of TrackWidth.
//   - Neither boundary self-intersects and the boundaries never cross.
type TrackDescriptor struct {
	StartPosition Point
	Outer         BoundaryPolygon
	Inner         BoundaryPolygon
	TrackWidth    float64
	Width         float64
	Height        float64
}
