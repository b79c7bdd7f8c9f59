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

// FallbackVertexCount is the number of vertices on each fallback boundary.
const FallbackVertexCount = 64

// FallbackLayout builds the deterministic stadium layout used when the
// random pipeline cannot produce a valid track.
//
// # Description
//
// The layout is a stadium: two semicircular arcs joined by straights, sized
// to fit the sampling rectangle with the usual margin. The stadium is chosen
// because its inward offset is exactly another stadium, so every invariant
// (minimum turn radius, non-self-intersection, constant corridor width)
// holds by construction rather than by re-validation. This is the designed
// terminal state of generation, not an error path.
//
// # Inputs
//
//   - cfg: Normalized track configuration.
//
// # Outputs
//
//   - TrackDescriptor: Valid descriptor for every sane configuration.
func FallbackLayout(cfg TrackConfig) TrackDescriptor {
	marginX := cfg.Bounds.Width * SamplingMarginFraction
	marginY := cfg.Bounds.Height * SamplingMarginFraction
	availW := cfg.Bounds.Width - 2*marginX
	availH := cfg.Bounds.Height - 2*marginY

	// The arc radius equals MaxFeasibleMinRadius, so a normalized config
	// (MinRadius clamped to that value) is always satisfied here.
	outerR := math.Min(availW, availH) / 2
	straight := availW - 2*outerR

	innerR := outerR - cfg.TrackWidth
	if innerR <= 0 {
		// Degenerate request (corridor wider than the arc radius); keep a
		// positive inner radius so the polygon stays valid.
		innerR = outerR / 4
	}

	cx := cfg.Bounds.Width / 2
	cy := cfg.Bounds.Height / 2

	outer := stadium(cx, cy, outerR, straight, FallbackVertexCount)
	inner := stadium(cx, cy, innerR, straight, FallbackVertexCount)

	return finalize(outer, inner, cfg)
}

// stadium samples n points at equal arc-length spacing around a stadium of
// the given arc radius and straight length, centered at (cx, cy).
func stadium(cx, cy, r, straight float64, n int) BoundaryPolygon {
	perimeter := 2*math.Pi*r + 2*straight
	half := straight / 2

	pointAtArc := func(s float64) Point {
		switch {
		case s < straight: // top straight, right to left
			return Point{X: cx + half - s, Y: cy + r}
		case s < straight+math.Pi*r: // left arc
			a := (s - straight) / r
			return Point{X: cx - half - r*math.Sin(a), Y: cy + r*math.Cos(a)}
		case s < 2*straight+math.Pi*r: // bottom straight, left to right
			return Point{X: cx - half + (s - straight - math.Pi*r), Y: cy - r}
		default: // right arc
			a := (s - 2*straight - math.Pi*r) / r
			return Point{X: cx + half + r*math.Sin(a), Y: cy - r*math.Cos(a)}
		}
	}

	poly := make(BoundaryPolygon, 0, n)
	for i := 0; i < n; i++ {
		poly = append(poly, pointAtArc(float64(i)/float64(n)*perimeter))
	}
	return poly
}
