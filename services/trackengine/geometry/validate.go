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

// collinearEpsilon is the triangle area below which three consecutive
// vertices are treated as a straight segment (infinite turn radius).
const collinearEpsilon = 1e-12

// radiusSlack is the relative tolerance when comparing the measured turn
// radius against the configured minimum; the circumradius estimate carries
// floating point error, and a layout whose arcs sit exactly at the minimum
// must not be rejected by that noise.
const radiusSlack = 1e-9

// Validate checks the track invariants on a candidate layout.
//
// Checks, in order:
//  1. Both polygons have at least 3 vertices.
//  2. The minimum local turn radius along the outer boundary is at least
//     cfg.MinRadius.
//  3. Neither boundary self-intersects.
//  4. The boundaries do not cross each other.
//
// Returns ErrInvalidLayout on any violation. Callers recover by switching to
// the deterministic fallback layout, never by retrying indefinitely.
func Validate(outer, inner BoundaryPolygon, cfg TrackConfig) error {
	if len(outer) < 3 || len(inner) < 3 {
		return ErrInvalidLayout
	}
	if MinTurnRadius(outer) < cfg.MinRadius*(1-radiusSlack) {
		return ErrInvalidLayout
	}
	if selfIntersects(outer) || selfIntersects(inner) {
		return ErrInvalidLayout
	}
	if polygonsCross(outer, inner) {
		return ErrInvalidLayout
	}
	return nil
}

// ValidateAndFinalize turns a candidate layout into a TrackDescriptor.
//
// Total by construction: when the candidate violates any invariant the
// deterministic fallback layout is returned instead, so the caller always
// receives a valid descriptor.
func ValidateAndFinalize(outer, inner BoundaryPolygon, cfg TrackConfig) TrackDescriptor {
	if err := Validate(outer, inner, cfg); err != nil {
		return FallbackLayout(cfg)
	}
	return finalize(outer, inner, cfg)
}

// finalize assembles the descriptor from a validated pair of boundaries.
func finalize(outer, inner BoundaryPolygon, cfg TrackConfig) TrackDescriptor {
	min, max := outer.Bounds()
	return TrackDescriptor{
		StartPosition: corridorStart(outer, inner),
		Outer:         outer,
		Inner:         inner,
		TrackWidth:    cfg.TrackWidth,
		Width:         max.X - min.X,
		Height:        max.Y - min.Y,
	}
}

// corridorStart places the start position in the middle of the corridor,
// halfway between the first outer vertex and the inner vertex nearest it.
func corridorStart(outer, inner BoundaryPolygon) Point {
	anchor := outer[0]
	nearest := inner[0]
	best := anchor.DistanceSq(nearest)
	for _, p := range inner[1:] {
		if d := anchor.DistanceSq(p); d < best {
			best, nearest = d, p
		}
	}
	return Point{X: (anchor.X + nearest.X) / 2, Y: (anchor.Y + nearest.Y) / 2}
}

// MinTurnRadius returns the smallest local turn radius along the closed
// boundary, estimated per vertex as the circumradius of the vertex and its
// two neighbors. Straight runs contribute +Inf.
func MinTurnRadius(poly BoundaryPolygon) float64 {
	n := len(poly)
	minR := math.Inf(1)
	for i := 0; i < n; i++ {
		p0 := poly[(i-1+n)%n]
		p1 := poly[i]
		p2 := poly[(i+1)%n]

		area := math.Abs(cross(p0, p1, p2)) / 2
		if area < collinearEpsilon {
			continue
		}
		a := p0.Distance(p1)
		b := p1.Distance(p2)
		c := p2.Distance(p0)
		if r := a * b * c / (4 * area); r < minR {
			minR = r
		}
	}
	return minR
}

// selfIntersects reports whether any two non-adjacent edges of the closed
// polygon properly intersect. O(n^2); polygons stay small enough that a
// sweep line is not worth the complexity.
func selfIntersects(poly BoundaryPolygon) bool {
	n := len(poly)
	for i := 0; i < n; i++ {
		a1, a2 := poly[i], poly[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// Skip edges adjacent to edge i, including the wraparound pair.
			if j == i || (j+1)%n == i || j == (i+1)%n {
				continue
			}
			b1, b2 := poly[j], poly[(j+1)%n]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

// polygonsCross reports whether any edge of a intersects any edge of b.
func polygonsCross(a, b BoundaryPolygon) bool {
	na, nb := len(a), len(b)
	for i := 0; i < na; i++ {
		a1, a2 := a[i], a[(i+1)%na]
		for j := 0; j < nb; j++ {
			b1, b2 := b[j], b[(j+1)%nb]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}
