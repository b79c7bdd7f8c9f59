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

import "gonum.org/v1/gonum/spatial/r2"

// Smooth applies Catmull-Rom subdivision passes to a closed polygon.
//
// # Description
//
// Each pass treats the polygon's vertices as spline control points and
// inserts one interpolated point between every adjacent pair, so the vertex
// count doubles per pass. Zero iterations returns the input unchanged (a
// fresh copy is not made; the function is pure and never mutates its input).
//
// The inserted point is the Catmull-Rom curve evaluated at the midpoint of
// the segment, clamped so it never moves further from the chord midpoint
// than SmoothingDisplacementLimit times the segment length. The clamp is
// what keeps a single pass from folding a narrow concavity onto itself.
//
// # Inputs
//
//   - polygon: Closed boundary to smooth. Must have at least 3 vertices.
//   - iterations: Number of subdivision passes, >= 0.
//
// # Outputs
//
//   - BoundaryPolygon: Smoothed polygon with len(polygon) * 2^iterations
//     vertices.
func Smooth(polygon BoundaryPolygon, iterations int) BoundaryPolygon {
	out := polygon
	for i := 0; i < iterations; i++ {
		out = subdivide(out)
	}
	return out
}

// subdivide performs one Catmull-Rom pass over a closed polygon.
func subdivide(polygon BoundaryPolygon) BoundaryPolygon {
	n := len(polygon)
	out := make(BoundaryPolygon, 0, 2*n)
	for i := 0; i < n; i++ {
		p0 := polygon[(i-1+n)%n]
		p1 := polygon[i]
		p2 := polygon[(i+1)%n]
		p3 := polygon[(i+2)%n]

		out = append(out, p1, clampToChord(catmullRomMidpoint(p0, p1, p2, p3), p1, p2))
	}
	return out
}

// catmullRomMidpoint evaluates the uniform Catmull-Rom spline through
// p0..p3 at t=0.5 on the p1-p2 segment. The closed form at the midpoint is
// (-p0 + 9*p1 + 9*p2 - p3) / 16.
func catmullRomMidpoint(p0, p1, p2, p3 Point) Point {
	v := r2.Scale(1.0/16.0, r2.Add(
		r2.Add(r2.Scale(-1, p0.vec()), r2.Scale(9, p1.vec())),
		r2.Add(r2.Scale(9, p2.vec()), r2.Scale(-1, p3.vec())),
	))
	return fromVec(v)
}

// clampToChord limits how far an interpolated point strays from the chord
// midpoint of the p1-p2 segment.
func clampToChord(p, p1, p2 Point) Point {
	chordMid := fromVec(r2.Scale(0.5, r2.Add(p1.vec(), p2.vec())))
	limit := SmoothingDisplacementLimit * p1.Distance(p2)

	offset := r2.Sub(p.vec(), chordMid.vec())
	dist := p.Distance(chordMid)
	if dist <= limit || dist == 0 {
		return p
	}
	return fromVec(r2.Add(chordMid.vec(), r2.Scale(limit/dist, offset)))
}
