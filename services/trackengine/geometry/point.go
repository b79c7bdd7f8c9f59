// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package geometry implements the procedural track generation pipeline.
//
// # Description
//
// The pipeline turns a TrackConfig into a TrackDescriptor in five stages:
//
//	Sampling -> Concave Hull -> Catmull-Rom Smoothing -> Inward Offset -> Validation
//
// Each stage is a pure function over immutable Point values except sampling,
// which advances an instance-scoped random source. When any stage fails, or
// validation rejects the random layout, the pipeline falls back to a
// deterministic stadium layout that satisfies every invariant by construction,
// so Generate never returns an error descriptor.
//
// # Thread Safety
//
// All stages are safe to call from concurrent goroutines as long as each
// concurrent generation uses its own Sampler (the only stateful component).
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is an immutable 2D coordinate pair.
//
// Points are value types: equality, hashing, and distance are all based on
// the coordinate values. No stage of the pipeline mutates a Point after
// construction; stages produce new slices of new points.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// DistanceSq returns the squared distance to q. Cheaper than Distance when
// only comparing magnitudes.
func (p Point) DistanceSq(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

// vec converts the point to a gonum r2 vector for the linear algebra used by
// the smoothing and offset stages.
func (p Point) vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// fromVec converts an r2 vector back to a Point.
func fromVec(v r2.Vec) Point {
	return Point{X: v.X, Y: v.Y}
}

// PointCloud is the ordered set of candidate control points produced by
// sampling. Order is preserved for debugging only; hull extraction does not
// depend on it.
type PointCloud []Point

// BoundaryPolygon is an implicitly closed polygon: the last vertex connects
// back to the first, and the first and last vertices are distinct.
type BoundaryPolygon []Point

// Centroid returns the arithmetic mean of the polygon's vertices.
func (b BoundaryPolygon) Centroid() Point {
	var sum r2.Vec
	for _, p := range b {
		sum = r2.Add(sum, p.vec())
	}
	return fromVec(r2.Scale(1/float64(len(b)), sum))
}

// SignedArea returns the polygon's signed area via the shoelace formula.
// Positive for counter-clockwise winding.
func (b BoundaryPolygon) SignedArea() float64 {
	var area float64
	n := len(b)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += b[i].X*b[j].Y - b[j].X*b[i].Y
	}
	return area / 2
}

// Perimeter returns the total closed-loop length of the polygon.
func (b BoundaryPolygon) Perimeter() float64 {
	var total float64
	n := len(b)
	for i := 0; i < n; i++ {
		total += b[i].Distance(b[(i+1)%n])
	}
	return total
}

// Bounds returns the axis-aligned extents of the polygon.
func (b BoundaryPolygon) Bounds() (min, max Point) {
	if len(b) == 0 {
		return Point{}, Point{}
	}
	min, max = b[0], b[0]
	for _, p := range b[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}

// PointAt returns the point at normalized arc-length position t in [0,1)
// along the closed polygon, interpolating linearly between vertices. Used by
// the streaming layer to advance a simulated position around the loop.
func (b BoundaryPolygon) PointAt(t float64) Point {
	if len(b) == 0 {
		return Point{}
	}
	t = t - math.Floor(t)
	target := t * b.Perimeter()

	n := len(b)
	var walked float64
	for i := 0; i < n; i++ {
		a, c := b[i], b[(i+1)%n]
		seg := a.Distance(c)
		if walked+seg >= target && seg > 0 {
			f := (target - walked) / seg
			return fromVec(r2.Add(a.vec(), r2.Scale(f, r2.Sub(c.vec(), a.vec()))))
		}
		walked += seg
	}
	return b[0]
}
