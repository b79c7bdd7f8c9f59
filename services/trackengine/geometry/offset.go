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

// OffsetInward derives the inner track boundary parallel to the outer one.
//
// # Description
//
// Every vertex is projected inward along the normalized average of its two
// adjacent edge normals. Near a sharp concave corner the naive projection
// can push neighboring vertices past each other, flipping the local edge
// direction; those vertices get their offset distance halved and are
// re-projected, for at most MaxOffsetRepairPasses rounds. The result is a
// locally narrower corridor instead of a self-crossing polygon.
//
// # Inputs
//
//   - outer: Smoothed outer boundary, at least 3 vertices.
//   - width: Corridor width, > 0.
//
// # Outputs
//
//   - BoundaryPolygon: Inner boundary with the same vertex count as outer
//     (minus any vertices that collapsed onto a neighbor during repair).
func OffsetInward(outer BoundaryPolygon, width float64) BoundaryPolygon {
	n := len(outer)
	if n < 3 {
		return nil
	}

	normals := inwardVertexNormals(outer)

	// Per-vertex offset distances; repair passes shrink these locally.
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = width
	}

	inner := project(outer, normals, dist)
	for pass := 0; pass < MaxOffsetRepairPasses; pass++ {
		flipped := flippedEdges(outer, inner)
		if len(flipped) == 0 {
			break
		}
		for _, i := range flipped {
			dist[i] /= 2
			dist[(i+1)%n] /= 2
		}
		inner = project(outer, normals, dist)
	}

	return dropCollapsed(inner)
}

// inwardVertexNormals returns the unit inward normal at each vertex,
// averaged from the two adjacent edge normals. Winding is detected from the
// signed area so the normals point into the polygon regardless of hull
// orientation.
func inwardVertexNormals(poly BoundaryPolygon) []r2.Vec {
	n := len(poly)
	sign := 1.0
	if poly.SignedArea() < 0 {
		sign = -1.0
	}

	edgeNormal := func(i int) r2.Vec {
		a, b := poly[i], poly[(i+1)%n]
		e := r2.Sub(b.vec(), a.vec())
		// Rotate the edge 90 degrees; sign selects the inward side.
		nv := r2.Vec{X: -sign * e.Y, Y: sign * e.X}
		if l := r2.Norm(nv); l > 0 {
			return r2.Scale(1/l, nv)
		}
		return r2.Vec{}
	}

	normals := make([]r2.Vec, n)
	for i := 0; i < n; i++ {
		avg := r2.Add(edgeNormal((i-1+n)%n), edgeNormal(i))
		if l := r2.Norm(avg); l > 0 {
			normals[i] = r2.Scale(1/l, avg)
		} else {
			// Degenerate 180-degree fold: fall back to one edge normal.
			normals[i] = edgeNormal(i)
		}
	}
	return normals
}

// project applies the per-vertex offsets along the precomputed normals.
func project(outer BoundaryPolygon, normals []r2.Vec, dist []float64) BoundaryPolygon {
	inner := make(BoundaryPolygon, len(outer))
	for i, p := range outer {
		inner[i] = fromVec(r2.Add(p.vec(), r2.Scale(dist[i], normals[i])))
	}
	return inner
}

// flippedEdges returns the indices of inner edges whose direction reversed
// relative to the corresponding outer edge, which happens exactly when the
// offset crossed the adjacent offset segment.
func flippedEdges(outer, inner BoundaryPolygon) []int {
	n := len(outer)
	var flipped []int
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		oe := r2.Sub(outer[j].vec(), outer[i].vec())
		ie := r2.Sub(inner[j].vec(), inner[i].vec())
		if r2.Dot(oe, ie) <= 0 {
			flipped = append(flipped, i)
		}
	}
	return flipped
}

// dropCollapsed removes consecutive duplicates produced when repair pulls
// two vertices onto the same spot.
func dropCollapsed(poly BoundaryPolygon) BoundaryPolygon {
	out := make(BoundaryPolygon, 0, len(poly))
	for _, p := range poly {
		if len(out) > 0 && p.Distance(out[len(out)-1]) < DuplicateEpsilon {
			continue
		}
		out = append(out, p)
	}
	// The implicit closing edge must not be degenerate either.
	for len(out) > 1 && out[0].Distance(out[len(out)-1]) < DuplicateEpsilon {
		out = out[:len(out)-1]
	}
	return out
}
