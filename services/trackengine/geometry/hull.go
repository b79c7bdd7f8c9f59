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

import (
	"math"
	"sort"
)

// initialNeighborCount is the starting k for the concave hull walk.
const initialNeighborCount = 3

// ComputeHull reduces a point cloud to an ordered boundary polygon tracing
// its outer silhouette.
//
// # Description
//
// Uses the k-nearest-neighbor concave hull approach: start at the lowest
// point and repeatedly walk to the nearest unvisited neighbor that keeps the
// boundary turning consistently without crossing an existing edge. When a
// given k cannot close the loop (or leaves points outside the polygon), k is
// increased and the walk restarts. k is capped at the cloud size; the cap is
// what turns "cannot close" into ErrDegenerateHull instead of an unbounded
// retry loop.
//
// # Inputs
//
//   - cloud: Candidate points from the sampler. Order is irrelevant.
//
// # Outputs
//
//   - BoundaryPolygon: Ordered, implicitly closed silhouette polygon.
//   - error: ErrDegenerateHull when fewer than 3 points survive
//     deduplication or no k up to len(cloud) closes the loop.
func ComputeHull(cloud PointCloud) (BoundaryPolygon, error) {
	points := dedupe(cloud)
	if len(points) < 3 {
		return nil, ErrDegenerateHull
	}
	if len(points) == 3 {
		return BoundaryPolygon(points), nil
	}

	for k := initialNeighborCount; k <= len(points); k++ {
		if hull, ok := walkHull(points, k); ok {
			return hull, nil
		}
	}
	return nil, ErrDegenerateHull
}

// dedupe removes points closer than DuplicateEpsilon to an earlier point.
func dedupe(cloud PointCloud) []Point {
	out := make([]Point, 0, len(cloud))
	for _, p := range cloud {
		dup := false
		for _, q := range out {
			if p.Distance(q) < DuplicateEpsilon {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// walkHull attempts one full boundary walk with a fixed neighbor count.
// Returns ok=false when the walk cannot close the loop or leaves stray
// points outside the resulting polygon.
func walkHull(points []Point, k int) (BoundaryPolygon, bool) {
	start := lowestPoint(points)

	hull := BoundaryPolygon{start}
	used := map[Point]bool{start: true}
	current := start
	// Fake previous point to the left of start so the first heading points
	// along the positive X axis.
	prev := Point{X: start.X - 1, Y: start.Y}

	// The walk visits each point at most once, plus the closing step.
	for step := 0; step <= len(points); step++ {
		// The start point becomes a legal target again once the hull is
		// long enough to form a polygon.
		if step >= 3 {
			delete(used, start)
		}

		candidates := nearestNeighbors(points, current, used, k)
		if len(candidates) == 0 {
			return nil, false
		}
		sortByTurnAngle(candidates, prev, current)

		next, ok := firstNonCrossing(candidates, current, hull, start)
		if !ok {
			return nil, false
		}

		if next == start {
			if allInside(points, hull, used) {
				return hull, true
			}
			return nil, false
		}

		hull = append(hull, next)
		used[next] = true
		prev, current = current, next
	}
	return nil, false
}

// lowestPoint returns the point with the smallest Y, breaking ties by X.
func lowestPoint(points []Point) Point {
	best := points[0]
	for _, p := range points[1:] {
		if p.Y < best.Y || (p.Y == best.Y && p.X < best.X) {
			best = p
		}
	}
	return best
}

// nearestNeighbors returns up to k unused points ordered by distance from p.
func nearestNeighbors(points []Point, p Point, used map[Point]bool, k int) []Point {
	candidates := make([]Point, 0, len(points))
	for _, q := range points {
		if !used[q] && q != p {
			candidates = append(candidates, q)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return p.DistanceSq(candidates[i]) < p.DistanceSq(candidates[j])
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// sortByTurnAngle orders candidates by the counter-clockwise turn relative
// to the incoming edge, largest first, so the walk hugs the outside of the
// cloud.
func sortByTurnAngle(candidates []Point, prev, current Point) {
	incoming := math.Atan2(current.Y-prev.Y, current.X-prev.X)
	turn := func(q Point) float64 {
		a := math.Atan2(q.Y-current.Y, q.X-current.X)
		d := a - incoming
		for d <= -math.Pi {
			d += 2 * math.Pi
		}
		for d > math.Pi {
			d -= 2 * math.Pi
		}
		return d
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return turn(candidates[i]) > turn(candidates[j])
	})
}

// firstNonCrossing returns the first candidate whose edge from current does
// not intersect any existing hull edge. Edges that share an endpoint with
// the new edge are skipped.
func firstNonCrossing(candidates []Point, current Point, hull BoundaryPolygon, start Point) (Point, bool) {
	for _, cand := range candidates {
		crosses := false
		for j := 0; j+1 < len(hull); j++ {
			a, b := hull[j], hull[j+1]
			if a == current || b == current || a == cand || b == cand {
				continue
			}
			if segmentsIntersect(current, cand, a, b) {
				crosses = true
				break
			}
		}
		if !crosses {
			return cand, true
		}
	}
	return Point{}, false
}

// allInside reports whether every point not on the hull lies inside it.
func allInside(points []Point, hull BoundaryPolygon, used map[Point]bool) bool {
	for _, p := range points {
		if used[p] || p == hull[0] {
			continue
		}
		if !pointInPolygon(p, hull) {
			return false
		}
	}
	return true
}

// pointInPolygon is a standard ray-cast containment test.
func pointInPolygon(p Point, poly BoundaryPolygon) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// segmentsIntersect reports whether the open segments (p1,p2) and (p3,p4)
// properly intersect.
func segmentsIntersect(p1, p2, p3, p4 Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return false
}

// cross returns the z component of (b-a) x (c-a).
func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
