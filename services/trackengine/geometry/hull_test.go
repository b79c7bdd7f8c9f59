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
	"errors"
	"testing"
)

func TestComputeHull_Triangle(t *testing.T) {
	cloud := PointCloud{
		{X: 0, Y: 0},
		{X: 10, Y: 0},
		{X: 5, Y: 8},
	}
	hull, err := ComputeHull(cloud)
	if err != nil {
		t.Fatalf("ComputeHull: %v", err)
	}
	if len(hull) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(hull))
	}
}

func TestComputeHull_TooFewPoints(t *testing.T) {
	cloud := PointCloud{
		{X: 0, Y: 0},
		{X: 10, Y: 0},
	}
	_, err := ComputeHull(cloud)
	if !errors.Is(err, ErrDegenerateHull) {
		t.Fatalf("expected ErrDegenerateHull, got %v", err)
	}
}

func TestComputeHull_DuplicatesCollapse(t *testing.T) {
	// Five points but only two distinct locations.
	cloud := PointCloud{
		{X: 0, Y: 0},
		{X: 0, Y: 0},
		{X: 10, Y: 0},
		{X: 10, Y: 0},
		{X: 10, Y: 0},
	}
	_, err := ComputeHull(cloud)
	if !errors.Is(err, ErrDegenerateHull) {
		t.Fatalf("expected ErrDegenerateHull, got %v", err)
	}
}

func TestComputeHull_SquareContainsAllPoints(t *testing.T) {
	cloud := PointCloud{
		{X: 0, Y: 0},
		{X: 100, Y: 0},
		{X: 100, Y: 100},
		{X: 0, Y: 100},
		{X: 50, Y: 50}, // interior point, must end up inside or on the hull
	}
	hull, err := ComputeHull(cloud)
	if err != nil {
		t.Fatalf("ComputeHull: %v", err)
	}
	if len(hull) < 3 {
		t.Fatalf("hull too small: %d vertices", len(hull))
	}
	for _, p := range cloud {
		if !onHull(hull, p) && !pointInPolygon(p, hull) {
			t.Errorf("point %+v is outside the hull", p)
		}
	}
}

func TestComputeHull_ClosedAndNonSelfIntersecting(t *testing.T) {
	cloud := PointCloud{
		{X: 12, Y: 7}, {X: 88, Y: 11}, {X: 95, Y: 60},
		{X: 70, Y: 92}, {X: 30, Y: 85}, {X: 5, Y: 50},
		{X: 40, Y: 40}, {X: 60, Y: 55},
	}
	hull, err := ComputeHull(cloud)
	if err != nil {
		t.Fatalf("ComputeHull: %v", err)
	}
	if selfIntersects(hull) {
		t.Fatal("hull self-intersects")
	}
	// First and last vertices must stay distinct; the closing edge is
	// implicit.
	if hull[0] == hull[len(hull)-1] {
		t.Fatal("hull repeats its first vertex")
	}
}

func TestComputeHull_DegenerateCollinear(t *testing.T) {
	cloud := PointCloud{
		{X: 0, Y: 0},
		{X: 1, Y: 0},
		{X: 2, Y: 0},
		{X: 3, Y: 0},
		{X: 4, Y: 0},
	}
	// All collinear points cannot form a polygon with interior; the walk
	// must terminate rather than loop forever.
	hull, err := ComputeHull(cloud)
	if err == nil && len(hull) < 3 {
		t.Fatalf("got a hull with %d vertices and no error", len(hull))
	}
}

func TestPointInPolygon(t *testing.T) {
	square := BoundaryPolygon{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
	}
	if !pointInPolygon(Point{X: 5, Y: 5}, square) {
		t.Error("center should be inside")
	}
	if pointInPolygon(Point{X: 15, Y: 5}, square) {
		t.Error("point right of the square should be outside")
	}
	if pointInPolygon(Point{X: -1, Y: -1}, square) {
		t.Error("point below-left should be outside")
	}
}

func TestSegmentsIntersect(t *testing.T) {
	// Proper crossing.
	if !segmentsIntersect(Point{X: 0, Y: 0}, Point{X: 10, Y: 10},
		Point{X: 0, Y: 10}, Point{X: 10, Y: 0}) {
		t.Error("crossing diagonals should intersect")
	}
	// Parallel, disjoint.
	if segmentsIntersect(Point{X: 0, Y: 0}, Point{X: 10, Y: 0},
		Point{X: 0, Y: 5}, Point{X: 10, Y: 5}) {
		t.Error("parallel segments should not intersect")
	}
	// Sharing only an endpoint is not a proper intersection.
	if segmentsIntersect(Point{X: 0, Y: 0}, Point{X: 10, Y: 0},
		Point{X: 10, Y: 0}, Point{X: 20, Y: 5}) {
		t.Error("endpoint-sharing segments should not count as crossing")
	}
}

// onHull reports whether p is one of the hull's vertices.
func onHull(hull BoundaryPolygon, p Point) bool {
	for _, v := range hull {
		if v == p {
			return true
		}
	}
	return false
}
