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
	"math"
	"testing"
)

func validTestLayout() (BoundaryPolygon, BoundaryPolygon, TrackConfig) {
	cfg := DefaultTrackConfig()
	outer := regularPolygon(500, 400, 300, 48)
	inner := regularPolygon(500, 400, 300-cfg.TrackWidth, 48)
	return outer, inner, cfg
}

func TestValidate_AcceptsRingLayout(t *testing.T) {
	outer, inner, cfg := validTestLayout()
	if err := Validate(outer, inner, cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_RejectsTooFewVertices(t *testing.T) {
	_, inner, cfg := validTestLayout()
	outer := BoundaryPolygon{{X: 0, Y: 0}, {X: 1, Y: 1}}
	if err := Validate(outer, inner, cfg); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout, got %v", err)
	}
}

func TestValidate_RejectsTightTurn(t *testing.T) {
	cfg := DefaultTrackConfig()
	cfg.MinRadius = 1000 // stricter than the 300-radius ring can satisfy
	outer := regularPolygon(500, 400, 300, 48)
	inner := regularPolygon(500, 400, 240, 48)
	if err := Validate(outer, inner, cfg); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout, got %v", err)
	}
}

func TestValidate_RejectsSelfIntersection(t *testing.T) {
	_, inner, cfg := validTestLayout()
	cfg.MinRadius = 0
	// Bowtie: edges (0-1) and (2-3) cross.
	outer := BoundaryPolygon{
		{X: 0, Y: 0}, {X: 100, Y: 100}, {X: 100, Y: 0}, {X: 0, Y: 100},
	}
	if err := Validate(outer, inner, cfg); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout, got %v", err)
	}
}

func TestValidate_RejectsCrossingBoundaries(t *testing.T) {
	cfg := DefaultTrackConfig()
	cfg.MinRadius = 0
	outer := regularPolygon(500, 400, 300, 48)
	// "Inner" boundary pokes through; the rings overlap.
	inner := regularPolygon(700, 400, 300, 48)
	if err := Validate(outer, inner, cfg); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout, got %v", err)
	}
}

func TestValidateAndFinalize_FallsBackOnBadLayout(t *testing.T) {
	cfg := DefaultTrackConfig()
	bad := BoundaryPolygon{{X: 0, Y: 0}, {X: 1, Y: 1}}
	desc := ValidateAndFinalize(bad, bad, cfg)
	// Must still be a usable descriptor.
	if len(desc.Outer) < 3 || len(desc.Inner) < 3 {
		t.Fatal("fallback descriptor has degenerate boundaries")
	}
	if err := Validate(desc.Outer, desc.Inner, cfg); err != nil {
		t.Fatalf("fallback layout fails validation: %v", err)
	}
}

func TestValidateAndFinalize_PreservesGoodLayout(t *testing.T) {
	outer, inner, cfg := validTestLayout()
	desc := ValidateAndFinalize(outer, inner, cfg)
	if len(desc.Outer) != len(outer) {
		t.Fatal("good layout was replaced by the fallback")
	}
	if desc.TrackWidth != cfg.TrackWidth {
		t.Errorf("track width %v, expected %v", desc.TrackWidth, cfg.TrackWidth)
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		t.Errorf("bad extents: %v x %v", desc.Width, desc.Height)
	}
}

func TestMinTurnRadius_RegularPolygonApproximatesCircle(t *testing.T) {
	const radius = 250.0
	poly := regularPolygon(0, 0, radius, 96)
	r := MinTurnRadius(poly)
	if math.Abs(r-radius) > radius*0.01 {
		t.Fatalf("estimated radius %v, expected ~%v", r, radius)
	}
}

func TestMinTurnRadius_StraightRunsIgnored(t *testing.T) {
	// A long rectangle's straight edges contribute no finite radius except
	// at the corners.
	rect := BoundaryPolygon{
		{X: 0, Y: 0}, {X: 500, Y: 0}, {X: 1000, Y: 0},
		{X: 1000, Y: 100}, {X: 0, Y: 100},
	}
	r := MinTurnRadius(rect)
	if math.IsInf(r, 1) {
		t.Fatal("rectangle corners should produce a finite radius")
	}
}

func TestCorridorStart_MidwayBetweenBoundaries(t *testing.T) {
	outer, inner, _ := validTestLayout()
	start := corridorStart(outer, inner)
	dOuter := start.Distance(outer[0])
	dInner := start.Distance(inner[0])
	if math.Abs(dOuter-dInner) > 1e-9 {
		t.Fatalf("start not centered: %v from outer, %v from inner", dOuter, dInner)
	}
}
