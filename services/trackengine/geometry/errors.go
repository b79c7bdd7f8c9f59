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

import "errors"

// Generation errors are recovered inside the pipeline by falling back to the
// deterministic layout; they never cross the service boundary. They are still
// distinct sentinels so the recovery path can match the specific kind instead
// of catching everything.
var (
	// ErrInsufficientPoints is returned by the sampler when fewer than
	// MinControlPoints are requested.
	ErrInsufficientPoints = errors.New("geometry: fewer control points than required to form a loop")

	// ErrDegenerateHull is returned by hull extraction when fewer than 3
	// points survive deduplication, or when no neighbor count up to the
	// full point set closes the loop.
	ErrDegenerateHull = errors.New("geometry: point cloud does not admit a closed hull")

	// ErrInvalidLayout is returned by validation when the random layout
	// violates the turn-radius or intersection invariants. Like the other
	// generation errors it triggers the fallback layout.
	ErrInvalidLayout = errors.New("geometry: generated layout violates track invariants")
)
