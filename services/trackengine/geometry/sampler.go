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
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// Sampler produces bounded random point clouds from an instance-scoped
// random source.
//
// # Description
//
// Each Sampler owns its own *rand.Rand seeded from crypto/rand at
// construction. There is deliberately no package-level source and no way to
// supply a fixed seed from outside the package: two freshly constructed
// samplers must produce different clouds, which the streaming product relies
// on for track variety and which closes the predictability gap of a shared
// global generator.
//
// # Thread Safety
//
// A Sampler is NOT safe for concurrent use; give each concurrent generation
// its own instance.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler constructs a sampler with a non-deterministic seed.
func NewSampler() *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(entropySeed()))}
}

// entropySeed draws a 64-bit seed from the OS entropy pool, falling back to
// wall-clock nanoseconds if the pool is unavailable.
func entropySeed() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}

// SamplePoints draws cfg.NumPoints points uniformly from the sampling
// rectangle, inset by SamplingMarginFraction on every side so the later
// offset stage has room to work.
//
// # Inputs
//
//   - cfg: Normalized track configuration.
//
// # Outputs
//
//   - PointCloud: cfg.NumPoints points in insertion order.
//   - error: ErrInsufficientPoints when cfg.NumPoints < MinControlPoints.
func (s *Sampler) SamplePoints(cfg TrackConfig) (PointCloud, error) {
	if cfg.NumPoints < MinControlPoints {
		return nil, ErrInsufficientPoints
	}

	marginX := cfg.Bounds.Width * SamplingMarginFraction
	marginY := cfg.Bounds.Height * SamplingMarginFraction
	spanX := cfg.Bounds.Width - 2*marginX
	spanY := cfg.Bounds.Height - 2*marginY

	cloud := make(PointCloud, 0, cfg.NumPoints)
	for i := 0; i < cfg.NumPoints; i++ {
		cloud = append(cloud, Point{
			X: marginX + s.rng.Float64()*spanX,
			Y: marginY + s.rng.Float64()*spanY,
		})
	}
	return cloud, nil
}
