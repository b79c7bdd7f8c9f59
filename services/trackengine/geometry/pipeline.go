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

	"github.com/AleutianAI/trackengine/pkg/logging"
)

// Result is the outcome of one pipeline run.
type Result struct {
	// Descriptor is the finished track. Always valid.
	Descriptor TrackDescriptor

	// UsedFallback is true when the deterministic layout was substituted
	// for a failed random layout.
	UsedFallback bool

	// Attempts is how many random layouts were tried.
	Attempts int
}

// Pipeline orchestrates the generation stages.
//
// # Thread Safety
//
// Safe for concurrent use: every Generate call constructs its own Sampler,
// so no RNG state is shared between concurrent generations.
type Pipeline struct {
	log *logging.Logger
}

// NewPipeline constructs a pipeline. A nil logger falls back to the default
// stderr logger.
func NewPipeline(log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.Default()
	}
	return &Pipeline{log: log}
}

// Generate runs the full pipeline for one request.
//
// # Description
//
// Tries up to MaxGenerationAttempts random layouts. Generation errors
// (ErrInsufficientPoints, ErrDegenerateHull) and validation rejections are
// recovered locally: a degenerate layout triggers another bounded attempt,
// and exhausting the attempts switches to the deterministic fallback. The
// returned descriptor is therefore always valid and Generate never returns
// an error.
func (p *Pipeline) Generate(cfg TrackConfig) Result {
	requested := cfg
	cfg = cfg.Normalize()
	if requested.MinRadius > cfg.MinRadius {
		p.log.Warn("requested min radius exceeds what the bounds allow, clamping",
			"requested", requested.MinRadius, "effective", cfg.MinRadius)
	}
	if requested.NumPoints > cfg.NumPoints {
		p.log.Warn("requested point count exceeds the cap, clamping",
			"requested", requested.NumPoints, "effective", cfg.NumPoints)
	}

	for attempt := 1; attempt <= MaxGenerationAttempts; attempt++ {
		desc, err := p.generateOnce(cfg)
		if err == nil {
			return Result{Descriptor: desc, Attempts: attempt}
		}

		switch {
		case errors.Is(err, ErrInsufficientPoints):
			// Config-level problem; another random attempt cannot fix it.
			p.log.Warn("generation rejected config, using fallback layout",
				"num_points", cfg.NumPoints)
			return Result{Descriptor: FallbackLayout(cfg), UsedFallback: true, Attempts: attempt}
		case errors.Is(err, ErrDegenerateHull), errors.Is(err, ErrInvalidLayout):
			p.log.Debug("random layout rejected, retrying",
				"attempt", attempt, "reason", err.Error())
		default:
			// Unknown error kinds are not silently folded into the
			// fallback path; they indicate a bug in a stage.
			p.log.Error("unexpected generation error", "error", err.Error())
			return Result{Descriptor: FallbackLayout(cfg), UsedFallback: true, Attempts: attempt}
		}
	}

	p.log.Info("random generation exhausted attempts, using fallback layout",
		"attempts", MaxGenerationAttempts)
	return Result{Descriptor: FallbackLayout(cfg), UsedFallback: true, Attempts: MaxGenerationAttempts}
}

// generateOnce runs a single random attempt with a fresh sampler.
func (p *Pipeline) generateOnce(cfg TrackConfig) (TrackDescriptor, error) {
	cloud, err := NewSampler().SamplePoints(cfg)
	if err != nil {
		return TrackDescriptor{}, err
	}

	hull, err := ComputeHull(cloud)
	if err != nil {
		return TrackDescriptor{}, err
	}

	outer := Smooth(hull, cfg.SmoothingIterations)
	inner := OffsetInward(outer, cfg.TrackWidth)

	if err := Validate(outer, inner, cfg); err != nil {
		return TrackDescriptor{}, err
	}
	return finalize(outer, inner, cfg), nil
}
