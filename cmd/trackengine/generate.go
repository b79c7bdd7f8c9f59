// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/trackengine/pkg/logging"
	"github.com/AleutianAI/trackengine/services/trackengine/datatypes"
	"github.com/AleutianAI/trackengine/services/trackengine/geometry"
)

var (
	genNumPoints  int
	genTrackWidth float64
	genMinRadius  float64
	genWidth      float64
	genHeight     float64
	genSmoothing  int

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Generate a single track layout and print it as JSON",
		Long: `Runs the generation pipeline once with the given parameters and
writes the resulting track descriptor to stdout. Useful for inspecting
layouts without standing up the server.`,
		RunE: runGenerate,
	}
)

func init() {
	generateCmd.Flags().IntVar(&genNumPoints, "num-points", geometry.DefaultNumPoints,
		"number of random control points to sample")
	generateCmd.Flags().Float64Var(&genTrackWidth, "track-width", geometry.DefaultTrackWidth,
		"corridor width between outer and inner boundaries")
	generateCmd.Flags().Float64Var(&genMinRadius, "min-radius", geometry.DefaultMinRadius,
		"minimum turn radius accepted during validation")
	generateCmd.Flags().Float64Var(&genWidth, "width", geometry.DefaultBoundsWidth,
		"sampling region width")
	generateCmd.Flags().Float64Var(&genHeight, "height", geometry.DefaultBoundsHeight,
		"sampling region height")
	generateCmd.Flags().IntVar(&genSmoothing, "smoothing", geometry.DefaultSmoothingIterations,
		"corner smoothing passes (0 disables smoothing)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	log := logging.New(logging.Config{
		Level:   logging.LevelWarn,
		Service: "trackengine",
	})
	defer log.Close()

	pipeline := geometry.NewPipeline(log)
	result := pipeline.Generate(geometry.TrackConfig{
		NumPoints:           genNumPoints,
		TrackWidth:          genTrackWidth,
		MinRadius:           genMinRadius,
		Bounds:              geometry.Bounds{Width: genWidth, Height: genHeight},
		SmoothingIterations: genSmoothing,
	})

	resp := datatypes.NewTrackDescriptorResponse(result.Descriptor)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
