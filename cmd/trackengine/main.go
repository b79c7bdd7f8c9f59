// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command trackengine runs the procedural race track generation service.
//
// # Usage
//
//	# Build
//	go build -o trackengine ./cmd/trackengine
//
//	# Run the HTTP/websocket server
//	./trackengine serve --config config.yaml
//
//	# Generate a single track layout to stdout
//	./trackengine generate --num-points 16 --track-width 60
//
// # Environment Variables
//
//   - TRACKENGINE_LISTEN_ADDR: overrides the configured listen address
//   - TRACKENGINE_LOG_LEVEL: overrides the configured log level
//   - TRACKENGINE_LOG_DIR: enables file logging to the given directory
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector; tracing is
//     disabled when unset
package main

import (
	"log"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "trackengine",
	Short: "Procedural race track generation engine",
	Long: `Trackengine generates closed-loop race track layouts on demand and
streams driving telemetry over websockets.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to a YAML config file (optional)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
