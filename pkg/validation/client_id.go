// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for values that cross the
// service boundary and end up in log lines, metric labels, or map keys.
package validation

import (
	"fmt"
	"regexp"
)

// clientIDPattern matches client identities supplied via header. Allows
// hostnames, UUIDs, and opaque tokens; bounds the length so a hostile
// header cannot bloat the rate limiter's key space.
var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]{0,127}$`)

// ValidateClientID validates a client identity used as a rate-limit key.
//
// Valid identities:
//   - 1-128 characters
//   - Letters, digits, dots, underscores, colons, hyphens
//   - Must start with a letter or digit
//
// Returns an error if the identity is invalid.
//
// Example:
//
//	if err := validation.ValidateClientID(clientID); err != nil {
//	    return fmt.Errorf("invalid client id: %w", err)
//	}
func ValidateClientID(id string) error {
	if id == "" {
		return fmt.Errorf("client id cannot be empty")
	}
	if !clientIDPattern.MatchString(id) {
		return fmt.Errorf("invalid client id format (must be 1-128 chars: letters, digits, '.', '_', ':', '-')")
	}
	return nil
}
