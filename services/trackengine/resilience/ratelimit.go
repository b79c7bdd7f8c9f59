// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a client exceeds its admission window.
var ErrRateLimited = errors.New("connection attempts exceed rate limit")

// Default admission limits for new streaming sessions.
const (
	DefaultAdmissionLimit  = 5
	DefaultAdmissionWindow = 60 * time.Second
)

// AdmissionLimiter enforces a per-client sliding window over connection
// attempts.
//
// # Description
//
// This is a pre-admission gate: it runs before any session state machine is
// created. Each client identity keeps the timestamps of its admitted
// attempts inside the window; entries older than the window are pruned
// lazily on each check. Exactly Limit admissions fit in one window - the
// semantics are a strict sliding window, not a token bucket, which is why
// this is not built on a refill-based limiter.
//
// # Thread Safety
//
// Safe for concurrent use; attempts from the same client may race and are
// serialized by the internal lock.
type AdmissionLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	attempts map[string][]time.Time

	// now is replaceable in tests.
	now func() time.Time
}

// NewAdmissionLimiter creates a limiter allowing limit admissions per client
// per window. Non-positive arguments fall back to the defaults.
func NewAdmissionLimiter(limit int, window time.Duration) *AdmissionLimiter {
	if limit <= 0 {
		limit = DefaultAdmissionLimit
	}
	if window <= 0 {
		window = DefaultAdmissionWindow
	}
	return &AdmissionLimiter{
		limit:    limit,
		window:   window,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Admit records and admits one connection attempt for the client, or
// rejects it with ErrRateLimited when the window is full.
func (l *AdmissionLimiter) Admit(clientID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := pruneOlder(l.attempts[clientID], now.Add(-l.window))

	if len(recent) >= l.limit {
		l.attempts[clientID] = recent
		return ErrRateLimited
	}

	l.attempts[clientID] = append(recent, now)
	return nil
}

// Forget drops all recorded attempts for a client. Used when a client
// identity is retired so the map does not grow without bound.
func (l *AdmissionLimiter) Forget(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, clientID)
}

// pruneOlder drops timestamps at or before the cutoff, keeping order.
func pruneOlder(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	return append([]time.Time(nil), stamps[idx:]...)
}
