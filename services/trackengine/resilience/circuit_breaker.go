// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resilience provides the call-guarding components shared by the
// track engine's transport layer: a circuit breaker for expensive or
// fallible operations and a sliding-window rate limiter for connection
// admission.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the circuit breaker state.
type CircuitState int

const (
	// CircuitClosed is normal operation - calls pass through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means too many failures - calls are rejected.
	CircuitOpen
	// CircuitHalfOpen is testing recovery - a single probe is allowed.
	CircuitHalfOpen
)

// String returns a human-readable state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is consecutive failures before opening (default: 3).
	FailureThreshold int

	// SuccessThreshold is probe successes needed to close from half-open
	// (default: 1).
	SuccessThreshold int

	// OpenDuration is how long to stay open before testing recovery
	// (default: 30s).
	OpenDuration time.Duration

	// HalfOpenMax is max concurrent probes in half-open state (default: 1).
	HalfOpenMax int

	// OnStateChange is called on every transition. Invoked asynchronously
	// so a slow observer cannot block callers.
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenDuration:     30 * time.Second,
		HalfOpenMax:      1,
	}
}

// CircuitBreakerStats contains circuit breaker statistics for the admin
// surface.
type CircuitBreakerStats struct {
	State           string    `json:"state"`
	TotalCalls      int64     `json:"total_calls"`
	TotalFailures   int64     `json:"total_failures"`
	TotalRejections int64     `json:"total_rejections"`
	CurrentFailures int       `json:"current_failures"`
	Epoch           uint64    `json:"epoch"`
	LastStateChange time.Time `json:"last_state_change"`
}

// CircuitBreaker guards a downstream operation with atomic state
// transitions.
//
// # Description
//
// The breaker has three states:
//
//   - Closed: Normal operation, calls pass through.
//   - Open: After FailureThreshold consecutive failures, calls are rejected
//     with ErrCircuitOpen.
//   - Half-Open: After OpenDuration, a single probe tests recovery; its
//     outcome alone decides the next transition.
//
// Every admit/reject decision happens in one continuously held critical
// section, and so does every outcome update. The guarded call itself runs
// outside the lock; a per-call epoch snapshot lets the breaker discard
// outcomes of calls that started before any later state change (a trip,
// a recovery, or a manual Reset), so a slow stale caller can never re-close
// a breaker that transitioned after it started, and only the admitted probe
// can decide the half-open outcome.
//
// # Thread Safety
//
// Safe for concurrent use.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu              sync.Mutex
	state           CircuitState
	epoch           uint64
	failures        int
	successes       int
	halfOpenActive  int
	lastStateChange time.Time

	// Metrics
	totalCalls      int64
	totalFailures   int64
	totalRejections int64

	// now is replaceable in tests.
	now func() time.Time
}

// Permit is the admission token for one guarded call. Exactly one of
// Success or Failure must be called after the guarded operation finishes.
type Permit struct {
	cb    *CircuitBreaker
	epoch uint64
	probe bool
}

// NewCircuitBreaker creates a new circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.OpenDuration <= 0 {
		config.OpenDuration = 30 * time.Second
	}
	if config.HalfOpenMax <= 0 {
		config.HalfOpenMax = 1
	}
	cb := &CircuitBreaker{
		config: config,
		state:  CircuitClosed,
		now:    time.Now,
	}
	cb.lastStateChange = cb.now()
	return cb
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Acquire decides admit-or-reject under one critical section.
//
// # Outputs
//
//   - Permit: Valid only when err is nil; carries the epoch snapshot used
//     to apply this call's outcome.
//   - error: ErrCircuitOpen when the call is rejected.
func (cb *CircuitBreaker) Acquire() (Permit, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalCalls++

	switch cb.state {
	case CircuitClosed:
		return Permit{cb: cb, epoch: cb.epoch}, nil

	case CircuitOpen:
		if cb.now().Sub(cb.lastStateChange) > cb.config.OpenDuration {
			cb.transitionTo(CircuitHalfOpen)
			return cb.tryProbe()
		}
		cb.totalRejections++
		return Permit{}, ErrCircuitOpen

	case CircuitHalfOpen:
		return cb.tryProbe()
	}

	cb.totalRejections++
	return Permit{}, ErrCircuitOpen
}

// tryProbe admits at most HalfOpenMax concurrent probes. Must be called
// with the lock held.
func (cb *CircuitBreaker) tryProbe() (Permit, error) {
	if cb.halfOpenActive >= cb.config.HalfOpenMax {
		cb.totalRejections++
		return Permit{}, ErrCircuitOpen
	}
	cb.halfOpenActive++
	return Permit{cb: cb, epoch: cb.epoch, probe: true}, nil
}

// Success records the guarded call's success.
//
// Outcomes carrying a stale epoch (the breaker changed state or was Reset
// after the call was admitted) are discarded without touching the state.
func (p Permit) Success() {
	cb := p.cb
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if p.epoch != cb.epoch {
		return
	}
	if p.probe {
		cb.halfOpenActive--
	}

	cb.failures = 0
	if cb.state == CircuitHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionTo(CircuitClosed)
		}
	}
}

// Failure records the guarded call's failure. Stale-epoch outcomes are
// discarded like in Success.
func (p Permit) Failure() {
	cb := p.cb
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if p.epoch != cb.epoch {
		return
	}
	if p.probe {
		cb.halfOpenActive--
	}

	cb.totalFailures++
	cb.failures++
	cb.successes = 0

	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

// transitionTo changes state. Must be called with the lock held.
//
// Bumps the epoch so outcomes of calls admitted in the previous state are
// discarded: a slow closed-era caller must never act as the half-open probe.
func (cb *CircuitBreaker) transitionTo(newState CircuitState) {
	from := cb.state
	cb.state = newState
	cb.epoch++
	cb.lastStateChange = cb.now()
	cb.failures = 0
	cb.successes = 0
	if newState != CircuitHalfOpen {
		cb.halfOpenActive = 0
	}
	if cb.config.OnStateChange != nil && from != newState {
		go cb.config.OnStateChange(from, newState)
	}
}

// Execute wraps a function with circuit breaker protection.
//
// The admit decision and the outcome update each run in their own critical
// section; fn runs outside the lock so a slow call never serializes
// unrelated callers.
//
// # Outputs
//
//   - error: ctx.Err() if the context is already done, ErrCircuitOpen if
//     rejected, otherwise fn's error unchanged.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	permit, err := cb.Acquire()
	if err != nil {
		return err
	}

	if err := fn(); err != nil {
		permit.Failure()
		return err
	}
	permit.Success()
	return nil
}

// Stats returns circuit breaker statistics.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerStats{
		State:           cb.state.String(),
		TotalCalls:      cb.totalCalls,
		TotalFailures:   cb.totalFailures,
		TotalRejections: cb.totalRejections,
		CurrentFailures: cb.failures,
		Epoch:           cb.epoch,
		LastStateChange: cb.lastStateChange,
	}
}

// Reset forces the breaker to closed and bumps the epoch so outcomes of
// in-flight calls admitted before the reset are discarded.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	from := cb.state
	cb.state = CircuitClosed
	cb.epoch++
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenActive = 0
	cb.lastStateChange = cb.now()
	if cb.config.OnStateChange != nil && from != CircuitClosed {
		go cb.config.OnStateChange(from, CircuitClosed)
	}
}
