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
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errDownstream = errors.New("downstream failed")

// newTestBreaker returns a breaker with a controllable clock.
func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *time.Time) {
	cb := NewCircuitBreaker(cfg)
	clock := time.Now()
	cb.now = func() time.Time { return clock }
	cb.lastStateChange = clock
	return cb, &clock
}

func failN(t *testing.T, cb *CircuitBreaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := cb.Execute(context.Background(), func() error { return errDownstream })
		if !errors.Is(err, errDownstream) {
			t.Fatalf("failure %d: expected downstream error, got %v", i, err)
		}
	}
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	if cb.State() != CircuitClosed {
		t.Fatalf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	failN(t, cb, 2)
	if cb.State() != CircuitClosed {
		t.Fatalf("opened one failure early: %s", cb.State())
	}
	failN(t, cb, 1)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open after 3 failures, got %s", cb.State())
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	failN(t, cb, 2)
	if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// The two earlier failures no longer count toward the threshold.
	failN(t, cb, 2)
	if cb.State() != CircuitClosed {
		t.Fatalf("non-consecutive failures opened the breaker: %s", cb.State())
	}
}

func TestCircuitBreaker_RejectsWithoutInvoking(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenDuration: time.Minute})
	failN(t, cb, 1)

	invoked := false
	err := cb.Execute(context.Background(), func() error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if invoked {
		t.Fatal("guarded function ran while the breaker was open")
	}
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenDuration: time.Minute})
	failN(t, cb, 1)

	*clock = clock.Add(61 * time.Second)

	// Probe succeeds: breaker closes.
	if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("probe rejected: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("expected closed after successful probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenDuration: time.Minute})
	failN(t, cb, 1)

	*clock = clock.Add(61 * time.Second)
	failN(t, cb, 1)

	if cb.State() != CircuitOpen {
		t.Fatalf("expected open after failed probe, got %s", cb.State())
	}
	// And the open interval restarts from the probe failure.
	err := cb.Execute(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected renewed rejection, got %v", err)
	}
}

func TestCircuitBreaker_SingleProbeInHalfOpen(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenDuration: time.Minute})
	failN(t, cb, 1)
	*clock = clock.Add(61 * time.Second)

	// First Acquire becomes the probe and holds its permit.
	probe, err := cb.Acquire()
	if err != nil {
		t.Fatalf("probe rejected: %v", err)
	}
	// Any other caller is rejected while the probe is outstanding.
	if _, err := cb.Acquire(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second caller admitted alongside the probe: %v", err)
	}
	probe.Success()
	if cb.State() != CircuitClosed {
		t.Fatalf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_ConcurrentHalfOpenAdmitsOne(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenDuration: time.Minute})
	failN(t, cb, 1)
	*clock = clock.Add(61 * time.Second)

	const callers = 16
	var admitted int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cb.Acquire(); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if admitted != 1 {
		t.Fatalf("half-open admitted %d concurrent probes, expected 1", admitted)
	}
}

func TestCircuitBreaker_StaleSuccessIgnoredDuringHalfOpen(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3, OpenDuration: time.Minute})

	// A slow call is admitted while the breaker is still closed.
	slow, err := cb.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Meanwhile the breaker trips and enters half-open with a probe in
	// flight.
	failN(t, cb, 3)
	*clock = clock.Add(61 * time.Second)
	probe, err := cb.Acquire()
	if err != nil {
		t.Fatalf("probe rejected: %v", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("setup failed: %s", cb.State())
	}

	// The closed-era success arrives late. It must not stand in for the
	// probe: only the probe's outcome decides the transition.
	slow.Success()
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("stale closed-era success moved a half-open breaker to %s", cb.State())
	}

	probe.Failure()
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open after failed probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_StaleFailureKeepsProbeAccounting(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3, OpenDuration: time.Minute})

	slow, err := cb.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	failN(t, cb, 3)
	*clock = clock.Add(61 * time.Second)
	probe, err := cb.Acquire()
	if err != nil {
		t.Fatalf("probe rejected: %v", err)
	}

	// A stale closed-era failure must not force the breaker open under
	// the probe, nor disturb the probe slot accounting.
	slow.Failure()
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("stale closed-era failure moved a half-open breaker to %s", cb.State())
	}

	probe.Success()
	if cb.State() != CircuitClosed {
		t.Fatalf("expected closed after successful probe, got %s", cb.State())
	}

	// The next open/half-open cycle still admits exactly one probe.
	failN(t, cb, 3)
	*clock = clock.Add(61 * time.Second)
	if _, err := cb.Acquire(); err != nil {
		t.Fatalf("probe rejected: %v", err)
	}
	if _, err := cb.Acquire(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second caller admitted alongside the probe: %v", err)
	}
}

func TestCircuitBreaker_ExecuteSkipsCallWhenContextDone(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	invoked := false
	err := cb.Execute(ctx, func() error {
		invoked = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if invoked {
		t.Fatal("guarded function ran under a cancelled context")
	}
	if got := cb.Stats().TotalCalls; got != 0 {
		t.Fatalf("cancelled call was counted: %d", got)
	}
}

func TestCircuitBreaker_ResetDiscardsStaleOutcome(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1})

	// A call is admitted, then the breaker is reset while the call is
	// still in flight.
	permit, err := cb.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	cb.Reset()

	// The stale failure must not trip the fresh breaker.
	permit.Failure()
	if cb.State() != CircuitClosed {
		t.Fatalf("stale outcome tripped a reset breaker: %s", cb.State())
	}
	if got := cb.Stats().CurrentFailures; got != 0 {
		t.Fatalf("stale failure was counted: %d", got)
	}
}

func TestCircuitBreaker_ResetClosesAndBumpsEpoch(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenDuration: time.Hour})
	failN(t, cb, 1)
	if cb.State() != CircuitOpen {
		t.Fatalf("setup failed: %s", cb.State())
	}

	before := cb.Stats().Epoch
	cb.Reset()
	if cb.State() != CircuitClosed {
		t.Fatalf("expected closed after reset, got %s", cb.State())
	}
	if after := cb.Stats().Epoch; after != before+1 {
		t.Fatalf("epoch %d -> %d, expected an increment", before, after)
	}
}

func TestCircuitBreaker_StatsCounts(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 2, OpenDuration: time.Hour})

	_ = cb.Execute(context.Background(), func() error { return nil })
	failN(t, cb, 2)
	_ = cb.Execute(context.Background(), func() error { return nil }) // rejected

	stats := cb.Stats()
	if stats.TotalCalls != 4 {
		t.Errorf("TotalCalls = %d, expected 4", stats.TotalCalls)
	}
	if stats.TotalFailures != 2 {
		t.Errorf("TotalFailures = %d, expected 2", stats.TotalFailures)
	}
	if stats.TotalRejections != 1 {
		t.Errorf("TotalRejections = %d, expected 1", stats.TotalRejections)
	}
	if stats.State != CircuitOpen.String() {
		t.Errorf("State = %q, expected open", stats.State)
	}
}

func TestCircuitBreaker_OnStateChangeNotified(t *testing.T) {
	transitions := make(chan [2]CircuitState, 8)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		OpenDuration:     time.Hour,
		OnStateChange: func(from, to CircuitState) {
			transitions <- [2]CircuitState{from, to}
		},
	})

	failN(t, cb, 1)

	select {
	case tr := <-transitions:
		if tr[0] != CircuitClosed || tr[1] != CircuitOpen {
			t.Fatalf("unexpected transition %s -> %s", tr[0], tr[1])
		}
	case <-time.After(time.Second):
		t.Fatal("no transition notification")
	}
}
