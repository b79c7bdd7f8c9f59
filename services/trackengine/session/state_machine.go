// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session implements the lifecycle of one streaming session: an
// explicit connection state machine plus the frame loop that drives a
// websocket transport.
package session

import (
	"fmt"
	"time"
)

// State is the lifecycle state of one streaming session.
type State int

const (
	// StateConnecting is the initial state while the handshake runs.
	StateConnecting State = iota
	// StateConnected means the handshake completed; no frames flow yet.
	StateConnected
	// StateStreaming means periodic frames are being emitted.
	StateStreaming
	// StatePaused suspends frame emission without tearing down.
	StatePaused
	// StateDisconnecting means teardown has begun.
	StateDisconnecting
	// StateDisconnected is terminal.
	StateDisconnected
)

// String returns the wire-level state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	case StatePaused:
		return "paused"
	case StateDisconnecting:
		return "disconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// InvalidTransitionError reports a rejected transition attempt. The session
// survives it; the command that caused it is rejected and the state is left
// unchanged.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid session transition from %s to %s", e.From, e.To)
}

// validTransitions is the complete adjacency table. Anything missing here
// is rejected.
var validTransitions = map[State][]State{
	StateConnecting:    {StateConnected, StateDisconnected},
	StateConnected:     {StateStreaming, StateDisconnecting},
	StateStreaming:     {StatePaused, StateDisconnecting},
	StatePaused:        {StateStreaming, StateDisconnecting},
	StateDisconnecting: {StateDisconnected},
	StateDisconnected:  {},
}

// DefaultIdleTimeout is how long a session may go without an inbound
// message in CONNECTED, STREAMING, or PAUSED before it is torn down.
const DefaultIdleTimeout = 30 * time.Second

// Machine is the guarded state machine for one session.
//
// # Thread Safety
//
// A Machine is owned by exactly one session goroutine and needs no lock;
// do not share instances.
type Machine struct {
	state       State
	lastInbound time.Time
}

// NewMachine creates a machine in StateConnecting with the inbound clock
// started.
func NewMachine() *Machine {
	return &Machine{state: StateConnecting, lastInbound: time.Now()}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Transition moves to the target state if the adjacency table allows it,
// otherwise returns *InvalidTransitionError and leaves the state unchanged.
func (m *Machine) Transition(to State) error {
	for _, allowed := range validTransitions[m.state] {
		if allowed == to {
			m.state = to
			return nil
		}
	}
	return &InvalidTransitionError{From: m.state, To: to}
}

// Terminal reports whether the machine reached StateDisconnected.
func (m *Machine) Terminal() bool {
	return m.state == StateDisconnected
}

// Touch records an inbound message for idle tracking.
func (m *Machine) Touch() {
	m.lastInbound = time.Now()
}

// IdleExceeded reports whether the idle timeout has elapsed since the last
// inbound message. Only CONNECTED, STREAMING, and PAUSED accumulate idle
// time.
func (m *Machine) IdleExceeded(timeout time.Duration) bool {
	switch m.state {
	case StateConnected, StateStreaming, StatePaused:
		return time.Since(m.lastInbound) > timeout
	default:
		return false
	}
}
