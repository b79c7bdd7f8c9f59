// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/trackengine/pkg/logging"
	"github.com/AleutianAI/trackengine/services/trackengine/datatypes"
	"github.com/AleutianAI/trackengine/services/trackengine/geometry"
	"github.com/AleutianAI/trackengine/services/trackengine/observability"
)

// Conn is the transport surface a session drives. *websocket.Conn from
// gorilla/websocket satisfies it; tests use an in-memory fake.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Streaming defaults.
const (
	// DefaultFrameInterval is the period between data frames while
	// streaming.
	DefaultFrameInterval = 100 * time.Millisecond

	// DefaultLapDuration is how long one simulated lap around the track
	// takes at the default frame rate.
	DefaultLapDuration = 10 * time.Second

	// DefaultCommandRate and DefaultCommandBurst throttle inbound
	// commands so a chatty client cannot starve the frame loop.
	DefaultCommandRate  = rate.Limit(20)
	DefaultCommandBurst = 10
)

// Options tune one session. Zero values take the defaults above.
type Options struct {
	FrameInterval time.Duration
	IdleTimeout   time.Duration
	LapDuration   time.Duration
	CommandRate   rate.Limit
	CommandBurst  int
}

func (o Options) withDefaults() Options {
	if o.FrameInterval <= 0 {
		o.FrameInterval = DefaultFrameInterval
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.LapDuration <= 0 {
		o.LapDuration = DefaultLapDuration
	}
	if o.CommandRate <= 0 {
		o.CommandRate = DefaultCommandRate
	}
	if o.CommandBurst <= 0 {
		o.CommandBurst = DefaultCommandBurst
	}
	return o
}

// Session owns one streaming connection: the state machine, the inbound
// command throttle, and the periodic frame loop.
//
// # Thread Safety
//
// All session state is confined to the Run goroutine; a Session must not be
// shared.
type Session struct {
	id       string
	machine  *Machine
	conn     Conn
	pipeline *geometry.Pipeline
	log      *logging.Logger
	opts     Options

	limiter *rate.Limiter

	cfg      geometry.TrackConfig
	track    geometry.TrackDescriptor
	hasTrack bool

	seq      uint64
	progress float64
}

// New creates a session over an accepted transport. The caller has already
// passed the admission rate limit; the session starts in StateConnecting
// and waits for the client's connect command.
func New(conn Conn, pipeline *geometry.Pipeline, log *logging.Logger, opts Options) *Session {
	opts = opts.withDefaults()
	id := uuid.New().String()
	return &Session{
		id:       id,
		machine:  NewMachine(),
		conn:     conn,
		pipeline: pipeline,
		log:      log.With("session_id", id),
		opts:     opts,
		limiter:  rate.NewLimiter(opts.CommandRate, opts.CommandBurst),
		cfg:      geometry.DefaultTrackConfig(),
	}
}

// ID returns the session identifier sent to the client.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state. Only meaningful before Run
// starts or after it returns; Run owns the machine in between.
func (s *Session) State() State {
	return s.machine.State()
}

// Run drives the session until it reaches StateDisconnected and returns
// the disconnect reason.
//
// # Description
//
// A reader goroutine feeds inbound commands into the select loop; the loop
// multiplexes commands, the frame ticker, idle detection, and context
// cancellation. Every exit path - stop command, idle timeout, transport
// error, context cancellation - funnels through finish, which walks the
// state machine to DISCONNECTED and closes the transport, so the frame
// loop can never outlive the connection. Cancellation takes effect within
// one frame interval.
func (s *Session) Run(ctx context.Context) string {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the conn is what unblocks a reader goroutine stuck in
	// ReadJSON, so it must happen on every exit path.
	defer s.conn.Close()

	cmds := make(chan datatypes.StreamCommand)
	readErr := make(chan error, 1)
	go s.readLoop(ctx, cmds, readErr)

	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()

	s.log.Info("session started", "state", s.machine.State().String())

	reason := datatypes.DisconnectReasonStop
	for !s.machine.Terminal() {
		select {
		case <-ctx.Done():
			reason = datatypes.DisconnectReasonShutdown
			s.finish(reason)

		case err := <-readErr:
			s.log.Info("transport closed", "error", err.Error())
			reason = datatypes.DisconnectReasonTransport
			s.finish(reason)

		case cmd := <-cmds:
			s.machine.Touch()
			if done, r := s.handleCommand(cmd); done {
				reason = r
			}

		case <-ticker.C:
			if s.machine.IdleExceeded(s.opts.IdleTimeout) {
				s.log.Info("idle timeout exceeded")
				reason = datatypes.DisconnectReasonIdle
				s.finish(reason)
				continue
			}
			if s.machine.State() == StateStreaming {
				s.emitFrame()
			}
		}
	}

	s.log.Info("session finished", "reason", reason)
	return reason
}

// readLoop pumps inbound commands until the transport errors or the
// context is cancelled.
func (s *Session) readLoop(ctx context.Context, cmds chan<- datatypes.StreamCommand, readErr chan<- error) {
	for {
		var cmd datatypes.StreamCommand
		if err := s.conn.ReadJSON(&cmd); err != nil {
			select {
			case readErr <- err:
			case <-ctx.Done():
			}
			return
		}
		select {
		case cmds <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

// handleCommand applies one command. Returns done=true with a disconnect
// reason when the command terminated the session.
func (s *Session) handleCommand(cmd datatypes.StreamCommand) (bool, string) {
	if !s.limiter.Allow() {
		s.reject(cmd.Command, datatypes.RejectCommandRate, nil)
		return false, ""
	}

	switch cmd.Command {
	case datatypes.CommandConnect:
		if s.attempt(cmd.Command, StateConnected) {
			s.regenerate()
			s.ackWithTrack(cmd.Command)
		}

	case datatypes.CommandStart:
		s.attemptAck(cmd.Command, StateStreaming)

	case datatypes.CommandPause:
		s.attemptAck(cmd.Command, StatePaused)

	case datatypes.CommandResume:
		s.attemptAck(cmd.Command, StateStreaming)

	case datatypes.CommandConfigure:
		s.configure(cmd)

	case datatypes.CommandStop, datatypes.CommandDisconnect:
		if s.attempt(cmd.Command, StateDisconnecting) {
			s.ack(cmd.Command)
			s.finish(datatypes.DisconnectReasonStop)
			return true, datatypes.DisconnectReasonStop
		}

	default:
		s.reject(cmd.Command, datatypes.RejectUnknownCommand, nil)
	}
	return false, ""
}

// configure swaps the track configuration and regenerates the track. Legal
// only while CONNECTED or PAUSED; anywhere else it is rejected like an
// invalid self-transition.
func (s *Session) configure(cmd datatypes.StreamCommand) {
	state := s.machine.State()
	if state != StateConnected && state != StatePaused {
		s.reject(cmd.Command, datatypes.RejectInvalidTransition,
			&InvalidTransitionError{From: state, To: state})
		return
	}
	if cmd.Params == nil {
		s.reject(cmd.Command, datatypes.RejectBadParams, nil)
		return
	}
	// Mirrors the binding rules on the HTTP generation endpoint: zero
	// means "use the default", anything else must be inside the
	// validated range.
	if cmd.Params.NumPoints != 0 &&
		(cmd.Params.NumPoints < geometry.MinControlPoints ||
			cmd.Params.NumPoints > geometry.MaxControlPoints) {
		s.reject(cmd.Command, datatypes.RejectBadParams, nil)
		return
	}
	if cmd.Params.TrackWidth < 0 || cmd.Params.MinRadius < 0 {
		s.reject(cmd.Command, datatypes.RejectBadParams, nil)
		return
	}
	if cmd.Params.Bounds.Width < 0 || cmd.Params.Bounds.Height < 0 {
		s.reject(cmd.Command, datatypes.RejectBadParams, nil)
		return
	}

	s.cfg = cmd.Params.ToTrackConfig()
	s.regenerate()
	s.ackWithTrack(cmd.Command)
}

// regenerate runs the pipeline with the current config and resets lap
// progress.
func (s *Session) regenerate() {
	result := s.pipeline.Generate(s.cfg)
	s.track = result.Descriptor
	s.hasTrack = true
	s.progress = 0
	if result.UsedFallback {
		s.log.Info("track generation used fallback layout", "attempts", result.Attempts)
	}
}

// attempt tries one transition, sending a rejection on failure. Returns
// whether the transition was applied.
func (s *Session) attempt(command string, to State) bool {
	if err := s.machine.Transition(to); err != nil {
		var ite *InvalidTransitionError
		if errors.As(err, &ite) {
			s.reject(command, datatypes.RejectInvalidTransition, ite)
		}
		return false
	}
	return true
}

// attemptAck is attempt plus the success acknowledgment.
func (s *Session) attemptAck(command string, to State) {
	if s.attempt(command, to) {
		s.ack(command)
	}
}

func (s *Session) ack(command string) {
	s.write(datatypes.StreamAck{
		Type:      datatypes.MessageTypeAck,
		Command:   command,
		SessionID: s.id,
		State:     s.machine.State().String(),
	})
}

func (s *Session) ackWithTrack(command string) {
	resp := datatypes.NewTrackDescriptorResponse(s.track)
	s.write(datatypes.StreamAck{
		Type:      datatypes.MessageTypeAck,
		Command:   command,
		SessionID: s.id,
		State:     s.machine.State().String(),
		Track:     &resp,
	})
}

func (s *Session) reject(command, reason string, ite *InvalidTransitionError) {
	rej := datatypes.StreamRejection{
		Type:    datatypes.MessageTypeRejected,
		Command: command,
		Reason:  reason,
	}
	if ite != nil {
		rej.From = ite.From.String()
		rej.To = ite.To.String()
	}
	s.write(rej)
}

// emitFrame advances the simulated position one tick along the corridor
// centerline and pushes a frame.
func (s *Session) emitFrame() {
	if !s.hasTrack {
		return
	}
	s.progress += float64(s.opts.FrameInterval) / float64(s.opts.LapDuration)
	for s.progress >= 1 {
		s.progress -= 1
	}

	outer := s.track.Outer.PointAt(s.progress)
	inner := s.track.Inner.PointAt(s.progress)
	s.seq++

	s.write(datatypes.StreamFrame{
		Type:     datatypes.MessageTypeFrame,
		Seq:      s.seq,
		Position: datatypes.PointJSON{X: (outer.X + inner.X) / 2, Y: (outer.Y + inner.Y) / 2},
		Progress: s.progress,
	})
	if m := observability.DefaultMetrics; m != nil {
		m.FramesTotal.Inc()
	}
}

// write pushes one message; a failed write means the transport is gone and
// tears the session down.
func (s *Session) write(v any) {
	if err := s.conn.WriteJSON(v); err != nil {
		s.log.Warn("write failed, tearing down", "error", err.Error())
		s.finish(datatypes.DisconnectReasonTransport)
	}
}

// finish walks the machine to StateDisconnected from any state and emits
// the goodbye message when the transport is still expected to be alive.
func (s *Session) finish(reason string) {
	switch s.machine.State() {
	case StateDisconnected:
		return
	case StateConnecting:
		_ = s.machine.Transition(StateDisconnected)
	case StateDisconnecting:
		if reason != datatypes.DisconnectReasonTransport {
			_ = s.conn.WriteJSON(datatypes.StreamGoodbye{
				Type:   datatypes.MessageTypeGoodbye,
				Reason: reason,
			})
		}
		_ = s.machine.Transition(StateDisconnected)
	default:
		_ = s.machine.Transition(StateDisconnecting)
		if reason != datatypes.DisconnectReasonTransport {
			_ = s.conn.WriteJSON(datatypes.StreamGoodbye{
				Type:   datatypes.MessageTypeGoodbye,
				Reason: reason,
			})
		}
		_ = s.machine.Transition(StateDisconnected)
	}
}
