// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// Streaming command names accepted over the websocket protocol. Each
// command maps to exactly one attempted session state transition.
const (
	CommandConnect    = "connect"
	CommandStart      = "start"
	CommandConfigure  = "configure"
	CommandPause      = "pause"
	CommandResume     = "resume"
	CommandStop       = "stop"
	CommandDisconnect = "disconnect"
)

// StreamCommand is one inbound client message.
type StreamCommand struct {
	Command string `json:"command"`

	// Params carries the track configuration for "configure".
	Params *GenerateTrackRequest `json:"params,omitempty"`
}

// Streaming message types emitted by the server.
const (
	MessageTypeAck      = "ack"
	MessageTypeRejected = "rejected"
	MessageTypeFrame    = "frame"
	MessageTypeGoodbye  = "goodbye"
)

// Rejection reasons surfaced to the session caller. Categorized, never
// internal detail.
const (
	RejectInvalidTransition = "invalid_transition"
	RejectCommandRate       = "command_rate_exceeded"
	RejectUnknownCommand    = "unknown_command"
	RejectBadParams         = "invalid_parameters"
)

// Disconnect reasons carried on the goodbye message.
const (
	DisconnectReasonStop      = "stopped"
	DisconnectReasonIdle      = "idle_timeout"
	DisconnectReasonTransport = "transport_closed"
	DisconnectReasonShutdown  = "server_shutdown"
)

// StreamAck acknowledges one successfully applied command.
type StreamAck struct {
	Type      string `json:"type"`
	Command   string `json:"command"`
	SessionID string `json:"session_id"`
	State     string `json:"state"`

	// Track is set on connect and configure acks.
	Track *TrackDescriptorResponse `json:"track,omitempty"`
}

// StreamRejection reports one rejected command; the session stays usable.
type StreamRejection struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Reason  string `json:"reason"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}

// StreamFrame is one periodic simulation frame emitted while streaming.
type StreamFrame struct {
	Type     string    `json:"type"`
	Seq      uint64    `json:"seq"`
	Position PointJSON `json:"position"`

	// Progress is the normalized lap position in [0,1).
	Progress float64 `json:"progress"`
}

// StreamGoodbye is the final message before the server closes the
// connection.
type StreamGoodbye struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
