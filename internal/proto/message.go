// Package proto defines the JSON wire contract between the server and its
// WebSocket clients. The server keeps no session state across a disconnect:
// a client that loses its connection reconnects, receives a fresh welcome
// frame with a new id, and re-subscribes to its channels.
package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for control frames coming from the client.
type Inbound struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels,omitempty"`
}

const (
	InboundTypeSubscribe   = "subscribe"
	InboundTypeUnsubscribe = "unsubscribe"
	InboundTypePing        = "ping"

	OutboundTypeWelcome  = "welcome"
	OutboundTypePong     = "pong"
	OutboundTypeShutdown = "shutdown"
)

// Outbound is the envelope for frames sent to the client. For broadcasts
// Type carries the event name (e.g. "new_prediction"); Timestamp is Unix
// milliseconds.
type Outbound struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// WelcomeData is sent once after a successful handshake.
type WelcomeData struct {
	ClientID               string   `json:"clientId"`
	AvailableSubscriptions []string `json:"availableSubscriptions"`
}

// Welcome builds the handshake frame for a newly connected client.
func Welcome(clientID string, channels []string, now time.Time) Outbound {
	return Outbound{
		Type:      OutboundTypeWelcome,
		Data:      WelcomeData{ClientID: clientID, AvailableSubscriptions: channels},
		Timestamp: now.UnixMilli(),
	}
}

// Pong builds the reply to a client ping.
func Pong(now time.Time) Outbound {
	return Outbound{Type: OutboundTypePong, Timestamp: now.UnixMilli()}
}

// Broadcast builds an event frame carrying an already-shaped payload.
func Broadcast(event string, payload any, ts time.Time) Outbound {
	return Outbound{Type: event, Data: payload, Timestamp: ts.UnixMilli()}
}

// MarshalBroadcast serializes an event frame once so the same bytes can be
// reused for every recipient.
func MarshalBroadcast(event string, payload any, ts time.Time) ([]byte, error) {
	return json.Marshal(Broadcast(event, payload, ts))
}
