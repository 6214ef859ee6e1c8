// Package events contains the message contracts pushed to WebSocket clients
// of the licensegate status server.
package events

import (
	"time"
)

// Message types
const (
	TypeConnection    = "connection"
	TypeHeartbeat     = "heartbeat"
	TypeLicenseStatus = "license:status"
	TypeClockStatus   = "clock:status"
	TypeGuardEvent    = "guard:event"
)

// Message is the envelope of every frame sent to a client. Data carries a
// domain.LicenseStatus, domain.ClockStatus or domain.GuardEvent depending on
// Type.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// ConnectionData is the payload of the greeting sent on connect.
type ConnectionData struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
	Message  string `json:"message"`
}

// NewMessage stamps a message of msgType with the current time.
func NewMessage(msgType string, data interface{}) Message {
	return Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// WithTrace returns a copy of m carrying traceID.
func (m Message) WithTrace(traceID string) Message {
	m.TraceID = traceID
	return m
}
