package domain

import "time"

// ClockState is the lifecycle state of the trusted clock
type ClockState string

const (
	ClockStateUninitialized ClockState = "uninitialized"
	ClockStateBootstrapped  ClockState = "bootstrapped"
	ClockStateTampered      ClockState = "tampered"
)

// ClockStatus is a snapshot of the trusted clock for diagnostics.
type ClockStatus struct {
	State           ClockState `json:"state"`
	Now             time.Time  `json:"now"`
	SystemTime      time.Time  `json:"system_time"`
	SkewSeconds     float64    `json:"skew_seconds"`
	TrustedStart    time.Time  `json:"trusted_start,omitempty"`
	LastPersist     time.Time  `json:"last_persist,omitempty"`
	LastNetworkSync time.Time  `json:"last_network_sync,omitempty"`
	NetworkServer   string     `json:"network_server,omitempty"`
	StorageBackend  string     `json:"storage_backend,omitempty"`
	SlotsWritten    int        `json:"slots_written"`
	TamperReason    string     `json:"tamper_reason,omitempty"`
}

// GuardEventType classifies notifications raised by the guard
type GuardEventType string

const (
	GuardEventTamper       GuardEventType = "tamper"
	GuardEventLicenseFatal GuardEventType = "license_fatal"
	GuardEventDegraded     GuardEventType = "degraded"
)

// GuardEvent is delivered to notification sinks when the guard detects a
// fatal or degraded condition.
type GuardEvent struct {
	Type      GuardEventType `json:"type"`
	Code      string         `json:"code"`
	Reason    string         `json:"reason"`
	Fatal     bool           `json:"fatal"`
	Timestamp time.Time      `json:"timestamp"`
	TraceID   string         `json:"trace_id,omitempty"`
}
