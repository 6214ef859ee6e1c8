// Package domain contains the core domain models for licensegate.
// These types are shared by the HTTP API, the websocket feed and the CLI.
package domain

import (
	"time"
)

// LicenseState is the coarse state of the installed license
type LicenseState string

const (
	LicenseStateValid    LicenseState = "valid"
	LicenseStateExpired  LicenseState = "expired"
	LicenseStateInvalid  LicenseState = "invalid"
	LicenseStateMissing  LicenseState = "missing"
	LicenseStateTampered LicenseState = "tampered"
)

// LicenseStatus is the externally visible result of a license check.
type LicenseStatus struct {
	State         LicenseState `json:"state"`
	Valid         bool         `json:"valid"`
	Product       string       `json:"product,omitempty"`
	LicenseID     string       `json:"license_id,omitempty"`
	Customer      string       `json:"customer,omitempty"`
	Expiry        string       `json:"expiry,omitempty"`
	DaysRemaining int          `json:"days_remaining"`
	Features      []string     `json:"features,omitempty"`
	ErrorCode     string       `json:"error_code,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	CheckedAt     time.Time    `json:"checked_at"`
}
