// Package api contains the request and response contracts of the
// licensegate status API. Version v1 is the current stable version.
package api

import (
	"time"

	"licensegate/pkg/contracts/domain"
)

// LicenseDocumentRequest carries a license document as submitted to the
// verify and install endpoints. Document is the raw JSON text.
type LicenseDocumentRequest struct {
	Document string `json:"document" validate:"required,json"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status    string              `json:"status"`
	Version   string              `json:"version"`
	Clock     domain.ClockState   `json:"clock"`
	License   domain.LicenseState `json:"license,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// ClockCheckResponse is returned after an on-demand tick of the guard.
type ClockCheckResponse struct {
	Status domain.ClockStatus `json:"status"`
	Error  string             `json:"error,omitempty"`
}
