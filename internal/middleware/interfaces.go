package middleware

import (
	"context"

	"licensegate/internal/license"
)

// LicenseEnforcer validates the installed license against the trusted clock
type LicenseEnforcer interface {
	EnsureValid(ctx context.Context) (*license.Info, error)
}

// TamperSource reports a sticky clock tamper verdict
type TamperSource interface {
	TamperError() error
}
