package http

import (
	"context"
	"time"

	"licensegate/internal/license"
	"licensegate/pkg/contracts/domain"
)

// LicenseService is the license manager as used by the handlers
type LicenseService interface {
	EnsureValid(ctx context.Context) (*license.Info, error)
	Status(ctx context.Context) domain.LicenseStatus
	Check(ctx context.Context, data []byte) (*license.Info, error)
	Install(ctx context.Context, data []byte) (*license.Info, error)
	GetValidationState() (*license.ValidationResult, error)
}

// ClockService is the trusted clock as used by the handlers
type ClockService interface {
	Now() time.Time
	Status() domain.ClockStatus
	CheckAndUpdate(ctx context.Context) error
	TamperError() error
}

// Broadcaster pushes status changes to live clients
type Broadcaster interface {
	Broadcast(ctx context.Context, msgType string, data interface{}) error
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(context.Context, string, interface{}) error { return nil }
