package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	apperrors "licensegate/internal/errors"
	"licensegate/internal/notify"
	"licensegate/pkg/contracts/domain"
)

// ClockGuard is the trusted clock as seen by the manager.
type ClockGuard interface {
	TrustedClock
	Bootstrap(ctx context.Context, requireNetwork bool) error
}

// ValidationResult is the outcome of the most recent check.
type ValidationResult struct {
	Info      *Info
	Err       error
	CheckedAt time.Time
}

// Manager loads the installed license and validates it against the trusted
// clock. It is the host's single entry point for license enforcement.
type Manager struct {
	licenseFile    string
	validator      *Validator
	clock          ClockGuard
	requireNetwork bool
	notifier       notify.Notifier
	metrics        *LicenseMetrics
	logger         *slog.Logger

	validationMutex sync.RWMutex
	lastResult      *ValidationResult
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithRequireNetwork makes bootstrap fail closed without network time
func WithRequireNetwork(require bool) ManagerOption {
	return func(m *Manager) { m.requireNetwork = require }
}

// WithNotifier sets the sink for fatal license conditions
func WithNotifier(n notify.Notifier) ManagerOption {
	return func(m *Manager) { m.notifier = n }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithMeter records metrics on meter
func WithMeter(meter metric.Meter) ManagerOption {
	return func(m *Manager) {
		if metrics, err := InitializeLicenseMetrics(meter); err == nil {
			m.metrics = metrics
		}
	}
}

// NewManager creates a Manager for the license stored at licenseFile.
func NewManager(licenseFile string, validator *Validator, clock ClockGuard, opts ...ManagerOption) *Manager {
	m := &Manager{
		licenseFile: licenseFile,
		validator:   validator,
		clock:       clock,
		notifier:    notify.Nop{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = defaultMetrics()
	}
	m.logger = m.logger.With(slog.String("component", "license_manager"))
	return m
}

// GetLicensePath returns the license file location
func (m *Manager) GetLicensePath() string { return m.licenseFile }

// EnsureValid bootstraps the trusted clock, loads the installed license and
// validates it. Every failure is a *errors.LicenseError; fatal ones are also
// sent to the notifier.
func (m *Manager) EnsureValid(ctx context.Context) (*Info, error) {
	info, err := m.TraceValidation(ctx, func(ctx context.Context) (*Info, error) {
		if err := m.clock.Bootstrap(ctx, m.requireNetwork); err != nil {
			return nil, err
		}
		doc, err := m.Load(ctx)
		if err != nil {
			return nil, err
		}
		return m.validator.Validate(doc)
	})

	m.cacheValidationResult(info, err)
	if err != nil {
		m.logWarn(ctx, "license_validation", "License check failed",
			slog.String("error_code", string(apperrors.KindOf(err))),
			slog.String("error", err.Error()))
		m.notifyFailure(ctx, err)
		return nil, err
	}

	m.logInfo(ctx, "license_validation", "License valid",
		slog.String("license_id_hash", hashIdentifier(info.LicenseID())),
		slog.String("expiry", info.ExpiryString()),
		slog.Int("days_remaining", info.DaysRemaining(m.clock.Now())))
	return info, nil
}

// Load reads and parses the installed license file.
func (m *Manager) Load(ctx context.Context) (Document, error) {
	data, err := os.ReadFile(m.licenseFile)
	if errors.Is(err, os.ErrNotExist) {
		m.logDebug(ctx, "license_load", "No license file", slog.String("path", m.licenseFile))
		return nil, apperrors.NewLicenseError("license.load", apperrors.ErrLicenseNotFound, m.licenseFile)
	}
	if err != nil {
		m.logError(ctx, "license_load", "Failed to read license file",
			slog.String("path", m.licenseFile),
			slog.String("error", err.Error()))
		return nil, apperrors.Wrap("license.load", apperrors.ErrLicenseUnreadable, err)
	}
	return ParseDocument(data)
}

// Check validates data without installing it. Expiry is judged by the
// trusted clock, so Check bootstraps it first and fails when it cannot.
func (m *Manager) Check(ctx context.Context, data []byte) (*Info, error) {
	if err := m.clock.Bootstrap(ctx, m.requireNetwork); err != nil {
		return nil, err
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return m.validator.Validate(doc)
}

// Install validates data and, when valid, replaces the installed license.
func (m *Manager) Install(ctx context.Context, data []byte) (_ *Info, err error) {
	defer func() { m.recordInstall(ctx, err) }()

	info, err := m.Check(ctx, data)
	if err != nil {
		m.logWarn(ctx, "license_install", "Rejected license document",
			slog.String("error_code", string(apperrors.KindOf(err))))
		return nil, err
	}

	if err := writeFileAtomic(m.licenseFile, data); err != nil {
		m.logError(ctx, "license_install", "Failed to write license file",
			slog.String("path", m.licenseFile),
			slog.String("error", err.Error()))
		return nil, err
	}

	m.cacheValidationResult(info, nil)
	m.logInfo(ctx, "license_install", "License installed",
		slog.String("path", m.licenseFile),
		slog.String("expiry", info.ExpiryString()))
	return info, nil
}

// GetValidationState returns the most recent validation result.
func (m *Manager) GetValidationState() (*ValidationResult, error) {
	m.validationMutex.RLock()
	defer m.validationMutex.RUnlock()

	if m.lastResult == nil {
		return nil, fmt.Errorf("no validation performed yet")
	}
	result := *m.lastResult
	return &result, nil
}

// Status runs EnsureValid and reports the result as a domain.LicenseStatus.
func (m *Manager) Status(ctx context.Context) domain.LicenseStatus {
	info, err := m.EnsureValid(ctx)
	return StatusFrom(info, err, m.clock.Now())
}

// StatusFrom projects a validation outcome onto the API representation.
func StatusFrom(info *Info, err error, now time.Time) domain.LicenseStatus {
	st := domain.LicenseStatus{CheckedAt: now}
	if err != nil {
		st.ErrorCode = string(apperrors.KindOf(err))
		st.Reason = err.Error()
		switch {
		case errors.Is(err, apperrors.ErrClockTampered):
			st.State = domain.LicenseStateTampered
		case errors.Is(err, apperrors.ErrLicenseNotFound):
			st.State = domain.LicenseStateMissing
		case errors.Is(err, apperrors.ErrLicenseExpired):
			st.State = domain.LicenseStateExpired
		default:
			st.State = domain.LicenseStateInvalid
		}
		return st
	}

	st.State = domain.LicenseStateValid
	st.Valid = true
	st.Product = info.Product()
	st.LicenseID = info.LicenseID()
	st.Customer = info.Customer()
	st.Expiry = info.ExpiryString()
	st.DaysRemaining = info.DaysRemaining(now)
	st.Features = info.Features()
	return st
}

func (m *Manager) cacheValidationResult(info *Info, err error) {
	m.validationMutex.Lock()
	defer m.validationMutex.Unlock()
	m.lastResult = &ValidationResult{Info: info, Err: err, CheckedAt: m.clock.Now()}
}

// notifyFailure reports a failed check. Tampering has already been
// reported by the clock.
func (m *Manager) notifyFailure(ctx context.Context, err error) {
	if errors.Is(err, apperrors.ErrClockTampered) {
		return
	}
	m.notifier.Notify(ctx, domain.GuardEvent{
		Type:      domain.GuardEventLicenseFatal,
		Code:      string(apperrors.KindOf(err)),
		Reason:    err.Error(),
		Fatal:     true,
		Timestamp: m.clock.Now(),
	})
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating license directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".license-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing license: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
