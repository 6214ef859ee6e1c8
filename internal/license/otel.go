package license

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	apperrors "licensegate/internal/errors"
)

const (
	TracerName = "license-manager"
	MeterName  = "license-manager"
)

// LicenseMetrics holds the license OpenTelemetry instruments
type LicenseMetrics struct {
	ValidationAttempts metric.Int64Counter
	ValidationSuccess  metric.Int64Counter
	ValidationFailures metric.Int64Counter
	ValidationDuration metric.Float64Histogram
	Installs           metric.Int64Counter
}

// InitializeLicenseMetrics creates the license instruments on meter
func InitializeLicenseMetrics(meter metric.Meter) (*LicenseMetrics, error) {
	metrics := &LicenseMetrics{}
	var err error

	metrics.ValidationAttempts, err = meter.Int64Counter(
		"license_validation_attempts_total",
		metric.WithDescription("Total number of license validation attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation attempts counter: %w", err)
	}

	metrics.ValidationSuccess, err = meter.Int64Counter(
		"license_validation_success_total",
		metric.WithDescription("Total number of successful license validations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation success counter: %w", err)
	}

	metrics.ValidationFailures, err = meter.Int64Counter(
		"license_validation_failures_total",
		metric.WithDescription("Total number of failed license validations by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation failures counter: %w", err)
	}

	metrics.ValidationDuration, err = meter.Float64Histogram(
		"license_validation_duration_seconds",
		metric.WithDescription("License validation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation duration histogram: %w", err)
	}

	metrics.Installs, err = meter.Int64Counter(
		"license_installs_total",
		metric.WithDescription("License install requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create installs counter: %w", err)
	}

	return metrics, nil
}

func defaultMetrics() *LicenseMetrics {
	m, err := InitializeLicenseMetrics(otel.Meter(MeterName))
	if err != nil {
		return nil
	}
	return m
}

// TraceValidation wraps license validation with OpenTelemetry tracing
func (m *Manager) TraceValidation(ctx context.Context, fn func(context.Context) (*Info, error)) (*Info, error) {
	tracer := otel.Tracer(TracerName)

	ctx, span := tracer.Start(ctx, "license.validation",
		trace.WithAttributes(
			attribute.String("license.operation", "validation"),
			attribute.String("component", "license_manager"),
		),
	)
	defer span.End()

	start := time.Now()
	info, err := fn(ctx)
	duration := time.Since(start)

	m.recordValidationMetrics(ctx, duration, err)

	span.SetAttributes(
		attribute.Float64("license.duration_ms", float64(duration.Milliseconds())),
		attribute.Bool("license.valid", err == nil),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("license.error_code", string(apperrors.KindOf(err))))
	} else {
		span.SetStatus(codes.Ok, "License validation successful")
	}

	return info, err
}

// recordValidationMetrics records validation-specific metrics
func (m *Manager) recordValidationMetrics(ctx context.Context, duration time.Duration, err error) {
	if m.metrics == nil {
		return
	}

	labels := metric.WithAttributes(attribute.String("component", "license_manager"))
	m.metrics.ValidationAttempts.Add(ctx, 1, labels)
	m.metrics.ValidationDuration.Record(ctx, duration.Seconds(), labels)

	if err == nil {
		m.metrics.ValidationSuccess.Add(ctx, 1, labels)
		return
	}
	m.metrics.ValidationFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", "license_manager"),
		attribute.String("error_code", string(apperrors.KindOf(err))),
	))
}

func (m *Manager) recordInstall(ctx context.Context, err error) {
	if m.metrics == nil {
		return
	}
	outcome := "installed"
	if err != nil {
		outcome = string(apperrors.KindOf(err))
	}
	m.metrics.Installs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
