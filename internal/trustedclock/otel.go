package trustedclock

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	TracerName = "trusted-clock"
	MeterName  = "trusted-clock"
)

// ClockMetrics holds the trusted clock OpenTelemetry instruments
type ClockMetrics struct {
	Ticks             metric.Int64Counter
	TickDuration      metric.Float64Histogram
	TamperEvents      metric.Int64Counter
	NetworkSyncs      metric.Int64Counter
	SlotWriteFailures metric.Int64Counter
	FastForwards      metric.Int64Counter
}

// InitializeClockMetrics creates the trusted clock instruments on meter
func InitializeClockMetrics(meter metric.Meter) (*ClockMetrics, error) {
	m := &ClockMetrics{}
	var err error

	m.Ticks, err = meter.Int64Counter(
		"trusted_clock_ticks_total",
		metric.WithDescription("Total number of trusted clock consistency checks"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticks counter: %w", err)
	}

	m.TickDuration, err = meter.Float64Histogram(
		"trusted_clock_tick_duration_seconds",
		metric.WithDescription("Trusted clock check duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tick duration histogram: %w", err)
	}

	m.TamperEvents, err = meter.Int64Counter(
		"trusted_clock_tamper_events_total",
		metric.WithDescription("Total number of tamper declarations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tamper counter: %w", err)
	}

	m.NetworkSyncs, err = meter.Int64Counter(
		"trusted_clock_network_sync_attempts_total",
		metric.WithDescription("Total number of network time queries by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create network sync counter: %w", err)
	}

	m.SlotWriteFailures, err = meter.Int64Counter(
		"trusted_clock_slot_write_failures_total",
		metric.WithDescription("Total number of failed evidence slot writes"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create slot failure counter: %w", err)
	}

	m.FastForwards, err = meter.Int64Counter(
		"trusted_clock_fast_forwards_total",
		metric.WithDescription("Total number of times the clock adopted newer evidence"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fast forward counter: %w", err)
	}

	return m, nil
}

func defaultMetrics() *ClockMetrics {
	m, err := InitializeClockMetrics(otel.Meter(MeterName))
	if err != nil {
		// the global meter falls back to a no-op provider
		return nil
	}
	return m
}

func (c *Clock) recordTick(ctx context.Context, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	c.metrics.Ticks.Add(ctx, 1, attrs)
	c.metrics.TickDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}

func (c *Clock) recordNetwork(ctx context.Context, ok bool, phase string) {
	if c.metrics == nil {
		return
	}
	c.metrics.NetworkSyncs.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", ok),
		attribute.String("phase", phase),
	))
}

func (c *Clock) recordSlotFailures(ctx context.Context, n int) {
	if c.metrics == nil || n == 0 {
		return
	}
	c.metrics.SlotWriteFailures.Add(ctx, int64(n))
}

func (c *Clock) recordTamper(ctx context.Context, reason string) {
	if c.metrics == nil {
		return
	}
	c.metrics.TamperEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (c *Clock) recordFastForward(ctx context.Context, source string) {
	if c.metrics == nil {
		return
	}
	c.metrics.FastForwards.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}
