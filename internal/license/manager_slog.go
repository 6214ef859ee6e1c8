package license

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"licensegate/internal/config"
	"licensegate/internal/infrastructure"
)

// logAction logs a license action. The request trace_id is added by the
// logging handler; the OpenTelemetry trace id is added here when a span is
// active.
func (m *Manager) logAction(ctx context.Context, level slog.Level, action, result string, attrs ...slog.Attr) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		infrastructure.AddSpanEvent(ctx, "license."+action,
			attribute.String("action", action),
			attribute.String("result", result),
		)
	}

	allAttrs := []slog.Attr{
		slog.String("action", action),
		slog.String("result", result),
		slog.String("service_name", config.AppName),
	}
	if otelTraceID := infrastructure.TraceIDFromContext(ctx); otelTraceID != "" {
		allAttrs = append(allAttrs, slog.String("otel_trace_id", otelTraceID))
	}
	allAttrs = append(allAttrs, attrs...)

	m.logger.LogAttrs(ctx, level, result, allAttrs...)
}

// hashIdentifier shortens an identifier to a stable audit hash so that logs
// do not carry customer data.
func hashIdentifier(id string) string {
	if id == "" {
		return ""
	}
	h := sha256.Sum256([]byte(id))
	return hex.EncodeToString(h[:8])
}

func (m *Manager) logDebug(ctx context.Context, action, result string, attrs ...slog.Attr) {
	m.logAction(ctx, slog.LevelDebug, action, result, attrs...)
}

func (m *Manager) logInfo(ctx context.Context, action, result string, attrs ...slog.Attr) {
	m.logAction(ctx, slog.LevelInfo, action, result, attrs...)
}

func (m *Manager) logWarn(ctx context.Context, action, result string, attrs ...slog.Attr) {
	m.logAction(ctx, slog.LevelWarn, action, result, attrs...)
}

func (m *Manager) logError(ctx context.Context, action, result string, attrs ...slog.Attr) {
	m.logAction(ctx, slog.LevelError, action, result, attrs...)
}
