package notify

import (
	"context"
	"log/slog"
	"sync"

	"licensegate/pkg/contracts/domain"
)

// Notifier receives fatal and degraded guard conditions. Implementations
// must not block for long; they are called from the guard's tick.
type Notifier interface {
	Notify(ctx context.Context, event domain.GuardEvent)
}

// Func adapts a function to Notifier
type Func func(ctx context.Context, event domain.GuardEvent)

// Notify implements Notifier
func (f Func) Notify(ctx context.Context, event domain.GuardEvent) { f(ctx, event) }

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier
func (Nop) Notify(context.Context, domain.GuardEvent) {}

// LogNotifier writes events to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "notifier"))}
}

// Notify implements Notifier
func (n *LogNotifier) Notify(ctx context.Context, event domain.GuardEvent) {
	level := slog.LevelWarn
	if event.Fatal {
		level = slog.LevelError
	}
	n.logger.LogAttrs(ctx, level, "Guard event",
		slog.String("event_type", string(event.Type)),
		slog.String("code", event.Code),
		slog.String("reason", event.Reason),
		slog.Bool("fatal", event.Fatal),
		slog.Time("timestamp", event.Timestamp),
	)
}

// MultiNotifier fans an event out to every registered sink.
type MultiNotifier struct {
	mu    sync.RWMutex
	sinks []Notifier
}

// NewMultiNotifier creates a MultiNotifier over sinks
func NewMultiNotifier(sinks ...Notifier) *MultiNotifier {
	m := &MultiNotifier{}
	for _, s := range sinks {
		m.Add(s)
	}
	return m
}

// Add registers another sink. Nil sinks are ignored.
func (m *MultiNotifier) Add(n Notifier) {
	if n == nil {
		return
	}
	m.mu.Lock()
	m.sinks = append(m.sinks, n)
	m.mu.Unlock()
}

// Notify implements Notifier
func (m *MultiNotifier) Notify(ctx context.Context, event domain.GuardEvent) {
	m.mu.RLock()
	sinks := append([]Notifier(nil), m.sinks...)
	m.mu.RUnlock()

	for _, s := range sinks {
		s.Notify(ctx, event)
	}
}
