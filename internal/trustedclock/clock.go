package trustedclock

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"licensegate/internal/config"
	apperrors "licensegate/internal/errors"
	"licensegate/internal/netclock"
	"licensegate/internal/notify"
	"licensegate/internal/security"
	"licensegate/internal/timestore"
	"licensegate/pkg/contracts/domain"
)

// FingerprintSource supplies the stable device fingerprint.
type FingerprintSource interface {
	Fingerprint() string
}

// TimeSource supplies network time.
type TimeSource interface {
	Fetch(ctx context.Context) netclock.NetworkResult
}

// EvidenceStore persists trusted epochs across restarts.
type EvidenceStore interface {
	Write(epoch int64, seed string) timestore.StorageResult
	ReadBest(floor int64, seed string) (int64, bool)
	StateDigest(seed string) timestore.Digest
	Backend() string
}

// anchor maps a monotonic reading to a trusted wall time. It is replaced,
// never mutated, so Now can read it without locking.
type anchor struct {
	start time.Time
	mono  time.Duration
}

// Clock is the trusted clock. It reconstructs wall time from a trusted start
// plus monotonic elapsed time and watches the system clock and persisted
// evidence for manipulation. Construct one per process and share it.
type Clock struct {
	fingerprint FingerprintSource
	store       EvidenceStore
	network     TimeSource
	observer    security.Observer
	notifier    notify.Notifier
	policy      config.GuardConfig
	logger      *slog.Logger
	metrics     *ClockMetrics

	system    func() time.Time
	monotonic func() time.Duration

	// mu serializes Bootstrap and CheckAndUpdate.
	mu                 sync.Mutex
	seed               string
	digest             timestore.Digest
	skew               time.Duration
	lastPersist        time.Time
	lastNetworkAttempt time.Time
	lastNetworkSync    time.Time
	networkServer      string
	slotsWritten       int

	anchor      atomic.Pointer[anchor]
	initialized atomic.Bool
	tamper      atomic.Pointer[string]
}

// Option configures a Clock
type Option func(*Clock)

// WithSystemClock replaces the system wall clock
func WithSystemClock(now func() time.Time) Option {
	return func(c *Clock) { c.system = now }
}

// WithMonotonic replaces the monotonic clock. The function returns the
// elapsed time since an arbitrary fixed origin.
func WithMonotonic(elapsed func() time.Duration) Option {
	return func(c *Clock) { c.monotonic = elapsed }
}

// WithObserver sets the debugger/tracer detector
func WithObserver(o security.Observer) Option {
	return func(c *Clock) { c.observer = o }
}

// WithNotifier sets the sink for tamper events
func WithNotifier(n notify.Notifier) Option {
	return func(c *Clock) { c.notifier = n }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Clock) { c.logger = l }
}

// WithMeter records metrics on meter instead of the global provider
func WithMeter(m metric.Meter) Option {
	return func(c *Clock) {
		if metrics, err := InitializeClockMetrics(m); err == nil {
			c.metrics = metrics
		}
	}
}

// New creates an uninitialized Clock. network may be nil for hosts that
// never go online.
func New(fp FingerprintSource, store EvidenceStore, network TimeSource, policy config.GuardConfig, opts ...Option) *Clock {
	origin := time.Now()
	c := &Clock{
		fingerprint: fp,
		store:       store,
		network:     network,
		observer:    security.NoopObserver{},
		notifier:    notify.Nop{},
		policy:      policy,
		logger:      slog.Default(),
		system:      time.Now,
		monotonic:   func() time.Duration { return time.Since(origin) },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = defaultMetrics()
	}
	c.logger = c.logger.With(slog.String("component", "trusted_clock"))
	return c
}

// Now returns the trusted current time. Before Bootstrap it falls back to
// the system clock; callers needing a guarantee check Initialized and
// IsTampered.
func (c *Clock) Now() time.Time {
	a := c.anchor.Load()
	if a == nil {
		return c.system()
	}
	return a.start.Add(c.monotonic() - a.mono)
}

// Initialized reports whether Bootstrap has completed
func (c *Clock) Initialized() bool { return c.initialized.Load() }

// IsTampered reports whether manipulation was detected. Once true it stays
// true for the life of the process.
func (c *Clock) IsTampered() bool { return c.tamper.Load() != nil }

// TamperReason returns the cause of the tamper declaration, or "".
func (c *Clock) TamperReason() string {
	if r := c.tamper.Load(); r != nil {
		return *r
	}
	return ""
}

// TamperError returns the sticky ClockTampered error, or nil.
func (c *Clock) TamperError() error {
	r := c.tamper.Load()
	if r == nil {
		return nil
	}
	return apperrors.NewLicenseError("trustedclock", apperrors.ErrClockTampered, *r)
}

// Status returns a diagnostic snapshot
func (c *Clock) Status() domain.ClockStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.Now()
	sys := c.system()
	st := domain.ClockStatus{
		State:           domain.ClockStateUninitialized,
		Now:             now,
		SystemTime:      sys,
		SkewSeconds:     c.skew.Seconds(),
		LastPersist:     c.lastPersist,
		LastNetworkSync: c.lastNetworkSync,
		NetworkServer:   c.networkServer,
		SlotsWritten:    c.slotsWritten,
		TamperReason:    c.TamperReason(),
	}
	if c.store != nil {
		st.StorageBackend = c.store.Backend()
	}
	if a := c.anchor.Load(); a != nil {
		st.TrustedStart = a.start
	}
	switch {
	case c.IsTampered():
		st.State = domain.ClockStateTampered
	case c.Initialized():
		st.State = domain.ClockStateBootstrapped
	}
	return st
}

// setAnchor makes t the trusted time at the current monotonic reading.
func (c *Clock) setAnchor(t time.Time) {
	c.anchor.Store(&anchor{start: t, mono: c.monotonic()})
}

// persist writes epoch to all slots and refreshes the digest snapshot.
// Storage failures degrade redundancy and are never fatal. Callers hold mu.
func (c *Clock) persist(ctx context.Context, at time.Time) {
	result := c.store.Write(at.Unix(), c.seed)
	c.slotsWritten = result.Written
	c.recordSlotFailures(ctx, len(result.Failed))

	switch {
	case !result.OK():
		c.logger.WarnContext(ctx, "No evidence slot could be written",
			slog.String("error", result.Err().Error()))
	case result.Degraded():
		c.logger.WarnContext(ctx, "Evidence persisted with reduced redundancy",
			slog.Int("slots_written", result.Written))
	}

	c.lastPersist = at
	c.digest = c.store.StateDigest(c.seed)
}

// declareTamper records the first tamper cause and notifies the host.
// Later calls keep the original reason. Callers hold mu.
func (c *Clock) declareTamper(ctx context.Context, code, reason string) error {
	if c.tamper.CompareAndSwap(nil, &reason) {
		c.recordTamper(ctx, code)
		c.logger.ErrorContext(ctx, "Clock tampering detected",
			slog.String("tamper_code", code),
			slog.String("reason", reason))
		c.notifier.Notify(ctx, domain.GuardEvent{
			Type:      domain.GuardEventTamper,
			Code:      string(apperrors.KindClockTampered),
			Reason:    reason,
			Fatal:     true,
			Timestamp: c.Now(),
		})
	}
	return c.TamperError()
}

func (c *Clock) checkObserver(ctx context.Context) error {
	if c.observer != nil && c.observer.IsBeingObserved() {
		return c.declareTamper(ctx, "observer", "debugger or tracer attached to the process")
	}
	return nil
}

// fetchNetwork queries network time under a hard deadline.
func (c *Clock) fetchNetwork(ctx context.Context, phase string) netclock.NetworkResult {
	if c.network == nil {
		return netclock.NetworkResult{
			Err: apperrors.NewLicenseError("trustedclock.network", apperrors.ErrNetworkUnavailable, "no time source configured"),
		}
	}
	res := c.network.Fetch(ctx)
	c.recordNetwork(ctx, res.OK, phase)
	if res.OK {
		c.lastNetworkSync = res.Time
		c.networkServer = res.Server
	}
	return res
}
