package trustedclock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "licensegate/internal/errors"
	"licensegate/internal/infrastructure"
	"licensegate/internal/security"
)

// Bootstrap establishes the trusted start time. It runs once; later calls
// return immediately. With requireNetwork set, bootstrap fails closed when no
// time server answers.
//
// The start time is the network time (or the system time when offline),
// raised to the most advanced persisted epoch. Persisted evidence therefore
// only ever moves the clock forward across restarts.
func (c *Clock) Bootstrap(ctx context.Context, requireNetwork bool) (err error) {
	ctx, span := otel.Tracer(TracerName).Start(ctx, "trustedclock.bootstrap",
		trace.WithAttributes(attribute.Bool("clock.require_network", requireNetwork)))
	defer func() {
		infrastructure.RecordError(ctx, err)
		span.End()
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized.Load() {
		return c.TamperError()
	}

	c.seed = security.DeriveSeed(c.fingerprint.Fingerprint())
	sys := c.system()

	res := c.fetchNetwork(ctx, "bootstrap")
	base := sys
	switch {
	case res.OK:
		divergence := res.Time.Sub(sys).Abs()
		if divergence > c.policy.BootstrapDivergence {
			c.logger.ErrorContext(ctx, "System clock diverges from network time",
				slog.String("server", res.Server),
				slog.Duration("divergence", divergence),
				slog.Duration("tolerance", c.policy.BootstrapDivergence))
			return apperrors.NewLicenseError("trustedclock.bootstrap", apperrors.ErrClockDivergence,
				fmt.Sprintf("system clock is %s away from %s", divergence.Round(time.Second), res.Server))
		}
		base = res.Time
		c.skew = res.Time.Sub(sys)
	case requireNetwork:
		return apperrors.Wrap("trustedclock.bootstrap", apperrors.ErrNetworkUnavailable, res.Err)
	default:
		c.logger.WarnContext(ctx, "Bootstrapping from system clock without network time")
	}

	start := base
	if best, ok := c.store.ReadBest(0, c.seed); ok && best > base.Unix() {
		c.logger.InfoContext(ctx, "Persisted evidence is ahead of the current time",
			slog.Int64("persisted_epoch", best),
			slog.Int64("observed_epoch", base.Unix()))
		start = time.Unix(best, 0).UTC()
	}

	c.setAnchor(start)
	c.persist(ctx, start)
	c.lastNetworkAttempt = start
	c.initialized.Store(true)

	c.logger.InfoContext(ctx, "Trusted clock bootstrapped",
		slog.Time("trusted_start", start),
		slog.Bool("network_time", res.OK),
		slog.String("storage_backend", c.store.Backend()),
		slog.Int("slots_written", c.slotsWritten))

	return c.checkObserver(ctx)
}

// CheckAndUpdate runs one consistency check. Call it periodically. It is a
// no-op before Bootstrap and returns the sticky ClockTampered error once
// tampering has been detected.
func (c *Clock) CheckAndUpdate(ctx context.Context) (err error) {
	start := time.Now()
	ctx, span := otel.Tracer(TracerName).Start(ctx, "trustedclock.check")
	defer func() {
		c.recordTick(ctx, start, err)
		infrastructure.RecordError(ctx, err)
		span.End()
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.TamperError(); err != nil {
		return err
	}
	if !c.initialized.Load() {
		c.logger.DebugContext(ctx, "Skipping check before bootstrap")
		return nil
	}
	if err := c.checkObserver(ctx); err != nil {
		return err
	}

	now := c.Now()
	best, haveBest := c.store.ReadBest(0, c.seed)

	// Persisted state changed behind our back: acceptable only when the
	// evidence still holds a recent epoch.
	if digest := c.store.StateDigest(c.seed); digest.Available() && digest.Sum != c.digest.Sum {
		window := c.policy.PersistInterval + c.policy.GraceMargin
		oldest := now.Add(-window).Unix()
		if !haveBest || best < oldest {
			reason := "persisted time evidence was erased"
			if haveBest {
				reason = fmt.Sprintf("persisted time evidence rolled back to %s", time.Unix(best, 0).UTC().Format(time.RFC3339))
			}
			return c.declareTamper(ctx, "rollback", reason)
		}
		c.logger.DebugContext(ctx, "Adopted externally updated evidence",
			slog.Int64("persisted_epoch", best),
			slog.Int("missing_slots", digest.Missing))
		c.digest = digest
	}

	// The skew measured against network time is legitimate; any further
	// lag of the system clock behind the trusted clock is not.
	if behind := now.Sub(c.system()) - c.skew; behind > c.policy.BackwardTolerance {
		return c.declareTamper(ctx, "backward",
			fmt.Sprintf("system clock moved backward by %s", behind.Round(time.Second)))
	}

	if haveBest {
		if ahead := time.Unix(best, 0).Sub(now); ahead > c.policy.ForwardMargin {
			c.logger.InfoContext(ctx, "Fast-forwarding to persisted evidence",
				slog.Duration("ahead", ahead))
			now = time.Unix(best, 0).UTC()
			c.setAnchor(now)
			c.skew += ahead
			c.recordFastForward(ctx, "storage")
		}
	}

	if now.Sub(c.lastPersist) >= c.policy.PersistInterval {
		c.persist(ctx, now)
	}

	if now.Sub(c.lastNetworkAttempt) >= c.policy.ResyncInterval {
		c.lastNetworkAttempt = now
		res := c.fetchNetwork(ctx, "resync")
		if res.OK {
			if ahead := res.Time.Sub(now); ahead > c.policy.ResyncAdoptMargin {
				c.logger.InfoContext(ctx, "Adopting network time ahead of the trusted clock",
					slog.String("server", res.Server),
					slog.Duration("ahead", ahead))
				c.setAnchor(res.Time)
				c.skew = res.Time.Sub(c.system())
				c.recordFastForward(ctx, "network")
				c.persist(ctx, res.Time)
			}
		} else {
			c.logger.DebugContext(ctx, "Network resync skipped", slog.String("error", res.Err.Error()))
		}
	}

	return nil
}

// Run calls CheckAndUpdate every interval until ctx is done or tampering is
// detected. Hosts with their own scheduler call CheckAndUpdate directly.
func (c *Clock) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = c.policy.TickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := c.CheckAndUpdate(ctx)
			if err == nil {
				continue
			}
			if c.IsTampered() {
				return err
			}
			c.logger.WarnContext(ctx, "Clock check failed", slog.String("error", err.Error()))
		}
	}
}
