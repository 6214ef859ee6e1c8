package netclock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"licensegate/internal/config"
	apperrors "licensegate/internal/errors"
)

// NetworkResult is the outcome of one Fetch. A failed fetch is a normal
// result, not an error: OK is false and Err wraps ErrNetworkUnavailable.
type NetworkResult struct {
	Time    time.Time
	Server  string
	OK      bool
	Err     error
	Elapsed time.Duration
}

// Source queries an ordered list of time servers.
type Source struct {
	servers []string
	port    int
	timeout time.Duration
	querier Querier
	logger  *slog.Logger
}

// Option configures a Source
type Option func(*Source)

// WithQuerier replaces the protocol client
func WithQuerier(q Querier) Option {
	return func(s *Source) { s.querier = q }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) { s.logger = l }
}

// NewSource creates a Source from the network configuration.
func NewSource(cfg config.NetworkConfig, opts ...Option) *Source {
	s := &Source{
		servers: append([]string(nil), cfg.Servers...),
		port:    cfg.Port,
		timeout: cfg.Timeout,
		querier: NTPQuerier{},
		logger:  slog.Default(),
	}
	if s.port == 0 {
		s.port = config.TimeProtocolPort
	}
	if s.timeout <= 0 {
		s.timeout = config.NetworkTimeout
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "netclock"))
	return s
}

// Servers returns the configured server list in priority order
func (s *Source) Servers() []string {
	return append([]string(nil), s.servers...)
}

// Timeout returns the per-server deadline
func (s *Source) Timeout() time.Duration { return s.timeout }

// Fetch queries every server concurrently, each bounded by the configured
// timeout, and returns the successful answer from the earliest server in the
// list.
func (s *Source) Fetch(ctx context.Context) NetworkResult {
	start := time.Now()
	if len(s.servers) == 0 {
		return NetworkResult{Err: apperrors.NewLicenseError("netclock.fetch", apperrors.ErrNetworkUnavailable, "no time servers configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	times := make([]time.Time, len(s.servers))
	errs := make([]error, len(s.servers))

	var g errgroup.Group
	for i, server := range s.servers {
		g.Go(func() error {
			t, err := s.querier.Query(ctx, server, s.port, s.timeout)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", server, err)
				s.logger.Debug("Time server query failed",
					slog.String("server", server),
					slog.String("error", err.Error()))
				return nil
			}
			times[i] = t
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	for i, server := range s.servers {
		if errs[i] == nil {
			s.logger.Debug("Network time obtained",
				slog.String("server", server),
				slog.Time("network_time", times[i]),
				slog.Duration("elapsed", elapsed))
			return NetworkResult{Time: times[i], Server: server, OK: true, Elapsed: elapsed}
		}
	}

	cause := errors.Join(errs...)
	s.logger.Warn("No time server reachable",
		slog.Int("servers", len(s.servers)),
		slog.String("error", cause.Error()))
	return NetworkResult{
		Err:     apperrors.Wrap("netclock.fetch", apperrors.ErrNetworkUnavailable, cause),
		Elapsed: elapsed,
	}
}
