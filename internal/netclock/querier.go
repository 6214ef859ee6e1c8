package netclock

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/beevik/ntp"
)

// Querier asks a single time server for the current time.
type Querier interface {
	Query(ctx context.Context, server string, port int, timeout time.Duration) (time.Time, error)
}

// QuerierFunc adapts a function to Querier
type QuerierFunc func(ctx context.Context, server string, port int, timeout time.Duration) (time.Time, error)

// Query implements Querier
func (f QuerierFunc) Query(ctx context.Context, server string, port int, timeout time.Duration) (time.Time, error) {
	return f(ctx, server, port, timeout)
}

// NTPQuerier speaks the time protocol over UDP using beevik/ntp.
type NTPQuerier struct{}

type queryResult struct {
	t   time.Time
	err error
}

// Query sends one request to server and validates the reply. Replies from
// unsynchronized servers and kiss-of-death packets are rejected.
func (NTPQuerier) Query(ctx context.Context, server string, port int, timeout time.Duration) (time.Time, error) {
	addr := net.JoinHostPort(server, strconv.Itoa(port))

	// ntp has no context support; the buffered channel lets the goroutine
	// finish after the caller has given up.
	done := make(chan queryResult, 1)
	go func() {
		resp, err := ntp.QueryWithOptions(addr, ntp.QueryOptions{Timeout: timeout})
		if err != nil {
			done <- queryResult{err: err}
			return
		}
		if err := resp.Validate(); err != nil {
			done <- queryResult{err: fmt.Errorf("invalid response: %w", err)}
			return
		}
		done <- queryResult{t: resp.Time}
	}()

	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case r := <-done:
		return r.t, r.err
	}
}
