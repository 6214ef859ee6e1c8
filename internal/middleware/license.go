package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	apperrors "licensegate/internal/errors"
)

// DefaultCacheTTL is how long a successful license check is reused.
const DefaultCacheTTL = time.Minute

// LicenseGuard rejects requests while the license is invalid or the clock
// has been tampered with. Tampering is checked on every request; a valid
// license result is cached for the TTL.
type LicenseGuard struct {
	manager         LicenseEnforcer
	clock           TamperSource
	logger          *slog.Logger
	excludePaths    []string
	excludePrefixes []string
	ttl             time.Duration
	now             func() time.Time

	mu        sync.Mutex
	validTill time.Time

	blocked metric.Int64Counter
}

// NewLicenseGuard creates the guard middleware
func NewLicenseGuard(manager LicenseEnforcer, clock TamperSource, logger *slog.Logger) *LicenseGuard {
	blocked, _ := otel.Meter("license-middleware").Int64Counter(
		"license_middleware_blocked_total",
		metric.WithDescription("Requests rejected by the license guard"),
	)
	return &LicenseGuard{
		manager: manager,
		clock:   clock,
		logger:  logger.With(slog.String("component", "license_middleware")),
		ttl:     DefaultCacheTTL,
		now:     time.Now,
		excludePaths: []string{
			"/api/health",
			"/api/v1/license",
			"/api/v1/license/verify",
			"/api/v1/license/install",
			"/api/v1/clock",
			"/api/v1/clock/check",
			"/metrics",
			"/ws",
		},
		blocked: blocked,
	}
}

// AddExcludePath lets path through without a license
func (g *LicenseGuard) AddExcludePath(path string) {
	g.excludePaths = append(g.excludePaths, path)
}

// AddExcludePrefix lets every path under prefix through without a license
func (g *LicenseGuard) AddExcludePrefix(prefix string) {
	g.excludePrefixes = append(g.excludePrefixes, prefix)
}

// SetCacheTTL sets how long a successful check is reused
func (g *LicenseGuard) SetCacheTTL(ttl time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ttl = ttl
}

// InvalidateCache forces the next request to re-validate
func (g *LicenseGuard) InvalidateCache() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.validTill = time.Time{}
}

// Handler returns the middleware handler function
func (g *LicenseGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.shouldExcludePath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx, span := otel.Tracer("license-middleware").Start(r.Context(), "license_middleware.validate",
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.url", r.URL.Path),
			),
		)
		defer span.End()

		if err := g.check(ctx); err != nil {
			span.SetAttributes(attribute.String("license.error_code", string(apperrors.KindOf(err))))
			g.reject(w, r.WithContext(ctx), err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *LicenseGuard) check(ctx context.Context) error {
	if err := g.clock.TamperError(); err != nil {
		return err
	}

	g.mu.Lock()
	cached := g.now().Before(g.validTill)
	g.mu.Unlock()
	if cached {
		return nil
	}

	if _, err := g.manager.EnsureValid(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	g.validTill = g.now().Add(g.ttl)
	g.mu.Unlock()
	return nil
}

func (g *LicenseGuard) reject(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	traceID := GetReqID(ctx)
	kind := apperrors.KindOf(err)

	g.blocked.Add(ctx, 1, metric.WithAttributes(attribute.String("error_code", string(kind))))
	g.logger.WarnContext(ctx, "request blocked by license guard",
		slog.String("path", r.URL.Path),
		slog.String("error_code", string(kind)),
		slog.String("error", err.Error()))

	problem := apperrors.MapLicenseError(err, traceID)
	problem.Instance = r.URL.Path
	render.Render(w, r, problem)
}

func (g *LicenseGuard) shouldExcludePath(path string) bool {
	if slices.Contains(g.excludePaths, path) {
		return true
	}
	for _, prefix := range g.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
