package app

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"licensegate/internal/config"
	apperrors "licensegate/internal/errors"
	"licensegate/internal/infrastructure"
	"licensegate/internal/license"
	customMiddleware "licensegate/internal/middleware"
	"licensegate/internal/netclock"
	"licensegate/internal/notify"
	"licensegate/internal/security"
	"licensegate/internal/timestore"
	handlers "licensegate/internal/transport/http"
	"licensegate/internal/trustedclock"
	ws "licensegate/internal/websocket"
	"licensegate/pkg/contracts/events"
)

// Application represents the main application container
type Application struct {
	Config         *config.Config
	Paths          *config.Paths
	Router         *chi.Mux
	Server         *http.Server
	Fingerprint    trustedclock.FingerprintSource
	Store          *timestore.Store
	Clock          *trustedclock.Clock
	LicenseManager *license.Manager
	WebSocketHub   *ws.Hub
	Guard          *customMiddleware.LicenseGuard
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders

	kv      timestore.KeyValueStore
	network trustedclock.TimeSource
	started bool
	done    chan struct{}
}

// Option overrides a component of the application, mainly for tests
type Option func(*Application)

// WithKeyValueStore replaces the configured slot backend
func WithKeyValueStore(kv timestore.KeyValueStore) Option {
	return func(a *Application) { a.kv = kv }
}

// WithTimeSource replaces the network time source
func WithTimeSource(src trustedclock.TimeSource) Option {
	return func(a *Application) { a.network = src }
}

// WithFingerprint replaces the device fingerprint source
func WithFingerprint(fp trustedclock.FingerprintSource) Option {
	return func(a *Application) { a.Fingerprint = fp }
}

// NewApplication loads the configuration and creates the application
func NewApplication(opts ...Option) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger, opts...)
}

// New wires every component for cfg
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("product_id", cfg.License.ProductID))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution()

	if !config.FileExists(paths.LicenseFile) {
		logger.Warn("License file not found",
			slog.String("path", paths.LicenseFile),
			slog.String("action", "License installation will be required"))
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFromTelemetry(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(app)
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// newKeyValueStore returns the slot backend named by cfg
func newKeyValueStore(cfg config.StorageConfig, paths *config.Paths) (timestore.KeyValueStore, error) {
	switch cfg.Backend {
	case "keyring":
		return timestore.NewKeyringStore(), nil
	case "file":
		dir := cfg.Dir
		if dir == "" {
			dir = paths.SlotsDir
		}
		return timestore.NewFileStore(dir), nil
	case "memory":
		return timestore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// initializeServices creates the guard components in dependency order
func (a *Application) initializeServices() error {
	cfg := a.Config
	meter := a.OTelProviders.Meter

	if a.Fingerprint == nil {
		a.Fingerprint = security.NewFingerprintManager(security.WithFingerprintLogger(a.Logger))
	}

	if a.kv == nil {
		kv, err := newKeyValueStore(cfg.Storage, a.Paths)
		if err != nil {
			return err
		}
		a.kv = kv
	}
	store, err := timestore.NewStore(a.kv, cfg.Storage.Namespaces, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create time store: %w", err)
	}
	a.Store = store

	if a.network == nil {
		a.network = netclock.NewSource(cfg.Network, netclock.WithLogger(a.Logger))
	}

	hubOpts := []ws.HubOption{ws.WithConfig(cfg.WebSocket), ws.WithSnapshot(a.snapshot)}
	if meter != nil {
		hubOpts = append(hubOpts, ws.WithMeter(meter))
	}
	a.WebSocketHub = ws.NewHub(a.Logger, hubOpts...)

	notifier := notify.NewMultiNotifier(
		notify.NewLogNotifier(a.Logger),
		ws.NewHubNotifier(a.WebSocketHub),
	)

	clockOpts := []trustedclock.Option{
		trustedclock.WithNotifier(notifier),
		trustedclock.WithLogger(a.Logger),
	}
	if cfg.Guard.DetectObserver {
		clockOpts = append(clockOpts, trustedclock.WithObserver(security.NewProcessObserver()))
	}
	if meter != nil {
		clockOpts = append(clockOpts, trustedclock.WithMeter(meter))
	}
	a.Clock = trustedclock.New(a.Fingerprint, a.Store, a.network, cfg.Guard, clockOpts...)

	var publicKey ed25519.PublicKey
	if cfg.License.PublicKey == "" {
		a.Logger.Warn("No issuer public key configured, every license will fail signature verification")
	} else {
		publicKey, err = license.ParsePublicKey(cfg.License.PublicKey)
		if err != nil {
			return fmt.Errorf("invalid issuer public key: %w", err)
		}
	}
	validator := license.NewValidator(cfg.License.ProductID, publicKey, a.Fingerprint, a.Clock)

	managerOpts := []license.ManagerOption{
		license.WithRequireNetwork(cfg.Guard.RequireNetwork),
		license.WithNotifier(notifier),
		license.WithLogger(a.Logger),
	}
	if meter != nil {
		managerOpts = append(managerOpts, license.WithMeter(meter))
	}
	a.LicenseManager = license.NewManager(a.Paths.LicenseFile, validator, a.Clock, managerOpts...)

	a.Guard = customMiddleware.NewLicenseGuard(a.LicenseManager, a.Clock, a.Logger)

	a.Logger.Info("Services initialized",
		slog.String("storage_backend", a.Store.Backend()),
		slog.Any("time_servers", cfg.Network.Servers),
		slog.Bool("require_network", cfg.Guard.RequireNetwork))
	return nil
}

// snapshot is sent to every websocket client after the greeting. It uses
// the cached license result and never triggers a check.
func (a *Application) snapshot(ctx context.Context) []events.Message {
	msgs := make([]events.Message, 0, 2)
	if res, err := a.LicenseManager.GetValidationState(); err == nil {
		msgs = append(msgs, events.NewMessage(events.TypeLicenseStatus,
			license.StatusFrom(res.Info, res.Err, res.CheckedAt)))
	}
	msgs = append(msgs, events.NewMessage(events.TypeClockStatus, a.Clock.Status()))
	return msgs
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apperrors.NewErrorHandler(a.Logger, false)

	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)

	if otelMiddleware, err := customMiddleware.NewOTelMiddleware(); err != nil {
		a.Logger.Warn("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(errorHandler.Recoverer)
	r.Use(customMiddleware.SecurityHeaders)

	if rl := a.Config.Security.RateLimit; rl.Enabled {
		r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Handle("/metrics", handlers.MetricsHandler(a.OTelProviders.PrometheusHTTP))
	r.Get("/ws", a.WebSocketHub.ServeHTTP)

	a.setupAPIRoutes(r)
	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewRequestValidator(a.Logger)

	healthHandler := handlers.NewHealthHandler(a.Clock, a.LicenseManager, a.Logger)
	licenseHandler := handlers.NewLicenseHandler(a.LicenseManager, a.Clock, validator, a.WebSocketHub, a.Logger)
	clockHandler := handlers.NewClockHandler(a.Clock, a.WebSocketHub, a.Logger)
	featuresHandler := handlers.NewFeaturesHandler(a.LicenseManager, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/health", healthHandler.HealthCheck)

		r.Route("/v1", func(r chi.Router) {
			r.Use(middleware.Timeout(a.Config.Server.ReadTimeout))

			r.Mount("/license", licenseHandler.Routes())
			r.Mount("/clock", clockHandler.Routes())

			r.Route("/features", func(r chi.Router) {
				r.Use(a.Guard.Handler)
				r.Get("/{name}", featuresHandler.GetFeature)
			})
		})
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start bootstraps the trusted clock through an initial license check, then
// starts the hub, the guard loop and the HTTP server. A failed license check
// is logged, not returned: the server stays up so a license can be installed.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	ctx = infrastructure.EnsureTraceID(ctx)
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.WebSocketHub.Start()
	a.started = true

	if _, err := a.LicenseManager.EnsureValid(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Initial license check failed",
			slog.String("error_code", string(apperrors.KindOf(err))),
			slog.String("error", err.Error()))
	}

	go a.runGuard(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
		slog.String("clock_state", string(a.Clock.Status().State)))
	return nil
}

// runGuard ticks the trusted clock until ctx is done. Tampering ends the
// loop; the verdict stays in effect for the rest of the process.
func (a *Application) runGuard(ctx context.Context) {
	defer close(a.done)

	err := a.Clock.Run(ctx, a.Config.Guard.TickInterval)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	a.Logger.ErrorContext(ctx, "Guard loop stopped",
		slog.String("error_code", string(apperrors.KindOf(err))),
		slog.String("error", err.Error()))
	a.Guard.InvalidateCache()

	bcCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if bcErr := a.WebSocketHub.Broadcast(bcCtx, events.TypeClockStatus, a.Clock.Status()); bcErr != nil {
		a.Logger.WarnContext(ctx, "Failed to broadcast clock status", slog.String("error", bcErr.Error()))
	}
}

// Stop gracefully stops the application. ctx must already be cancelled for
// the guard loop to exit.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.WebSocketHub.Stop()

	if a.started {
		select {
		case <-a.done:
		case <-shutdownCtx.Done():
			a.Logger.WarnContext(ctx, "Guard loop did not stop before the shutdown deadline")
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Start(runCtx, cancel); err != nil {
		return err
	}

	<-runCtx.Done()
	a.Logger.Info("Received shutdown signal")
	cancel()

	return a.Stop(context.Background())
}
