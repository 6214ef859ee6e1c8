package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "licensegate/internal/errors"
	"licensegate/internal/license"
	"licensegate/internal/middleware"
	api "licensegate/pkg/contracts/api/v1"
	"licensegate/pkg/contracts/events"
)

// LicenseHandler handles license-related HTTP requests
type LicenseHandler struct {
	service     LicenseService
	clock       ClockService
	validator   *middleware.RequestValidator
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewLicenseHandler creates a new license handler. broadcaster may be nil.
func NewLicenseHandler(service LicenseService, clock ClockService, validator *middleware.RequestValidator, broadcaster Broadcaster, logger *slog.Logger) *LicenseHandler {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	return &LicenseHandler{
		service:     service,
		clock:       clock,
		validator:   validator,
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("handler", "license")),
	}
}

// Routes returns a chi router for license endpoints
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetStatus)
	r.Post("/verify", h.Verify)
	r.Post("/install", h.Install)
	return r
}

// GetStatus handles GET /api/v1/license. Every license state is a 200; the
// body tells the caller whether it may run.
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("license-handler").Start(r.Context(), "license_handler.get_status",
		trace.WithAttributes(attribute.String("http.route", "/api/v1/license")))
	defer span.End()

	status := h.service.Status(ctx)
	span.SetAttributes(attribute.String("license.state", string(status.State)))
	render.JSON(w, r, status)
}

// Verify handles POST /api/v1/license/verify. The document is checked
// against this installation but not installed.
func (h *LicenseHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req api.LicenseDocumentRequest
	if !h.validator.Decode(w, r, &req) {
		return
	}

	info, err := h.service.Check(r.Context(), []byte(req.Document))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, license.StatusFrom(info, nil, h.clock.Now()))
}

// Install handles POST /api/v1/license/install
func (h *LicenseHandler) Install(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LicenseDocumentRequest
	if !h.validator.Decode(w, r, &req) {
		return
	}

	info, err := h.service.Install(ctx, []byte(req.Document))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	status := license.StatusFrom(info, nil, h.clock.Now())
	if err := h.broadcaster.Broadcast(ctx, events.TypeLicenseStatus, status); err != nil {
		h.logger.WarnContext(ctx, "Failed to broadcast license status",
			slog.String("error", err.Error()))
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, status)
}

func (h *LicenseHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, "License request failed",
		slog.String("path", r.URL.Path),
		slog.String("error_code", string(apperrors.KindOf(err))),
		slog.String("error", err.Error()))

	problem := apperrors.MapLicenseError(err, middleware.GetReqID(ctx))
	problem.Instance = r.URL.Path
	render.Render(w, r, problem)
}
