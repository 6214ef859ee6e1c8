package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "licensegate/internal/errors"
	"licensegate/internal/middleware"
	api "licensegate/pkg/contracts/api/v1"
	"licensegate/pkg/contracts/events"
)

// ClockHandler exposes the trusted clock
type ClockHandler struct {
	clock       ClockService
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewClockHandler creates a new clock handler. broadcaster may be nil.
func NewClockHandler(clock ClockService, broadcaster Broadcaster, logger *slog.Logger) *ClockHandler {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	return &ClockHandler{
		clock:       clock,
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("handler", "clock")),
	}
}

// Routes returns a chi router for clock endpoints
func (h *ClockHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetStatus)
	r.Post("/check", h.Check)
	return r
}

// GetStatus handles GET /api/v1/clock
func (h *ClockHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.clock.Status())
}

// Check handles POST /api/v1/clock/check by running one guard tick now.
// Tampering is answered with a problem document.
func (h *ClockHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.clock.CheckAndUpdate(ctx)
	status := h.clock.Status()
	if bcErr := h.broadcaster.Broadcast(ctx, events.TypeClockStatus, status); bcErr != nil {
		h.logger.WarnContext(ctx, "Failed to broadcast clock status",
			slog.String("error", bcErr.Error()))
	}

	if err != nil && apperrors.IsFatal(err) {
		h.logger.WarnContext(ctx, "Clock check failed",
			slog.String("error_code", string(apperrors.KindOf(err))),
			slog.String("error", err.Error()))
		problem := apperrors.MapLicenseError(err, middleware.GetReqID(ctx))
		problem.Instance = r.URL.Path
		problem.WithExtension("clock", status)
		render.Render(w, r, problem)
		return
	}

	resp := api.ClockCheckResponse{Status: status}
	if err != nil {
		resp.Error = err.Error()
	}
	render.JSON(w, r, resp)
}
