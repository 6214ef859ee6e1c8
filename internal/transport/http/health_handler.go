package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"licensegate/internal/license"
	"licensegate/pkg/contracts"
	api "licensegate/pkg/contracts/api/v1"
	"licensegate/pkg/contracts/domain"
)

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	clock   ClockService
	license LicenseService
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(clock ClockService, lic LicenseService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		clock:   clock,
		license: lic,
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /api/health. It never triggers a license check;
// the license state is the most recent cached result, if any.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	clock := h.clock.Status()
	resp := api.HealthResponse{
		Status:    "ok",
		Version:   contracts.Version,
		Clock:     clock.State,
		Timestamp: h.clock.Now(),
	}

	if res, err := h.license.GetValidationState(); err == nil {
		resp.License = license.StatusFrom(res.Info, res.Err, res.CheckedAt).State
	}

	switch clock.State {
	case domain.ClockStateTampered:
		resp.Status = "tampered"
		render.Status(r, http.StatusServiceUnavailable)
	case domain.ClockStateUninitialized:
		resp.Status = "starting"
	}
	render.JSON(w, r, resp)
}
