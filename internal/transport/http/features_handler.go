package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "licensegate/internal/errors"
	"licensegate/internal/middleware"
)

// FeatureResponse reports whether the installed license grants a feature
type FeatureResponse struct {
	Feature string `json:"feature"`
	Enabled bool   `json:"enabled"`
}

// FeaturesHandler answers feature entitlement queries from the host
// application. It is mounted behind the license guard.
type FeaturesHandler struct {
	service LicenseService
	logger  *slog.Logger
}

// NewFeaturesHandler creates a new features handler
func NewFeaturesHandler(service LicenseService, logger *slog.Logger) *FeaturesHandler {
	return &FeaturesHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "features")),
	}
}

// GetFeature handles GET /api/v1/features/{name}
func (h *FeaturesHandler) GetFeature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	info, err := h.service.EnsureValid(ctx)
	if err != nil {
		problem := apperrors.MapLicenseError(err, middleware.GetReqID(ctx))
		problem.Instance = r.URL.Path
		render.Render(w, r, problem)
		return
	}

	render.JSON(w, r, FeatureResponse{Feature: name, Enabled: info.HasFeature(name)})
}
