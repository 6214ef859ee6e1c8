package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler returns the Prometheus scrape handler. A nil registry
// handler falls back to the default registry.
func MetricsHandler(registry http.Handler) http.Handler {
	if registry != nil {
		return registry
	}
	return promhttp.Handler()
}
