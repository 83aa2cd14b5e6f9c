package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/streamscout/internal/domain/types"
	"github.com/okian/streamscout/pkg/metrics"
)

// HealthDependencies defines the diagnostic reads.
type HealthDependencies interface {
	Health(ctx context.Context) (types.Health, error)
	Status(ctx context.Context) (types.StatusReport, error)
}

// HealthHandler handles health and status requests. Neither has side effects.
type HealthHandler struct {
	deps HealthDependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// HandleHealth handles GET /api/v1/health.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	doc, err := h.deps.Health(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleStatus handles GET /api/v1/status.
func (h *HealthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	doc, err := h.deps.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// MetricsHandler exposes the Prometheus registry.
type MetricsHandler struct {
	handler http.Handler
}

// NewMetricsHandler creates a handler over the package-level registry.
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{handler: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})}
}

// HandleMetrics handles GET /metrics.
func (h *MetricsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}
