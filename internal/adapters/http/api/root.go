package api

import (
	"net/http"
	"time"

	"github.com/okian/streamscout/internal/domain/types"
)

type rootResponse struct {
	Status                 string            `json:"status"`
	Service                string            `json:"service"`
	Version                string            `json:"version"`
	Architecture           string            `json:"architecture"`
	RefreshIntervalMinutes float64           `json:"refresh_interval_minutes"`
	Endpoints              map[string]string `json:"endpoints"`
}

// RootProvider supplies the service facts shown on the root document.
type RootProvider interface {
	Interval() time.Duration
	Version() string
}

// RootHandler serves the service description at /.
type RootHandler struct {
	deps RootProvider
}

// NewRootHandler creates a new root handler.
func NewRootHandler(deps RootProvider) *RootHandler {
	return &RootHandler{deps: deps}
}

// HandleRoot handles GET / and answers 404 for any other unmatched path.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, nil)
		return
	}
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, rootResponse{
		Status:                 types.StatusOnline,
		Service:                "StreamScout - Twitch Streaming Opportunity Analyzer",
		Version:                h.deps.Version(),
		Architecture:           "Pre-computed cache, instant responses",
		RefreshIntervalMinutes: h.deps.Interval().Minutes(),
		Endpoints: map[string]string{
			"analysis":      "/api/v1/analyze",
			"force_refresh": "/api/v1/force-refresh",
			"health":        "/api/v1/health",
			"status":        "/api/v1/status",
			"metrics":       "/metrics",
			"docs":          "/api-docs",
		},
	})
}
