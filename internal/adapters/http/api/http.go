// Package api maps the published read surface onto HTTP routes.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/internal/domain/types"
	"github.com/okian/streamscout/pkg/logger"
)

// Dependencies required by HTTP handlers. Handlers only read through this
// bundle and never reach the upstream provider.
type Dependencies interface {
	Analyze(ctx context.Context, limit int) (types.AnalyzeResponse, error)
	ForceRefresh(ctx context.Context) (model.RefreshRequest, error)
	Health(ctx context.Context) (types.Health, error)
	Status(ctx context.Context) (types.StatusReport, error)

	DefaultLimit() int
	Interval() time.Duration
	Version() string
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	rootHandler    *RootHandler
	analyzeHandler *AnalyzeHandler
	refreshHandler *RefreshHandler
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	metricsHandler *MetricsHandler

	corsOrigin string
	logger     logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		corsOrigin: "*",
		logger:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rootHandler = NewRootHandler(deps)
	s.analyzeHandler = NewAnalyzeHandler(deps, s.logger)
	s.refreshHandler = NewRefreshHandler(deps, s.logger)
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(deps)
	s.metricsHandler = NewMetricsHandler()
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, CORSMiddleware(MetricsMiddleware(h, endpoint), s.corsOrigin))
	}

	route("/api/v1/analyze", "analyze", s.analyzeHandler.HandleAnalyze)
	route("/api/v1/force-refresh", "force_refresh", s.refreshHandler.HandleForceRefresh)
	route("/api/v1/health", "health", s.healthHandler.HandleHealth)
	route("/api/v1/status", "status", s.healthHandler.HandleStatus)
	route("/api/v1/stats", "stats", s.statsHandler.HandleStats)
	mux.HandleFunc("/metrics", s.metricsHandler.HandleMetrics)
	route("/", "root", s.rootHandler.HandleRoot)
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Status: types.StatusError, Message: msg})
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, ErrMethodNotAllowed)
	return false
}
