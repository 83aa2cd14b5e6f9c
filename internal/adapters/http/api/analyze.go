package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	service "github.com/okian/streamscout/internal/app"
	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/internal/domain/types"
	"github.com/okian/streamscout/pkg/logger"
)

// AnalyzeDependencies defines the reads and triggers used by analyze.
type AnalyzeDependencies interface {
	Analyze(ctx context.Context, limit int) (types.AnalyzeResponse, error)
	ForceRefresh(ctx context.Context) (model.RefreshRequest, error)
	DefaultLimit() int
}

// AnalyzeHandler serves the ranked opportunity list.
type AnalyzeHandler struct {
	deps   AnalyzeDependencies
	logger logger.Logger
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps AnalyzeDependencies, l logger.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps, logger: l}
}

// HandleAnalyze handles GET /api/v1/analyze?limit=N&force_refresh=bool.
// A missing or malformed limit falls back to the default; the service
// clamps the rest. force_refresh triggers a cycle but still answers from
// the current snapshot.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()

	limit := h.deps.DefaultLimit()
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	if force, _ := strconv.ParseBool(q.Get("force_refresh")); force {
		if _, err := h.deps.ForceRefresh(r.Context()); err != nil && !errors.Is(err, service.ErrAlreadyRefreshing) {
			h.logger.Warn(r.Context(), "force refresh from analyze not started", logger.Error(err))
		}
	}

	resp, err := h.deps.Analyze(r.Context(), limit)
	if err != nil {
		var warm *service.WarmingUpError
		if errors.As(err, &warm) {
			writeJSON(w, http.StatusAccepted, warm.Status)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
