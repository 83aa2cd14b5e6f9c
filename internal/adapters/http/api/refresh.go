package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/streamscout/internal/app"
	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/internal/domain/types"
	"github.com/okian/streamscout/pkg/logger"
)

// RefreshDependencies defines the force-refresh trigger.
type RefreshDependencies interface {
	ForceRefresh(ctx context.Context) (model.RefreshRequest, error)
}

// RefreshHandler triggers out-of-schedule refresh cycles.
type RefreshHandler struct {
	deps   RefreshDependencies
	logger logger.Logger
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies, l logger.Logger) *RefreshHandler {
	return &RefreshHandler{deps: deps, logger: l}
}

// HandleForceRefresh handles POST /api/v1/force-refresh.
func (h *RefreshHandler) HandleForceRefresh(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	req, err := h.deps.ForceRefresh(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, types.RefreshAck{
			Status:    types.StatusRefreshStarted,
			Message:   "Background refresh triggered",
			RequestID: req.ID,
		})
	case errors.Is(err, service.ErrAlreadyRefreshing):
		writeJSON(w, http.StatusConflict, types.RefreshAck{
			Status:  types.StatusAlreadyRefreshing,
			Message: "A refresh is already in progress",
		})
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, ErrUnavailable)
	default:
		h.logger.Error(r.Context(), "force refresh failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}
