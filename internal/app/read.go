package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/streamscout/internal/adapters/repository"
	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/internal/domain/types"
	"github.com/okian/streamscout/pkg/logger"
	"github.com/okian/streamscout/pkg/metrics"
)

const (
	serviceName      = "StreamScout"
	architecture     = "background_worker"
	warmingUpMessage = "StreamScout is fetching initial data. Please retry in 30-60 seconds."
)

// DefaultLimit is the analyze limit used when the caller gives none.
func (s *Service) DefaultLimit() int { return s.defaultLimit }

// ClampLimit bounds limit to [1, max].
func (s *Service) ClampLimit(limit int) int {
	return min(max(limit, 1), s.maxLimit)
}

// Analyze serves the top limit opportunities of the published snapshot.
// Before the first publication it returns a *WarmingUpError. It never
// calls upstream.
func (s *Service) Analyze(ctx context.Context, limit int) (types.AnalyzeResponse, error) {
	now := s.now()
	snap := s.snapshot(ctx)
	status := s.status(ctx)

	if snap == nil {
		return types.AnalyzeResponse{}, &WarmingUpError{Status: types.WarmingUp{
			Status:       types.StatusWarmingUp,
			Message:      warmingUpMessage,
			IsRefreshing: status.InFlight(now, s.staleAfter),
			Timestamp:    now.UTC(),
		}}
	}

	interval := snap.RefreshInterval
	if interval <= 0 {
		interval = s.interval
	}
	return types.AnalyzeResponse{
		Timestamp:              snap.GeneratedAt.UTC(),
		TotalGamesAnalyzed:     len(snap.Opportunities),
		TopOpportunities:       types.PresentAll(snap.Top(s.ClampLimit(limit))),
		RefreshIntervalMinutes: interval.Minutes(),
		FetchDurationSeconds:   types.Round(snap.Duration.Seconds(), 2),
		RefreshCount:           snap.RefreshCount,
		CacheAgeSeconds:        types.Seconds(snap.Age(now)),
		NextRefreshInSeconds:   types.Seconds(snap.NextRefreshIn(now)),
		IsRefreshing:           status.InFlight(now, s.staleAfter),
		LastError:              status.LastError,
	}, nil
}

// Health reports liveness plus a summary of the shared state.
func (s *Service) Health(ctx context.Context) (types.Health, error) {
	now := s.now()
	snap, status, err := s.diagnostics(ctx)
	if err != nil {
		return types.Health{}, err
	}

	h := types.Health{
		Status:       types.StatusHealthy,
		CacheActive:  snap != nil,
		IsRefreshing: status.InFlight(now, s.staleAfter),
		RefreshCount: status.RefreshCount,
		Leader:       s.IsLeader(),
		Timestamp:    now.UTC(),
	}
	if snap != nil {
		age := types.Seconds(snap.Age(now))
		took := types.Round(snap.Duration.Seconds(), 2)
		h.CacheAgeSeconds = &age
		h.LastRefreshDuration = &took
	}
	if status.LastError != "" {
		msg := status.LastError
		h.LastError = &msg
	}
	return h, nil
}

// Status reports the detailed diagnostic document.
func (s *Service) Status(ctx context.Context) (types.StatusReport, error) {
	now := s.now()
	snap, status, err := s.diagnostics(ctx)
	if err != nil {
		return types.StatusReport{}, err
	}

	report := types.StatusReport{
		Service:      serviceName,
		Version:      s.version,
		Architecture: architecture,
		Cache: types.CacheStatus{
			HasData:            snap != nil,
			NextRefreshSeconds: types.Seconds(snap.NextRefreshIn(now)),
			TotalRefreshes:     status.RefreshCount,
		},
		Worker: types.WorkerStatus{
			IsRefreshing:    status.InFlight(now, s.staleAfter),
			IntervalMinutes: s.interval.Minutes(),
			Leader:          s.IsLeader(),
		},
		Timestamp: now.UTC(),
	}
	if snap != nil {
		age := types.Seconds(snap.Age(now))
		took := types.Round(snap.Duration.Seconds(), 2)
		report.Cache.AgeSeconds = &age
		report.Cache.LastDurationSeconds = &took
	}
	if report.Worker.IsRefreshing {
		report.Worker.CycleID = status.CycleID
	}
	if status.LastError != "" {
		msg := status.LastError
		report.Worker.LastError = &msg
	}
	return report, nil
}

// snapshot loads the published snapshot for the hot read path. Any store
// failure reads as absent.
func (s *Service) snapshot(ctx context.Context) *model.Snapshot {
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			metrics.RecordSnapshotReadError()
			s.logger.Warn(ctx, "snapshot read failed, serving as absent", logger.Error(err))
		}
		return nil
	}
	return snap
}

func (s *Service) status(ctx context.Context) model.RefreshStatus {
	st, err := s.store.LoadStatus(ctx)
	if err != nil {
		s.logger.Warn(ctx, "refresh status read failed, serving as idle", logger.Error(err))
		return model.RefreshStatus{}
	}
	return st
}

// diagnostics loads both halves of the shared state. Absent or corrupt
// records read as empty; any other store failure is returned.
func (s *Service) diagnostics(ctx context.Context) (*model.Snapshot, model.RefreshStatus, error) {
	const op = "service.diagnostics"

	snap, err := s.store.LoadSnapshot(ctx)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		snap = nil
	case errors.Is(err, repository.ErrCorrupt):
		metrics.RecordSnapshotReadError()
		snap = nil
	default:
		metrics.RecordSnapshotReadError()
		return nil, model.RefreshStatus{}, fmt.Errorf("%s: %w", op, err)
	}

	status, err := s.store.LoadStatus(ctx)
	if err != nil && !errors.Is(err, repository.ErrCorrupt) {
		return nil, model.RefreshStatus{}, fmt.Errorf("%s: %w", op, err)
	}
	return snap, status, nil
}
