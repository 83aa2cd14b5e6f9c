package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/streamscout/internal/adapters/catalog"
	"github.com/okian/streamscout/internal/adapters/mq/queue"
	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/internal/domain/scoring"
	"github.com/okian/streamscout/pkg/logger"
	"github.com/okian/streamscout/pkg/metrics"
)

// ForceRefresh starts a cycle unless one is already running anywhere.
// It returns the accepted request so callers can correlate logs.
func (s *Service) ForceRefresh(ctx context.Context) (model.RefreshRequest, error) {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return model.RefreshRequest{}, ErrNotStarted
	}

	req, err := s.trigger(ctx, q, model.ReasonForce)
	metrics.RecordForceRefresh(err == nil)
	return req, err
}

func (s *Service) schedule(ctx context.Context, q queue.Queue) {
	_, err := s.trigger(ctx, q, model.ReasonSchedule)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyRefreshing):
		s.logger.Debug(ctx, "scheduled refresh skipped, another cycle is running")
	default:
		s.logger.Warn(ctx, "scheduled refresh not started", logger.Error(err))
	}
}

// trigger claims the shared refresh flag and hands the cycle to the runner
// reading q. The flag is released again if q cannot take the request.
func (s *Service) trigger(ctx context.Context, q queue.Queue, reason string) (model.RefreshRequest, error) {
	const op = "service.trigger"

	req := model.NewRefreshRequest(reason, s.now())
	ok, err := s.store.BeginRefresh(ctx, req, s.staleAfter)
	if err != nil {
		metrics.RecordErrorByComponent("service", "begin_refresh")
		return model.RefreshRequest{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		metrics.RecordRefresh(metrics.OutcomeRejected, 0, 0)
		return model.RefreshRequest{}, ErrAlreadyRefreshing
	}

	if err := q.Enqueue(ctx, req); err != nil {
		s.release(ctx, req, err)
		return model.RefreshRequest{}, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info(ctx, "refresh accepted",
		logger.String("cycle_id", req.ID),
		logger.String("reason", reason),
	)
	return req, nil
}

// cycle runs one refresh: collect, score, rank, publish. Failures are
// recorded in the shared status and the previous snapshot stays live.
func (s *Service) cycle(ctx context.Context, req model.RefreshRequest) {
	metrics.SetRefreshing(true)
	defer metrics.SetRefreshing(false)

	start := s.now()
	log := s.logger.Named("cycle")
	log.Info(ctx, "refresh cycle started",
		logger.String("cycle_id", req.ID),
		logger.String("reason", req.Reason),
	)

	snap, err := s.build(ctx, req)
	took := s.now().Sub(start)
	if err != nil {
		s.cyclesFailed.Add(1)
		metrics.RecordRefresh(metrics.OutcomeFailed, took, 0)
		log.Error(ctx, "refresh cycle failed",
			logger.String("cycle_id", req.ID),
			logger.Duration("took", took),
			logger.Error(err),
		)
		s.release(ctx, req, err)
		return
	}

	snap.Duration = took
	published, err := s.store.CompleteRefresh(ctx, snap)
	if err != nil {
		s.cyclesFailed.Add(1)
		metrics.RecordRefresh(metrics.OutcomeFailed, took, 0)
		log.Error(ctx, "snapshot publish failed",
			logger.String("cycle_id", req.ID),
			logger.Error(err),
		)
		s.release(ctx, req, err)
		return
	}

	s.cyclesPublished.Add(1)
	metrics.RecordRefresh(metrics.OutcomePublished, took, len(published.Opportunities))
	log.Info(ctx, "refresh cycle published",
		logger.String("cycle_id", req.ID),
		logger.Int("opportunities", len(published.Opportunities)),
		logger.Int64("refresh_count", published.RefreshCount),
		logger.Duration("took", took),
	)
}

// build produces the next snapshot without touching shared state.
func (s *Service) build(ctx context.Context, req model.RefreshRequest) (model.Snapshot, error) {
	names := s.candidates(ctx)

	session, err := s.connector.Connect(ctx)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("connect: %w", err)
	}
	result, err := s.collector.Collect(ctx, session, names)
	if cerr := session.Close(); cerr != nil {
		s.logger.Warn(ctx, "upstream session close failed", logger.Error(cerr))
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("collect: %w", err)
	}
	stats := result.Stats
	s.lastStats.Store(&stats)

	scored := s.scorer.ScoreAll(result.Metrics, func(m model.EntityMetric, reason error) {
		metrics.RecordDisqualified(scoring.Reason(reason))
		s.logger.Debug(ctx, "entity disqualified",
			logger.String("entity", m.Name),
			logger.String("reason", reason.Error()),
		)
	})

	return model.Snapshot{
		GeneratedAt:     s.now(),
		RefreshInterval: s.interval,
		CycleID:         req.ID,
		Opportunities:   scoring.Rank(scored),
	}, nil
}

// candidates reads the catalog. A missing or unreadable catalog yields no
// names, which makes the collector fall back to the live top list.
func (s *Service) candidates(ctx context.Context) []string {
	if s.catalogPath == "" {
		return nil
	}
	doc, err := catalog.Load(s.catalogPath)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.logger.Warn(ctx, "catalog missing, using live top list", logger.String("path", s.catalogPath))
		} else {
			s.logger.Error(ctx, "catalog unreadable, using live top list",
				logger.String("path", s.catalogPath),
				logger.Error(err),
			)
		}
		return nil
	}
	return doc.Names()
}

// release records a failed cycle. It runs detached from cancellation so a
// shutdown mid-cycle still clears the flag.
func (s *Service) release(ctx context.Context, req model.RefreshRequest, cause error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeCleanupTimeout)
	defer cancel()
	if err := s.store.FailRefresh(cctx, req.ID, cause); err != nil {
		metrics.RecordErrorByComponent("service", "fail_refresh")
		s.logger.Error(ctx, "refresh flag release failed",
			logger.String("cycle_id", req.ID),
			logger.Error(err),
		)
	}
}
