// Package service is the refresh coordinator and cache behind the HTTP API.
//
// One Service runs per process. Every process serves reads from the shared
// store and accepts force-refresh triggers; only the process holding the
// leader lock runs the recurring timer.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/streamscout/internal/adapters/lock"
	"github.com/okian/streamscout/internal/adapters/mq/queue"
	"github.com/okian/streamscout/internal/adapters/repository"
	"github.com/okian/streamscout/internal/adapters/upstream"
	"github.com/okian/streamscout/internal/domain/collector"
	"github.com/okian/streamscout/internal/domain/scoring"
	"github.com/okian/streamscout/pkg/logger"
	"github.com/okian/streamscout/pkg/metrics"
)

// Defaults.
const (
	defaultInterval     = 10 * time.Minute
	defaultStaleAfter   = 30 * time.Minute
	defaultLimit        = 100
	defaultMaxLimit     = 200
	defaultVersion      = "dev"
	storeCleanupTimeout = 5 * time.Second
)

// Service coordinates refresh cycles and serves the published snapshot.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	store      repository.SnapshotStore
	leaderLock lock.LeaderLock
	connector  upstream.Connector
	collector  *collector.Collector
	scorer     *scoring.Scorer
	queue      queue.Queue

	// Configuration
	catalogPath  string
	interval     time.Duration
	staleAfter   time.Duration
	defaultLimit int
	maxLimit     int
	version      string
	now          func() time.Time

	// State
	started bool
	leader  atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	cyclesPublished atomic.Int64
	cyclesFailed    atomic.Int64
	lastStats       atomic.Pointer[collector.Stats]

	logger logger.Logger
}

// New constructs a Service. Without options it uses an in-memory store
// and always leads, which suits a single process.
func New(opts ...Option) *Service {
	s := &Service{
		store:        repository.NewMemoryStore(),
		leaderLock:   lock.Local{},
		collector:    collector.New(),
		scorer:       scoring.NewScorer(),
		interval:     defaultInterval,
		staleAfter:   defaultStaleAfter,
		defaultLimit: defaultLimit,
		maxLimit:     defaultMaxLimit,
		version:      defaultVersion,
		now:          time.Now,
		logger:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start tries leadership once, starts the cycle runner and, when leading,
// the recurring timer whose first tick fires immediately.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.connector == nil {
		return ErrNoConnector
	}

	leader, err := s.leaderLock.TryAcquire(ctx)
	if err != nil {
		s.logger.Warn(ctx, "leader lock unavailable, serving reads only", logger.Error(err))
		leader = false
	}
	s.leader.Store(leader)
	metrics.SetLeader(leader)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	q := queue.NewInMemoryQueue()
	s.queue = q

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(runCtx, q)
	}()

	if leader {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tick(runCtx, q)
		}()
	}

	s.started = true
	s.logger.Info(ctx, "refresh coordinator started",
		logger.Bool("leader", leader),
		logger.Duration("interval", s.interval),
		logger.Duration("stale_after", s.staleAfter),
	)
	return nil
}

// Stop cancels any in-flight cycle, waits for background work to end and
// gives up leadership. The store is left open for its owner to close.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping refresh coordinator...")

	s.cancel()
	_ = s.queue.Close()
	s.wg.Wait()
	for req := range s.queue.Dequeue() {
		s.release(ctx, req, context.Canceled)
	}

	if s.leader.Load() {
		if err := s.leaderLock.Release(); err != nil {
			s.logger.Warn(ctx, "leader lock release failed", logger.Error(err))
		}
		s.leader.Store(false)
		metrics.SetLeader(false)
	}

	s.started = false
	s.logger.Info(ctx, "refresh coordinator stopped")
}

// IsLeader reports whether this process runs the recurring timer.
func (s *Service) IsLeader() bool { return s.leader.Load() }

// Interval returns the recurring refresh interval.
func (s *Service) Interval() time.Duration { return s.interval }

// Version returns the version reported by status documents.
func (s *Service) Version() string { return s.version }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"leader":           s.leader.Load(),
		"interval_seconds": s.interval.Seconds(),
		"cycles_published": s.cyclesPublished.Load(),
		"cycles_failed":    s.cyclesFailed.Load(),
	}
	if s.started {
		stats["queue_length"] = s.queue.Len()
	}
	if last := s.lastStats.Load(); last != nil {
		stats["last_collection"] = *last
	}
	return stats
}

// tick triggers a scheduled cycle now and then every interval.
func (s *Service) tick(ctx context.Context, q queue.Queue) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.schedule(ctx, q)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.schedule(ctx, q)
		}
	}
}

// run executes accepted cycles one at a time until q closes.
func (s *Service) run(ctx context.Context, q queue.Queue) {
	requests := q.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			s.cycle(ctx, req)
		}
	}
}
