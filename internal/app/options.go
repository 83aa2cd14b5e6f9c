package service

import (
	"time"

	"github.com/okian/streamscout/internal/adapters/lock"
	"github.com/okian/streamscout/internal/adapters/repository"
	"github.com/okian/streamscout/internal/adapters/upstream"
	"github.com/okian/streamscout/internal/domain/collector"
	"github.com/okian/streamscout/internal/domain/scoring"
	"github.com/okian/streamscout/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the shared snapshot store. The caller keeps ownership.
func WithStore(store repository.SnapshotStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLeaderLock sets the lock deciding which process runs the timer.
func WithLeaderLock(l lock.LeaderLock) Option {
	return func(s *Service) {
		if l != nil {
			s.leaderLock = l
		}
	}
}

// WithConnector sets the upstream connector used by refresh cycles.
func WithConnector(c upstream.Connector) Option {
	return func(s *Service) {
		if c != nil {
			s.connector = c
		}
	}
}

// WithCollector sets the metrics collector.
func WithCollector(c *collector.Collector) Option {
	return func(s *Service) {
		if c != nil {
			s.collector = c
		}
	}
}

// WithScorer sets the opportunity scorer.
func WithScorer(sc *scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithCatalogPath sets the candidate list file read at the start of each cycle.
func WithCatalogPath(path string) Option {
	return func(s *Service) {
		s.catalogPath = path
	}
}

// WithInterval sets the recurring refresh interval.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithStaleAfter sets how long a refresh flag may be held before it is
// considered abandoned. Zero disables the guard.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.staleAfter = d
		}
	}
}

// WithLimits sets the default and maximum analyze limits.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if defaultLimit > 0 && maxLimit >= defaultLimit {
			s.defaultLimit, s.maxLimit = defaultLimit, maxLimit
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithVersion sets the version reported by status documents.
func WithVersion(v string) Option {
	return func(s *Service) {
		if v != "" {
			s.version = v
		}
	}
}
