package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/okian/streamscout/internal/adapters/http/api"
	"github.com/okian/streamscout/internal/adapters/http/swagger"
	"github.com/okian/streamscout/internal/adapters/lock"
	"github.com/okian/streamscout/internal/adapters/repository"
	"github.com/okian/streamscout/internal/adapters/upstream/helix"
	app "github.com/okian/streamscout/internal/app"
	"github.com/okian/streamscout/internal/config"
	"github.com/okian/streamscout/internal/domain/collector"
	"github.com/okian/streamscout/internal/domain/scoring"
	"github.com/okian/streamscout/pkg/logger"
)

// leaderLockFile lives next to the file and sqlite state.
const leaderLockFile = "scheduler.lock"

// sharedState bundles the store and leader lock chosen by store_backend.
// close releases everything the backend opened.
type sharedState struct {
	store      repository.SnapshotStore
	leaderLock lock.LeaderLock
	close      func()
}

func openSharedState(ctx context.Context, cfg *config.Config, log logger.Logger) (*sharedState, error) {
	storeOpts := []repository.Option{repository.WithLogger(log.Named("store"))}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		store := repository.NewMemoryStore()
		return &sharedState{store: store, leaderLock: lock.Local{}, close: func() { _ = store.Close() }}, nil

	case config.BackendFile, config.BackendSQLite:
		var (
			store repository.SnapshotStore
			err   error
		)
		if cfg.StoreBackend == config.BackendFile {
			store, err = repository.NewFileStore(cfg.StateDir, storeOpts...)
		} else {
			store, err = repository.NewSQLiteStore(ctx, filepath.Join(cfg.StateDir, "streamscout.db"), storeOpts...)
		}
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
		}
		fl, err := lock.NewFileLock(filepath.Join(cfg.StateDir, leaderLockFile))
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("open leader lock: %w", err)
		}
		return &sharedState{store: store, leaderLock: fl, close: func() { _ = store.Close() }}, nil

	case config.BackendPostgres:
		pool, err := repository.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		store, err := repository.NewPostgresStore(ctx, pool, storeOpts...)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return &sharedState{
			store:      store,
			leaderLock: lock.NewAdvisoryLock(pool.Pool, lock.DefaultAdvisoryKey),
			close: func() {
				_ = store.Close()
				pool.Close()
			},
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown store_backend %q", config.ErrInvalidConfig, cfg.StoreBackend)
}

func newConnector(cfg *config.Config, log logger.Logger) *helix.Client {
	return helix.New(cfg.TwitchClientID, cfg.TwitchClientSecret,
		helix.WithBaseURL(cfg.HelixBaseURL),
		helix.WithAuthURL(cfg.AuthURL),
		helix.WithRequestTimeout(cfg.UpstreamTimeout),
		helix.WithRetry(cfg.UpstreamRetryMax, defaultRetryWaitMin, defaultRetryWaitMax),
		helix.WithHandshakeTimeout(cfg.HandshakeTimeout),
		helix.WithWarmupDelay(cfg.WarmupDelay),
		helix.WithLogger(log.Named("helix")),
	)
}

func newCollector(cfg *config.Config, log logger.Logger) *collector.Collector {
	return collector.New(
		collector.WithLogger(log.Named("collector")),
		collector.WithMaxCandidates(cfg.MaxCandidates),
		collector.WithChunkSize(cfg.ValidateChunkSize),
		collector.WithChunkDelay(cfg.ChunkDelay),
		collector.WithBatchSize(cfg.FetchBatchSize),
		collector.WithBatchDelay(cfg.BatchDelay),
		collector.WithPageSize(cfg.BroadcastPageSize),
		collector.WithFallbackTopCount(cfg.FallbackTopCount),
	)
}

func newScorer(cfg *config.Config) (*scoring.Scorer, error) {
	w, err := scoring.NewWeights(cfg.WeightDiscoverability, cfg.WeightViability, cfg.WeightEngagement)
	if err != nil {
		return nil, err
	}
	return scoring.NewScorer(
		scoring.WithWeights(w),
		scoring.WithMaxViewers(cfg.MaxViewers),
		scoring.WithMaxDominance(cfg.MaxDominance),
		scoring.WithBoxArtSize(cfg.BoxArtWidth, cfg.BoxArtHeight),
	), nil
}

func newService(cfg *config.Config, state *sharedState, conn *helix.Client, log logger.Logger) (*app.Service, error) {
	scorer, err := newScorer(cfg)
	if err != nil {
		return nil, err
	}
	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithStore(state.store),
		app.WithLeaderLock(state.leaderLock),
		app.WithConnector(conn),
		app.WithCollector(newCollector(cfg, log)),
		app.WithScorer(scorer),
		app.WithCatalogPath(cfg.CatalogPath),
		app.WithInterval(cfg.RefreshInterval),
		app.WithStaleAfter(cfg.StaleRefreshAfter),
		app.WithLimits(cfg.DefaultLimit, cfg.MaxLimit),
		app.WithVersion(version),
	), nil
}

func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithLogger(log.Named("api")),
		api.WithCORSOrigin(cfg.CORSOrigin),
	).Register(ctx, mux)
	return mux
}
