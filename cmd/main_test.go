package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/streamscout/internal/adapters/lock"
	"github.com/okian/streamscout/internal/adapters/repository"
	"github.com/okian/streamscout/internal/config"
	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/pkg/logger"
)

func TestConfigFromEnvironment(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		t.Setenv("STREAMSCOUT_ADDR", ":8080")
		t.Setenv("STREAMSCOUT_STORE_BACKEND", "memory")
		t.Setenv("STREAMSCOUT_REFRESH_INTERVAL", "5m")

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.RefreshInterval.Minutes(), convey.ShouldEqual, 5)
		})
	})
}

func TestOpenSharedState(t *testing.T) {
	convey.Convey("Given a config per local backend", t, func() {
		ctx := context.Background()
		log := logger.NewNop()
		cfg := config.New()
		cfg.StateDir = filepath.Join(t.TempDir(), "state")

		convey.Convey("The memory backend always leads", func() {
			cfg.StoreBackend = config.BackendMemory
			state, err := openSharedState(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)
			defer state.close()

			_, ok := state.store.(*repository.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(state.leaderLock, convey.ShouldHaveSameTypeAs, lock.Local{})
		})

		convey.Convey("The file backend shares a directory and a file lock", func() {
			cfg.StoreBackend = config.BackendFile
			state, err := openSharedState(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)
			defer state.close()

			_, ok := state.store.(*repository.FileStore)
			convey.So(ok, convey.ShouldBeTrue)
			_, ok = state.leaderLock.(*lock.FileLock)
			convey.So(ok, convey.ShouldBeTrue)

			convey.Convey("And a second process cannot lead", func() {
				first, err := state.leaderLock.TryAcquire(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(first, convey.ShouldBeTrue)
				defer func() { _ = state.leaderLock.Release() }()

				other, err := openSharedState(ctx, cfg, log)
				convey.So(err, convey.ShouldBeNil)
				defer other.close()
				second, err := other.leaderLock.TryAcquire(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(second, convey.ShouldBeFalse)
			})
		})

		convey.Convey("The sqlite backend creates its database", func() {
			cfg.StoreBackend = config.BackendSQLite
			state, err := openSharedState(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)
			defer state.close()

			ok, err := state.store.BeginRefresh(ctx, model.NewRefreshRequest(model.ReasonForce, time.Now()), 0)
			convey.So(err, convey.ShouldBeNil)
			convey.So(ok, convey.ShouldBeTrue)

			_, err = os.Stat(filepath.Join(cfg.StateDir, "streamscout.db"))
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("An unknown backend is rejected", func() {
			cfg.StoreBackend = "redis"
			_, err := openSharedState(ctx, cfg, log)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestNewScorer(t *testing.T) {
	convey.Convey("Given weights that do not sum to one", t, func() {
		cfg := config.New()
		cfg.WeightEngagement = 0.5

		convey.Convey("Then building the scorer fails", func() {
			_, err := newScorer(cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestRoutes(t *testing.T) {
	convey.Convey("Given a fully wired mux over a fresh service", t, func() {
		ctx := context.Background()
		log := logger.NewNop()
		cfg := config.New()
		cfg.StoreBackend = config.BackendMemory
		cfg.TwitchClientID, cfg.TwitchClientSecret = "id", "secret"

		state, err := openSharedState(ctx, cfg, log)
		convey.So(err, convey.ShouldBeNil)
		defer state.close()

		svc, err := newService(cfg, state, newConnector(cfg, log), log)
		convey.So(err, convey.ShouldBeNil)
		mux := newMux(ctx, cfg, svc, log)

		cases := []struct {
			method, path string
			code         int
		}{
			{http.MethodGet, "/", http.StatusOK},
			{http.MethodGet, "/api/v1/analyze", http.StatusAccepted},
			{http.MethodGet, "/api/v1/health", http.StatusOK},
			{http.MethodGet, "/api/v1/status", http.StatusOK},
			{http.MethodGet, "/metrics", http.StatusOK},
			{http.MethodGet, "/openapi.yaml", http.StatusOK},
			{http.MethodGet, "/api-docs", http.StatusOK},
		}
		for _, tc := range cases {
			req := httptest.NewRequest(tc.method, tc.path, http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, tc.code)
		}
	})
}
