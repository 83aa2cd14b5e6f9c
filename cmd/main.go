package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/streamscout/internal/config"
	"github.com/okian/streamscout/pkg/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "3.0.0"

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second

	defaultRetryWaitMin = time.Second
	defaultRetryWaitMax = 10 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	conn := newConnector(cfg, log)
	if err := conn.CheckCredentials(); err != nil {
		log.Fatal(ctx, "twitch credentials missing; set STREAMSCOUT_TWITCH_CLIENT_ID and STREAMSCOUT_TWITCH_CLIENT_SECRET", logger.Error(err))
	}

	state, err := openSharedState(ctx, cfg, log)
	if err != nil {
		log.Fatal(ctx, "failed to open shared state", logger.String("backend", cfg.StoreBackend), logger.Error(err))
	}
	defer state.close()

	svc, err := newService(cfg, state, conn, log)
	if err != nil {
		log.Fatal(ctx, "failed to build service", logger.Error(err))
	}
	if err := svc.Start(ctx); err != nil {
		log.Fatal(ctx, "failed to start service", logger.Error(err))
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreBackend),
			logger.Bool("leader", svc.IsLeader()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
