// Package main is the entrypoint for the Optigate API server: the gateway
// between the portfolio dashboard and the remote optimization service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sahilnarang/optigate/internal/api"
	"github.com/sahilnarang/optigate/internal/api/handler"
	mw "github.com/sahilnarang/optigate/internal/api/middleware"
	"github.com/sahilnarang/optigate/internal/api/response"
	"github.com/sahilnarang/optigate/internal/cache"
	"github.com/sahilnarang/optigate/internal/config"
	"github.com/sahilnarang/optigate/internal/optimizer"
	"github.com/sahilnarang/optigate/internal/run"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := serve(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func serve() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "optimizer", cfg.Optimizer.BaseURL, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 3. Create optimizer client and job runner
	optClient := optimizer.NewHTTPClient(cfg.Optimizer.BaseURL, cfg.Optimizer.Timeout)
	runner := run.NewRunner(optClient,
		run.WithInterval(cfg.Poll.Interval),
		run.WithMaxAttempts(cfg.Poll.MaxAttempts),
	)

	// 4. Build router with dependencies
	rateLimit := mw.NewRateLimit(redisCache, cfg.RateLimit.RequestsPerMin)

	deps := api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler:  healthHandler(redisCache, optClient),
		VersionHandler: handler.NewVersionHandler(),
		CompareHandler: handler.NewCompareHandler(runner),
		StatusHandler:  handler.NewStatusHandler(runner),
	}

	router := api.NewRouter(deps)

	// 5. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Abandon any run still polling; its ticks become no-ops.
	runner.Cancel()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks cache and optimizer connectivity.
func healthHandler(c cache.Cache, opt optimizer.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"cache":     "ok",
			"optimizer": "ok",
		}

		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}
		if err := opt.Health(r.Context()); err != nil {
			checks["optimizer"] = "degraded"
		}

		degraded := checks["cache"] != "ok" || checks["optimizer"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
