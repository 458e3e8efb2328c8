package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crucible-sandbox/crucible/pkg/config"
	"github.com/crucible-sandbox/crucible/pkg/gateway"
	"github.com/crucible-sandbox/crucible/pkg/languages"
	"github.com/crucible-sandbox/crucible/pkg/session"
	"github.com/crucible-sandbox/crucible/pkg/telemetry"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("Starting Crucible API", "port", cfg.Port)

	registry := languages.NewRegistry()
	if cfg.LanguagesFile != "" {
		if err := registry.LoadFile(cfg.LanguagesFile); err != nil {
			logger.Error("Failed to load languages file", "path", cfg.LanguagesFile, "error", err)
			os.Exit(1)
		}
	}

	metrics := telemetry.NewPrometheusMetrics()
	crucibleLogger := telemetry.NewSlogAdapter()

	ctx := context.Background()
	cli, err := session.NewDockerClient(ctx)
	if err != nil {
		logger.Error("Failed to initialize docker client", "error", err)
		os.Exit(1)
	}

	server := &gateway.Server{
		Languages: registry,
		NewSandbox: func(ctx context.Context, lang languages.Language) (session.Sandbox, error) {
			return session.NewDockerSession(cli, lang, session.Options{
				ProfilerBinary: cfg.ProfilerBinary,
				SampleInterval: cfg.SampleInterval,
				Logger:         crucibleLogger,
				Metrics:        metrics,
			}), nil
		},
		Timeout: cfg.ExecTimeout,
		Logger:  crucibleLogger,
		Metrics: metrics,
	}

	limiter := gateway.NewTokenBucketLimiter(cfg.RatePerSecond, cfg.RateBurst)
	defer limiter.Close()

	handler := limiter.Middleware(
		gateway.AuthMiddleware(logger, os.Getenv("CRUCIBLE_API_KEY"), server.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	logger.Info("Server exited")
}
