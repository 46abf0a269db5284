// Package cli holds the start-up steps shared by cmd/budgetly,
// cmd/notify-worker and cmd/report-export.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgetly/internal/backend"
	"budgetly/internal/config"
	applog "budgetly/internal/log"
)

// SetupLogger installs the process-wide logger. Every record carries the
// app component unless a caller overrides it.
func SetupLogger(level, format string) *slog.Logger {
	return applog.Setup(applog.Config{
		Level:     level,
		Format:    format,
		Component: applog.ComponentApp,
	})
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads and validates the configuration. extra runs binary
// specific checks after the common ones.
func LoadConfig(extra ...func(*config.Config) error) (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, check := range extra {
		if err := check(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadAndValidateConfig is LoadConfig that exits the process on failure.
// The configured log level and format take effect once it returns.
func LoadAndValidateConfig(extra ...func(*config.Config) error) (*config.Config, *slog.Logger) {
	cfg, err := LoadConfig(extra...)
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, SetupLogger(cfg.LogLevel, cfg.LogFormat)
}

// InitBackend opens the configured data backend.
func InitBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("init %s backend: %w", bcfg.Type, err)
	}
	return result, nil
}

// MustInitBackend is InitBackend that exits the process on failure.
func MustInitBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) *backend.BackendResult {
	result, err := InitBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM, then
// runs cleanup with a context bounded by timeout. done closes after cleanup
// returns or the timeout expires.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx, onShutdown(ctx, stop, logger, timeout, cleanup)
}

func onShutdown(ctx context.Context, stop context.CancelFunc, logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached", "timeout", timeout)
		}
	}()

	return done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is over.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
