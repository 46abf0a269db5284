package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetly/internal/amqp"
	"budgetly/internal/analyzer"
	"budgetly/internal/auth"
	"budgetly/internal/cache"
	"budgetly/internal/cli"
	apphttp "budgetly/internal/http"
	"budgetly/internal/notify"
	"budgetly/internal/services"
)

const (
	analysisCacheSize = 1000
	cacheCleanupEvery = time.Minute
	shutdownTimeout   = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	ctx := context.Background()
	be := cli.MustInitBackend(ctx, logger, cfg)

	reports := cache.NewLRUCache[analyzer.Report](analysisCacheSize, cfg.AnalysisCacheTTL)
	caches := cache.NewManager()
	caches.Register(reports)
	caches.StartCleanup(cacheCleanupEvery)

	analysis := services.NewAnalysisService(be.Store, analyzer.New(cfg.Ratio()), cfg.Location(), reports)

	var (
		sender     notify.Sender = notify.LogSender{}
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		sender = notify.NewAMQPSender(amqpClient)
		logger.Info("Notifications published to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - notifications are logged only")
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Accounts:           services.NewAccountService(be.Store, issuer, sender, analysis, cfg.PasswordResetTTL),
		Budgets:            services.NewBudgetService(be.Store, analysis),
		Expenses:           services.NewExpenseService(be.Store, analysis, analysis.CurrentMonth),
		Goals:              services.NewGoalService(be.Store, analysis),
		Categories:         services.NewCategoryService(be.Store),
		Analysis:           analysis,
		Issuer:             issuer,
		Ready:              be.Ping,
		CacheStats:         reports.Stats,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", "error", err)
			}
		}
	})

	logger.Info("Starting budgetly server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.AppTimezone,
		"overspend_ratio", cfg.Ratio().String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
