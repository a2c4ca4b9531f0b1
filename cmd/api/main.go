package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sheep1986/apex-sub005/internal/api/router"
	"github.com/sheep1986/apex-sub005/internal/app/bootstrap"
	"github.com/sheep1986/apex-sub005/internal/calls"
	"github.com/sheep1986/apex-sub005/internal/callsync"
	"github.com/sheep1986/apex-sub005/internal/campaigns"
	appconfig "github.com/sheep1986/apex-sub005/internal/config"
	"github.com/sheep1986/apex-sub005/internal/events"
	"github.com/sheep1986/apex-sub005/internal/http/handlers"
	"github.com/sheep1986/apex-sub005/internal/observability/metrics"
	"github.com/sheep1986/apex-sub005/internal/outcome"
	"github.com/sheep1986/apex-sub005/internal/reconcile"
	"github.com/sheep1986/apex-sub005/internal/vapi"
	"github.com/sheep1986/apex-sub005/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting call-sync API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := bootstrap.BuildPGXPool(ctx, cfg, logger)
	if err != nil {
		logger.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	if pool == nil {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	analyzer := bootstrap.BuildAnalyzer(ctx, cfg, logger)

	provider, err := vapi.New(vapi.Config{
		BaseURL:     cfg.VapiBaseURL,
		Credentials: vapi.StaticCredentials(cfg.VapiAPIKey),
	})
	if err != nil {
		logger.Error("provider client init failed", "error", err)
		os.Exit(1)
	}

	callRepo := calls.NewPostgresRepository(pool)
	campaignRepo := campaigns.NewPostgresRepository(pool)
	eventLog := events.NewEventLogStore(pool)

	webhookMetrics := metrics.NewWebhookMetrics(nil)
	classifier := outcome.NewClassifier()
	guard := reconcile.NewGuard(callRepo, eventLog, redisClient, cfg.DuplicateCacheTTL, logger)

	reconciler := reconcile.NewReconciler(reconcile.Config{
		Calls:                callRepo,
		EventLog:             eventLog,
		Guard:                guard,
		Classifier:           classifier,
		Provider:             provider,
		Analyzer:             analyzer,
		Metrics:              webhookMetrics,
		Logger:               logger,
		TranscriptRetryDelay: cfg.TranscriptRetryDelay,
		AnalysisTimeout:      cfg.AnalysisTimeout,
	})

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	dispatcher := reconcile.NewDispatcher(cfg.WebhookQueueSize, reconciler.Process, logger, webhookMetrics)
	dispatcher.Start(workerCtx, cfg.ReconcileWorkers)

	syncJob := callsync.New(callsync.Config{
		Provider:     provider,
		Calls:        callRepo,
		Campaigns:    campaignRepo,
		Classifier:   classifier,
		Metrics:      webhookMetrics,
		Logger:       logger,
		DefaultLimit: cfg.SyncDefaultLimit,
		MaxLimit:     cfg.SyncMaxLimit,
	})

	r := router.New(&router.Config{
		Logger: logger,
		Webhook: handlers.NewWebhookHandler(handlers.WebhookConfig{
			EventLog:   eventLog,
			Dispatcher: dispatcher,
			Logger:     logger,
			Metrics:    webhookMetrics,
		}),
		Status:             handlers.NewStatusHandler(cfg.Env),
		Sync:               handlers.NewSyncHandler(syncJob, logger),
		MetricsHandler:     promhttp.Handler(),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Stop accepting events and drain what is already queued.
	dispatcher.Close()
	stopWorkers()

	logger.Info("server stopped")
}
