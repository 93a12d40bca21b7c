package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/dunamismax/renditionforge/internal/config"
	"github.com/dunamismax/renditionforge/internal/pipeline"
	"github.com/dunamismax/renditionforge/internal/storage"
	"github.com/dunamismax/renditionforge/internal/store"
	"github.com/dunamismax/renditionforge/internal/telemetry"
	"github.com/dunamismax/renditionforge/internal/webhook"
	"github.com/dunamismax/renditionforge/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[worker] ", log.LstdFlags|log.Lmsgprefix)
	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Printf("tracing shutdown failed: %v", err)
		}
	}()

	if err := pipeline.Startup(); err != nil {
		logger.Fatalf("imaging runtime startup failed: %v", err)
	}
	defer pipeline.Shutdown()

	storageClient, err := storage.NewClient(storage.Config{
		Endpoint:   cfg.Storage.Endpoint,
		Access:     cfg.Storage.AccessKey,
		Secret:     cfg.Storage.SecretKey,
		Bucket:     cfg.Storage.Bucket,
		UseSSL:     cfg.Storage.UseSSL,
		Visibility: cfg.Storage.Visibility,
	})
	if err != nil {
		logger.Fatalf("storage client setup failed: %v", err)
	}
	if err := storageClient.EnsureBucket(ctx); err != nil {
		logger.Printf("bucket check failed: %v", err)
	}

	orchestrator, err := pipeline.NewOrchestrator(storageClient, storageClient, cfg.Sizes, logger)
	if err != nil {
		logger.Fatalf("orchestrator setup failed: %v", err)
	}

	invocations := buildInvocationStore(ctx, cfg, logger)
	webhookClient := webhook.NewClient(webhook.Config{
		SigningSecret: cfg.Webhook.SigningSecret,
		MaxAttempts:   3,
	})

	srv, err := worker.NewServer(logger, cfg.Queue, cfg.Worker, orchestrator, webhookClient, invocations)
	if err != nil {
		logger.Fatalf("worker setup failed: %v", err)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", srv.MetricsHandler())
		logger.Printf("metrics listening on %s", cfg.Worker.MetricsAddr)
		if err := http.ListenAndServe(cfg.Worker.MetricsAddr, mux); err != nil {
			logger.Printf("metrics server failed: %v", err)
		}
	}()

	logger.Printf(
		"starting worker concurrency=%d max_active_invocations=%d queue=%s redis=%s sizes=%d",
		cfg.Worker.Concurrency,
		cfg.Worker.MaxActiveInvocations,
		cfg.Queue.Name,
		cfg.Queue.RedisAddr,
		len(cfg.Sizes),
	)

	if err := srv.Run(); err != nil {
		logger.Fatalf("worker failed: %v", err)
	}
}

func buildInvocationStore(ctx context.Context, cfg config.Config, logger *log.Logger) store.InvocationStore {
	pg, err := store.NewPostgresInvocationStore(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Printf("postgres unavailable, using in-memory invocation store: %v", err)
		return store.NewMemoryInvocationStore()
	}
	return pg
}
