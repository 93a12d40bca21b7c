package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/renditionforge/internal/api"
	"github.com/dunamismax/renditionforge/internal/config"
	"github.com/dunamismax/renditionforge/internal/queue"
	"github.com/dunamismax/renditionforge/internal/ratelimit"
	"github.com/dunamismax/renditionforge/internal/storage"
	"github.com/dunamismax/renditionforge/internal/store"
	"github.com/dunamismax/renditionforge/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lmsgprefix)
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

	queueClient := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Printf("queue client close error: %v", err)
		}
	}()

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

	invocations := buildInvocationStore(ctx, cfg, logger)

	var rateLimiter api.RateLimiter
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
	})
	limiter, err := ratelimit.NewRedisTokenBucket(redisClient, cfg.API.RateLimitCapacity, cfg.API.RateLimitWindow, cfg.API.RateLimitKeyPrefix)
	if err != nil {
		logger.Printf("rate limiting disabled: %v", err)
	} else {
		rateLimiter = limiter
	}

	app := api.NewServer(logger, queueClient, invocations, storageClient, rateLimiter)

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", cfg.API.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Println("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
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
