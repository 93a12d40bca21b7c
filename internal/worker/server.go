package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/dunamismax/renditionforge/internal/config"
	"github.com/dunamismax/renditionforge/internal/domain"
	"github.com/dunamismax/renditionforge/internal/pipeline"
	"github.com/dunamismax/renditionforge/internal/queue"
	"github.com/dunamismax/renditionforge/internal/store"
	"github.com/dunamismax/renditionforge/internal/webhook"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Server struct {
	logger        *log.Logger
	server        *asynq.Server
	sem           chan struct{}
	orchestrator  *pipeline.Orchestrator
	webhookClient webhookSender
	invocations   store.InvocationStore
	metrics       *metrics
	tracer        trace.Tracer
}

type webhookSender interface {
	Send(ctx context.Context, endpoint, event string, payload any) error
}

func NewServer(
	logger *log.Logger,
	queueCfg config.QueueConfig,
	workerCfg config.WorkerConfig,
	orchestrator *pipeline.Orchestrator,
	webhookClient *webhook.Client,
	invocations store.InvocationStore,
) (*Server, error) {
	if orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}

	s := &Server{
		logger: logger,
		server: asynq.NewServer(
			queueCfg.RedisClientOpt(),
			asynq.Config{
				Concurrency: workerCfg.Concurrency,
				Queues: map[string]int{
					queueCfg.Name: 1,
				},
				LogLevel: asynq.InfoLevel,
				ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
					retried, _ := asynq.GetRetryCount(ctx)
					maxRetry, _ := asynq.GetMaxRetry(ctx)
					logger.Printf("task failed type=%s retry=%d/%d err=%v", task.Type(), retried, maxRetry, err)
				}),
			},
		),
		sem:           make(chan struct{}, max(1, workerCfg.MaxActiveInvocations)),
		orchestrator:  orchestrator,
		webhookClient: webhookClient,
		invocations:   invocations,
		metrics:       newMetrics(),
		tracer:        otel.Tracer("renditionforge/worker"),
	}
	return s, nil
}

func (s *Server) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeProcessUpload, s.handleProcessUpload)
	return s.server.Run(mux)
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *Server) handleProcessUpload(ctx context.Context, task *asynq.Task) error {
	startedAt := time.Now()
	outcome := domain.InvocationStatusFailed

	payload, err := queue.ParseProcessUploadPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := s.tracer.Start(ctx, "worker.process_upload", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("invocation.id", payload.InvocationID),
		attribute.String("invocation.bucket", payload.Bucket),
		attribute.String("invocation.key", payload.Key),
	)
	defer span.End()
	defer func() {
		s.metrics.invocationDuration.WithLabelValues(outcome).Observe(time.Since(startedAt).Seconds())
		s.metrics.invocationsTotal.WithLabelValues(outcome).Inc()
	}()

	s.sem <- struct{}{}
	s.metrics.activeInvocations.Inc()
	defer func() {
		<-s.sem
		s.metrics.activeInvocations.Dec()
	}()

	s.logger.Printf(
		"Working... invocation_id=%s bucket=%s key=%s event=%s",
		payload.InvocationID,
		payload.Bucket,
		payload.Key,
		payload.EventName,
	)

	s.updateStatus(ctx, payload.InvocationID, domain.InvocationStatusProcessing)

	result, runErr := s.orchestrator.Run(ctx, payload.Bucket, payload.Key)
	s.recordOutcomes(ctx, payload.InvocationID, result.Outcomes)
	s.recordMetrics(result)

	if runErr != nil {
		s.updateStatus(ctx, payload.InvocationID, domain.InvocationStatusFailed)
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "pipeline failed")
		s.dispatchWebhook(ctx, payload, "invocation.failed", map[string]any{
			"invocation_id": payload.InvocationID,
			"status":        domain.InvocationStatusFailed,
			"bucket":        payload.Bucket,
			"key":           payload.Key,
			"requested_at":  payload.RequestedAt,
			"failed_at":     time.Now().UTC(),
			"outcomes":      result.Outcomes,
			"error":         runErr.Error(),
		})
		return fmt.Errorf("run pipeline: %w", runErr)
	}

	s.logger.Printf("Processed invocation_id=%s renditions=%d", payload.InvocationID, len(result.Outcomes))
	s.updateStatus(ctx, payload.InvocationID, domain.InvocationStatusSucceeded)

	if err := s.dispatchWebhook(ctx, payload, "invocation.completed", map[string]any{
		"invocation_id": payload.InvocationID,
		"status":        domain.InvocationStatusSucceeded,
		"bucket":        payload.Bucket,
		"key":           payload.Key,
		"requested_at":  payload.RequestedAt,
		"completed_at":  time.Now().UTC(),
		"outcomes":      result.Outcomes,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook dispatch failed")
		return err
	}

	outcome = domain.InvocationStatusSucceeded
	span.SetStatus(codes.Ok, "processed")
	return nil
}

func (s *Server) updateStatus(ctx context.Context, invocationID, status string) {
	if s.invocations == nil {
		return
	}
	if _, err := s.invocations.UpdateStatus(ctx, invocationID, status); err != nil {
		s.logger.Printf("invocation status update failed invocation_id=%s status=%s err=%v", invocationID, status, err)
	}
}

func (s *Server) recordOutcomes(ctx context.Context, invocationID string, outcomes []domain.RenditionOutcome) {
	if s.invocations == nil {
		return
	}
	if err := s.invocations.RecordOutcomes(ctx, invocationID, outcomes); err != nil {
		s.logger.Printf("invocation outcome write failed invocation_id=%s err=%v", invocationID, err)
	}
}

func (s *Server) recordMetrics(result pipeline.Result) {
	for _, outcome := range result.Outcomes {
		switch {
		case outcome.Skipped:
			s.metrics.skipsTotal.Inc()
		case outcome.Failed():
		default:
			s.metrics.renditionsTotal.Inc()
			s.metrics.renditionBytesTotal.Add(float64(outcome.Bytes))
			s.metrics.pixelsWrittenTotal.Add(float64(outcome.Width * outcome.Height))
		}
	}
}

func (s *Server) dispatchWebhook(ctx context.Context, payload queue.ProcessUploadPayload, event string, body map[string]any) error {
	if payload.WebhookURL == "" || s.webhookClient == nil {
		return nil
	}

	if err := s.webhookClient.Send(ctx, payload.WebhookURL, event, body); err != nil {
		s.logger.Printf("webhook delivery failed invocation_id=%s event=%s err=%v", payload.InvocationID, event, err)
		return fmt.Errorf("dispatch webhook: %w", err)
	}

	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
