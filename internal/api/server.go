package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dunamismax/renditionforge/internal/domain"
	"github.com/dunamismax/renditionforge/internal/id"
	"github.com/dunamismax/renditionforge/internal/queue"
	"github.com/dunamismax/renditionforge/internal/store"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Server is the notification ingress: bucket-notification webhooks and a
// manual trigger both turn into queued pipeline invocations.
type Server struct {
	logger                *log.Logger
	queueClient           queueEnqueuer
	invocations           store.InvocationStore
	storage               objectStorage
	rateLimiter           RateLimiter
	rateLimitUserIDHeader string
	metrics               *metrics
	tracer                trace.Tracer
	mux                   *http.ServeMux
}

type queueEnqueuer interface {
	EnqueueProcessUpload(ctx context.Context, payload queue.ProcessUploadPayload) (*asynq.TaskInfo, error)
}

type objectStorage interface {
	ObjectExists(ctx context.Context, bucket, objectKey string) (bool, error)
}

func NewServer(logger *log.Logger, queueClient queueEnqueuer, invocations store.InvocationStore, storage objectStorage, rateLimiter RateLimiter) *Server {
	if storage == nil {
		storage = unavailableObjectStorage{}
	}

	s := &Server{
		logger:                logger,
		queueClient:           queueClient,
		invocations:           invocations,
		storage:               storage,
		rateLimiter:           rateLimiter,
		rateLimitUserIDHeader: "X-User-ID",
		metrics:               newMetrics(),
		tracer:                otel.Tracer("renditionforge/api"),
		mux:                   http.NewServeMux(),
	}
	s.routes()
	return s
}

type unavailableObjectStorage struct{}

func (unavailableObjectStorage) ObjectExists(_ context.Context, _, _ string) (bool, error) {
	return false, errors.New("object storage is unavailable")
}

func (s *Server) Handler() http.Handler {
	return s.withTracing(s.withRateLimit(s.metrics.withHTTPMetrics(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
	s.mux.HandleFunc("POST /v1/events", s.handleBucketNotification)
	s.mux.HandleFunc("POST /v1/renditions", s.handleManualEnqueue)
	s.mux.HandleFunc("GET /v1/invocations/{id}", s.handleGetInvocation)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBucketNotification(w http.ResponseWriter, r *http.Request) {
	var note domain.Notification
	if err := decodeJSON(r, &note); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := note.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	events := note.Events()
	if len(events) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"invocations": []any{}})
		return
	}

	accepted := make([]map[string]string, 0, len(events))
	for _, event := range events {
		invocationID, err := s.enqueueInvocation(r.Context(), event, "")
		if err != nil {
			s.logger.Printf("enqueue failed bucket=%s key=%s err=%v", event.Bucket, event.Key, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue invocation"})
			return
		}
		accepted = append(accepted, map[string]string{
			"invocation_id": invocationID,
			"bucket":        event.Bucket,
			"key":           event.Key,
			"status":        domain.InvocationStatusQueued,
		})
	}

	s.metrics.invocationsEnqueued.WithLabelValues("notification").Add(float64(len(accepted)))
	writeJSON(w, http.StatusAccepted, map[string]any{"invocations": accepted})
}

func (s *Server) handleManualEnqueue(w http.ResponseWriter, r *http.Request) {
	var req domain.EnqueueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	exists, err := s.storage.ObjectExists(r.Context(), req.Bucket, req.Key)
	if err != nil {
		s.logger.Printf("source check failed bucket=%s key=%s err=%v", req.Bucket, req.Key, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "source object check failed"})
		return
	}
	if !exists {
		writeJSON(w, http.StatusConflict, map[string]string{"error": fmt.Sprintf("source object is missing: %s/%s", req.Bucket, req.Key)})
		return
	}

	event := domain.ObjectEvent{Bucket: req.Bucket, Key: req.Key, EventName: "manual"}
	invocationID, err := s.enqueueInvocation(r.Context(), event, req.WebhookURL)
	if err != nil {
		s.logger.Printf("enqueue failed bucket=%s key=%s err=%v", req.Bucket, req.Key, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue invocation"})
		return
	}

	s.metrics.invocationsEnqueued.WithLabelValues("manual").Inc()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"invocation_id": invocationID,
		"status":        domain.InvocationStatusQueued,
	})
}

func (s *Server) enqueueInvocation(ctx context.Context, event domain.ObjectEvent, webhookURL string) (string, error) {
	now := time.Now().UTC()
	inv := domain.Invocation{
		ID:         id.New(),
		Bucket:     event.Bucket,
		Key:        event.Key,
		EventName:  event.EventName,
		Status:     domain.InvocationStatusQueued,
		WebhookURL: webhookURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.invocations.Create(ctx, inv); err != nil {
		return "", fmt.Errorf("create invocation record: %w", err)
	}

	_, err := s.queueClient.EnqueueProcessUpload(ctx, queue.ProcessUploadPayload{
		InvocationID: inv.ID,
		Bucket:       inv.Bucket,
		Key:          inv.Key,
		EventName:    inv.EventName,
		WebhookURL:   inv.WebhookURL,
		RequestedAt:  now,
	})
	if err != nil {
		if _, updateErr := s.invocations.UpdateStatus(ctx, inv.ID, domain.InvocationStatusFailed); updateErr != nil {
			s.logger.Printf("status update failed invocation_id=%s err=%v", inv.ID, updateErr)
		}
		return "", fmt.Errorf("enqueue invocation: %w", err)
	}

	return inv.ID, nil
}

func (s *Server) handleGetInvocation(w http.ResponseWriter, r *http.Request) {
	invocationID := strings.TrimSpace(r.PathValue("id"))
	if invocationID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invocation id is required"})
		return
	}

	inv, ok, err := s.invocations.Get(r.Context(), invocationID)
	if err != nil {
		s.logger.Printf("fetch invocation failed invocation_id=%s err=%v", invocationID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load invocation"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "invocation not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"invocation_id": inv.ID,
		"bucket":        inv.Bucket,
		"key":           inv.Key,
		"event_name":    inv.EventName,
		"status":        inv.Status,
		"outcomes":      inv.Outcomes,
		"created_at":    inv.CreatedAt,
		"updated_at":    inv.UpdatedAt,
	})
}

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	limited := io.LimitReader(r.Body, maxBodyBytes)
	decoder := json.NewDecoder(limited)
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
