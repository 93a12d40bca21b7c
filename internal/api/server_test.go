package api

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dunamismax/renditionforge/internal/domain"
	"github.com/dunamismax/renditionforge/internal/queue"
	"github.com/dunamismax/renditionforge/internal/store"
	"github.com/hibiken/asynq"
)

type fakeEnqueuer struct {
	payloads []queue.ProcessUploadPayload
	err      error
}

func (f *fakeEnqueuer) EnqueueProcessUpload(_ context.Context, payload queue.ProcessUploadPayload) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, payload)
	return &asynq.TaskInfo{ID: "task-1", Queue: "default"}, nil
}

type fakeStorage struct {
	exists bool
}

func (f fakeStorage) ObjectExists(_ context.Context, _, _ string) (bool, error) {
	return f.exists, nil
}

func newTestServer(enqueuer *fakeEnqueuer, storage objectStorage) (*Server, *store.MemoryInvocationStore) {
	invocations := store.NewMemoryInvocationStore()
	s := NewServer(log.New(io.Discard, "", 0), enqueuer, invocations, storage, nil)
	return s, invocations
}

func TestBucketNotificationEnqueuesPerCreatedObject(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	s, invocations := newTestServer(enqueuer, fakeStorage{exists: true})

	body := `{
		"Records": [
			{
				"eventName": "s3:ObjectCreated:Put",
				"s3": {
					"bucket": {"name": "uploads"},
					"object": {"key": "original/abc123/Darth+Vader.jpg", "size": 1024}
				}
			},
			{
				"eventName": "s3:ObjectRemoved:Delete",
				"s3": {
					"bucket": {"name": "uploads"},
					"object": {"key": "original/abc123/old.png"}
				}
			}
		]
	}`

	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(enqueuer.payloads) != 1 {
		t.Fatalf("expected 1 enqueued invocation, got %d", len(enqueuer.payloads))
	}

	payload := enqueuer.payloads[0]
	if payload.Bucket != "uploads" {
		t.Fatalf("expected bucket uploads, got %q", payload.Bucket)
	}
	if payload.Key != "original/abc123/Darth+Vader.jpg" {
		t.Fatalf("expected raw key preserved for the worker, got %q", payload.Key)
	}

	inv, ok, err := invocations.Get(context.Background(), payload.InvocationID)
	if err != nil || !ok {
		t.Fatalf("expected invocation record, ok=%v err=%v", ok, err)
	}
	if inv.Status != domain.InvocationStatusQueued {
		t.Fatalf("expected queued status, got %s", inv.Status)
	}
}

func TestBucketNotificationRejectsEmptyRecords(t *testing.T) {
	s, _ := newTestServer(&fakeEnqueuer{}, fakeStorage{})

	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(`{"Records": []}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestManualEnqueueChecksSourceExists(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	s, _ := newTestServer(enqueuer, fakeStorage{exists: false})

	req := httptest.NewRequest(http.MethodPost, "/v1/renditions", strings.NewReader(`{"bucket":"uploads","key":"original/abc123/photo.png"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for missing source, got %d", rec.Code)
	}
	if len(enqueuer.payloads) != 0 {
		t.Fatal("expected no enqueue for missing source")
	}
}

func TestManualEnqueueAcceptsExistingSource(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	s, _ := newTestServer(enqueuer, fakeStorage{exists: true})

	req := httptest.NewRequest(http.MethodPost, "/v1/renditions", strings.NewReader(`{"bucket":"uploads","key":"original/abc123/photo.png","webhook_url":"https://example.com/hook"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(enqueuer.payloads) != 1 {
		t.Fatalf("expected 1 enqueued invocation, got %d", len(enqueuer.payloads))
	}
	if enqueuer.payloads[0].WebhookURL != "https://example.com/hook" {
		t.Fatalf("expected webhook URL forwarded, got %q", enqueuer.payloads[0].WebhookURL)
	}
}

func TestGetInvocationReturnsRecord(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	s, invocations := newTestServer(enqueuer, fakeStorage{exists: true})

	if err := invocations.Create(context.Background(), domain.Invocation{
		ID:     "inv-42",
		Bucket: "uploads",
		Key:    "original/abc123/photo.png",
		Status: domain.InvocationStatusSucceeded,
		Outcomes: []domain.RenditionOutcome{
			{SizeName: "thumb", DestinationKey: "thumb/abc123/photo.png", Width: 150, Height: 150, Bytes: 900},
		},
	}); err != nil {
		t.Fatalf("seed invocation: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/invocations/inv-42", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "thumb/abc123/photo.png") {
		t.Fatalf("expected outcome in response, got %s", rec.Body.String())
	}
}

func TestGetInvocationNotFound(t *testing.T) {
	s, _ := newTestServer(&fakeEnqueuer{}, fakeStorage{})

	req := httptest.NewRequest(http.MethodGet, "/v1/invocations/missing", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
