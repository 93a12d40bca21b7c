package worker

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/dunamismax/renditionforge/internal/domain"
	"github.com/dunamismax/renditionforge/internal/pipeline"
	"github.com/dunamismax/renditionforge/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	return testutil.ToFloat64(c)
}

func TestRecordOutcomesPersistsTerminalStates(t *testing.T) {
	invocations := store.NewMemoryInvocationStore()
	if err := invocations.Create(context.Background(), domain.Invocation{
		ID:        "inv-1",
		Bucket:    "uploads",
		Key:       "original/abc123/photo.png",
		Status:    domain.InvocationStatusProcessing,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed invocation: %v", err)
	}

	s := &Server{
		logger:      log.New(io.Discard, "", 0),
		invocations: invocations,
		metrics:     newMetrics(),
	}

	s.recordOutcomes(context.Background(), "inv-1", []domain.RenditionOutcome{
		{SizeName: "thumb", DestinationKey: "thumb/abc123/photo.png", Width: 150, Height: 150, Bytes: 900},
		{SizeName: "large", Error: "store uploads/large/abc123/photo.png: backend unavailable"},
	})

	inv, ok, err := invocations.Get(context.Background(), "inv-1")
	if err != nil || !ok {
		t.Fatalf("load invocation: ok=%v err=%v", ok, err)
	}
	if len(inv.Outcomes) != 2 {
		t.Fatalf("expected 2 recorded outcomes, got %d", len(inv.Outcomes))
	}
	if !inv.Outcomes[1].Failed() {
		t.Fatal("expected second outcome to be a failure")
	}
}

func TestRecordMetricsCountsSkipsAndRenditions(t *testing.T) {
	s := &Server{
		logger:  log.New(io.Discard, "", 0),
		metrics: newMetrics(),
	}

	s.recordMetrics(pipeline.Result{
		Outcomes: []domain.RenditionOutcome{
			{SizeName: "thumb", Width: 150, Height: 150, Bytes: 900},
			{SizeName: "small", Skipped: true},
			{SizeName: "large", Error: "boom"},
		},
	})

	// A failed outcome must not count as a stored rendition.
	if got := counterValue(t, s.metrics.renditionsTotal); got != 1 {
		t.Fatalf("expected 1 rendition counted, got %v", got)
	}
	if got := counterValue(t, s.metrics.skipsTotal); got != 1 {
		t.Fatalf("expected 1 skip counted, got %v", got)
	}
	if got := counterValue(t, s.metrics.pixelsWrittenTotal); got != 150*150 {
		t.Fatalf("expected %d pixels counted, got %v", 150*150, got)
	}
}

func TestUpdateStatusToleratesMissingStore(t *testing.T) {
	s := &Server{
		logger:  log.New(io.Discard, "", 0),
		metrics: newMetrics(),
	}

	// Must not panic without an invocation store configured.
	s.updateStatus(context.Background(), "inv-x", domain.InvocationStatusProcessing)
	s.recordOutcomes(context.Background(), "inv-x", nil)
}
