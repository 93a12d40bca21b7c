package queue

import (
	"testing"
	"time"
)

func TestProcessUploadTaskRoundTrip(t *testing.T) {
	payload := ProcessUploadPayload{
		InvocationID: "inv-123",
		Bucket:       "uploads",
		Key:          "original/abc123/Darth+Vader.jpg",
		EventName:    "s3:ObjectCreated:Put",
		RequestedAt:  time.Now().UTC(),
	}

	task, err := NewProcessUploadTask(payload)
	if err != nil {
		t.Fatalf("NewProcessUploadTask returned error: %v", err)
	}
	if task.Type() != TypeProcessUpload {
		t.Fatalf("expected task type %q, got %q", TypeProcessUpload, task.Type())
	}

	parsed, err := ParseProcessUploadPayload(task)
	if err != nil {
		t.Fatalf("ParseProcessUploadPayload returned error: %v", err)
	}

	if parsed.InvocationID != payload.InvocationID {
		t.Fatalf("expected invocation_id %q, got %q", payload.InvocationID, parsed.InvocationID)
	}
	if parsed.Key != payload.Key {
		t.Fatalf("expected raw key preserved, got %q", parsed.Key)
	}
}
