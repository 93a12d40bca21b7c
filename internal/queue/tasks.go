package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TypeProcessUpload = "rendition:process"

// ProcessUploadPayload identifies one newly stored source object. Key is
// the raw, still URL-encoded key from the notification; the worker
// normalizes it.
type ProcessUploadPayload struct {
	InvocationID string    `json:"invocation_id"`
	Bucket       string    `json:"bucket"`
	Key          string    `json:"key"`
	EventName    string    `json:"event_name,omitempty"`
	WebhookURL   string    `json:"webhook_url,omitempty"`
	RequestedAt  time.Time `json:"requested_at"`
}

func NewProcessUploadTask(payload ProcessUploadPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal process payload: %w", err)
	}
	return asynq.NewTask(TypeProcessUpload, body), nil
}

func ParseProcessUploadPayload(task *asynq.Task) (ProcessUploadPayload, error) {
	var payload ProcessUploadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProcessUploadPayload{}, fmt.Errorf("unmarshal process payload: %w", err)
	}
	return payload, nil
}
