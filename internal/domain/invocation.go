package domain

import (
	"errors"
	"strings"
	"time"
)

const (
	InvocationStatusQueued     = "queued"
	InvocationStatusProcessing = "processing"
	InvocationStatusSucceeded  = "succeeded"
	InvocationStatusFailed     = "failed"
)

// Invocation is one pipeline run for one uploaded source object.
type Invocation struct {
	ID         string
	Bucket     string
	Key        string
	EventName  string
	Status     string
	WebhookURL string
	Outcomes   []RenditionOutcome
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RenditionOutcome is the terminal state of one size job. Skipped marks a
// source whose type is not encodable; that is a benign no-op, not a failure.
type RenditionOutcome struct {
	SizeName       string `json:"size_name"`
	DestinationKey string `json:"destination_key,omitempty"`
	Skipped        bool   `json:"skipped,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	Bytes          int    `json:"bytes,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (o RenditionOutcome) Failed() bool {
	return o.Error != ""
}

// EnqueueRequest is the manual-trigger API payload.
type EnqueueRequest struct {
	Bucket     string `json:"bucket"`
	Key        string `json:"key"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

func (r EnqueueRequest) Validate() error {
	if strings.TrimSpace(r.Bucket) == "" {
		return errors.New("bucket is required")
	}
	if strings.TrimSpace(r.Key) == "" {
		return errors.New("key is required")
	}
	return nil
}
