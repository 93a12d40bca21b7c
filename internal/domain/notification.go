package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Notification is the bucket-notification envelope MinIO and S3 post to
// webhook targets on object events. Only the fields the pipeline needs are
// mapped; object keys arrive URL-encoded and stay raw here, the key
// resolver decodes them.
type Notification struct {
	Records []NotificationRecord `json:"Records"`
}

type NotificationRecord struct {
	EventName string `json:"eventName"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key  string `json:"key"`
			Size int64  `json:"size"`
		} `json:"object"`
	} `json:"s3"`
}

// ObjectEvent is one created object extracted from a notification.
type ObjectEvent struct {
	Bucket    string
	Key       string
	EventName string
}

func (n Notification) Validate() error {
	if len(n.Records) == 0 {
		return errors.New("notification must contain at least one record")
	}
	for i, rec := range n.Records {
		if strings.TrimSpace(rec.S3.Bucket.Name) == "" {
			return fmt.Errorf("records[%d]: bucket name is required", i)
		}
		if strings.TrimSpace(rec.S3.Object.Key) == "" {
			return fmt.Errorf("records[%d]: object key is required", i)
		}
	}
	return nil
}

// Events returns one ObjectEvent per object-created record. Removal and
// access events are dropped, not rejected: MinIO targets can be configured
// for broader event sets than the pipeline consumes.
func (n Notification) Events() []ObjectEvent {
	events := make([]ObjectEvent, 0, len(n.Records))
	for _, rec := range n.Records {
		if !strings.HasPrefix(rec.EventName, "s3:ObjectCreated:") && rec.EventName != "" {
			continue
		}
		events = append(events, ObjectEvent{
			Bucket:    rec.S3.Bucket.Name,
			Key:       rec.S3.Object.Key,
			EventName: rec.EventName,
		})
	}
	return events
}
