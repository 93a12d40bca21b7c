package store

import (
	"context"

	"github.com/dunamismax/renditionforge/internal/domain"
)

type InvocationStore interface {
	Create(ctx context.Context, inv domain.Invocation) error
	Get(ctx context.Context, id string) (domain.Invocation, bool, error)
	UpdateStatus(ctx context.Context, id, status string) (domain.Invocation, error)
	RecordOutcomes(ctx context.Context, id string, outcomes []domain.RenditionOutcome) error
}
