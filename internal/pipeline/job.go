package pipeline

import (
	"context"
	"fmt"

	"github.com/dunamismax/renditionforge/internal/domain"
	"github.com/dunamismax/renditionforge/internal/geometry"
	"github.com/dunamismax/renditionforge/internal/keys"
)

// Fetcher reads a source object, returning its bytes and content type.
type Fetcher interface {
	FetchObject(ctx context.Context, bucket, key string) ([]byte, string, error)
}

// Storer writes one rendition. Visibility is fixed per process and applied
// by the implementation, not chosen per call.
type Storer interface {
	StoreObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// runSize executes one size job to its terminal outcome: resolve the
// destination, fetch the source, plan the geometry, transform, store. The
// first failing stage ends the job; there are no retries and no cleanup of
// a partially written destination. Keys whose extension is not an
// encodable type short-circuit to a skip outcome before any fetch.
//
// Each job fetches the source itself rather than sharing bytes across
// jobs. That costs one read per size but keeps every job's data
// exclusively owned, so no synchronization is needed.
func (o *Orchestrator) runSize(ctx context.Context, bucket, key string, spec domain.SizeSpec) domain.RenditionOutcome {
	outcome := domain.RenditionOutcome{SizeName: spec.Name}

	format, ok := encodableFormat(key)
	if !ok {
		outcome.Skipped = true
		return outcome
	}

	dst, err := keys.ResolveDestination(bucket, key, spec.Name)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.DestinationKey = dst.Key

	src, _, err := o.fetcher.FetchObject(ctx, bucket, key)
	if err != nil {
		outcome.Error = fmt.Sprintf("fetch %s/%s: %v", bucket, key, err)
		return outcome
	}

	width, height, err := o.transformer.Probe(ctx, src)
	if err != nil {
		outcome.Error = fmt.Sprintf("probe %s/%s: %v", bucket, key, err)
		return outcome
	}

	plan := geometry.Compute(width, height, spec)

	data, err := o.transformer.Transform(ctx, src, plan, format)
	if err != nil {
		outcome.Error = fmt.Sprintf("transform %s/%s size=%s: %v", bucket, key, spec.Name, err)
		return outcome
	}

	if err := o.storer.StoreObject(ctx, dst.Bucket, dst.Key, data, contentTypeForFormat(format)); err != nil {
		outcome.Error = fmt.Sprintf("store %s/%s: %v", dst.Bucket, dst.Key, err)
		return outcome
	}

	outcome.Width = plan.OutputWidth
	outcome.Height = plan.OutputHeight
	outcome.Bytes = len(data)
	return outcome
}
