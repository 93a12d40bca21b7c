package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dunamismax/renditionforge/internal/domain"
	"github.com/dunamismax/renditionforge/internal/keys"
)

// Orchestrator fans one source object out into one rendition per
// configured size spec.
type Orchestrator struct {
	fetcher     Fetcher
	storer      Storer
	transformer Transformer
	sizes       []domain.SizeSpec
	logger      *log.Logger
}

func NewOrchestrator(fetcher Fetcher, storer Storer, sizes []domain.SizeSpec, logger *log.Logger) (*Orchestrator, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if storer == nil {
		return nil, errors.New("storer is required")
	}
	if err := domain.ValidateSizes(sizes); err != nil {
		return nil, err
	}

	transformer, err := newTransformer()
	if err != nil {
		return nil, fmt.Errorf("build transformer: %w", err)
	}

	return &Orchestrator{
		fetcher:     fetcher,
		storer:      storer,
		transformer: transformer,
		sizes:       sizes,
		logger:      logger,
	}, nil
}

// Result carries every size job's terminal outcome, in completion order.
type Result struct {
	Outcomes []domain.RenditionOutcome
}

// Run processes rawKey (URL-encoded, as delivered by bucket notifications)
// with one concurrent job per size spec. It always waits for every job to
// reach a terminal state, then reports the first failure observed by
// completion order as the overall error; later failures are logged and
// dropped. Surfacing only one error loses information on multi-failure
// runs; the redelivery mechanism sees a single stable cause.
func (o *Orchestrator) Run(ctx context.Context, bucket, rawKey string) (Result, error) {
	key, err := keys.Normalize(rawKey)
	if err != nil {
		return Result{}, err
	}

	results := make(chan domain.RenditionOutcome, len(o.sizes))
	for _, spec := range o.sizes {
		go func(spec domain.SizeSpec) {
			results <- o.runSize(ctx, bucket, key, spec)
		}(spec)
	}

	out := Result{Outcomes: make([]domain.RenditionOutcome, 0, len(o.sizes))}
	var firstErr error
	for range o.sizes {
		outcome := <-results
		out.Outcomes = append(out.Outcomes, outcome)

		if !outcome.Failed() {
			continue
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("size %s: %s", outcome.SizeName, outcome.Error)
		} else if o.logger != nil {
			o.logger.Printf("additional size failure bucket=%s key=%s size=%s err=%s", bucket, key, outcome.SizeName, outcome.Error)
		}
	}

	return out, firstErr
}
