package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/medscribe/core"
)

// DefaultBatchSize is the number of snippets embedded per request during Ingest.
const DefaultBatchSize = 32

// IngestOptions holds optional parameters for Ingest.
type IngestOptions struct {
	BatchSize int              // Snippets per embedding request; DefaultBatchSize if zero
	Progress  *ProgressTracker // Optional; started and finished by Ingest
}

// Ingest bulk-loads snippets. Batches are embedded concurrently on a worker
// pool and inserted in input order, so ids follow the order of texts.
// Blank snippets are skipped.
func (kb *KnowledgeBase) Ingest(ctx context.Context, texts []string, opts *IngestOptions) ([]core.ID, error) {
	if opts == nil {
		opts = &IngestOptions{}
	}
	batchSize := opts.BatchSize
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	snippets := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			snippets = append(snippets, t)
		}
	}
	if len(snippets) == 0 {
		return []core.ID{}, nil
	}

	var batches [][]string
	for lo := 0; lo < len(snippets); lo += batchSize {
		batches = append(batches, snippets[lo:min(lo+batchSize, len(snippets))])
	}

	pool, err := ants.NewPool(kb.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][][]float32, len(batches))
	errs := make([]error, len(batches))
	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			vectors[i], errs[i] = kb.embed(ctx, batch)
			if errs[i] != nil {
				cancel()
			}
		})
		if err != nil {
			wg.Done()
			errs[i] = err
			cancel()
			break
		}
	}
	wg.Wait()

	if err := firstError(errs); err != nil {
		return nil, fmt.Errorf("embedding snippets: %w", err)
	}

	if opts.Progress != nil {
		opts.Progress.Start()
		defer opts.Progress.Finish()
	}
	ids := make([]core.ID, 0, len(snippets))
	for i, batch := range batches {
		added, err := kb.append(ctx, batch, vectors[i])
		if err != nil {
			return ids, err
		}
		ids = append(ids, added...)
		if opts.Progress != nil {
			opts.Progress.Increment(len(batch))
		}
	}

	kb.logger.Info("ingested knowledge snippets", "count", len(ids), "batches", len(batches))
	return ids, nil
}

// firstError prefers a root cause over the cancellations it triggered in
// sibling batches.
func firstError(errs []error) error {
	var canceled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			if canceled == nil {
				canceled = err
			}
			continue
		}
		return err
	}
	return canceled
}
