package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/storage"
)

// ReembedOptions holds optional parameters for Reembed.
type ReembedOptions struct {
	// BatchSize is the number of records embedded per request.
	BatchSize int

	// MaxRetries is the number of attempts per batch when the embedder is unreachable.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration

	// Progress receives progress reports. Nil disables reporting.
	Progress io.Writer

	// ReportInterval is how often to report progress, in records.
	ReportInterval int
}

// DefaultReembedOptions returns the options used when Reembed is given nil.
func DefaultReembedOptions() *ReembedOptions {
	return &ReembedOptions{
		BatchSize:      100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		ReportInterval: 100,
	}
}

// Reembed recomputes the embedding of every stored record with embedder and
// writes the records back in place. It is used after switching embedding
// models, since stored vectors are only comparable with vectors from the
// model that produced them. Returns the number of records updated.
func Reembed(ctx context.Context, repo storage.KnowledgeRepository, embedder ai.Embedder, opts *ReembedOptions) (int, error) {
	if repo == nil {
		return 0, ErrRepositoryRequired
	}
	if embedder == nil {
		return 0, ErrEmbedderRequired
	}
	if opts == nil {
		opts = DefaultReembedOptions()
	}
	batchSize := max(opts.BatchSize, 1)
	maxRetries := max(opts.MaxRetries, 1)
	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}
	logger := slog.Default().With("component", "reembed")

	total, err := repo.CountKnowledgeRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(progress, "No records found in knowledge base (0 records)\n")
		return 0, nil
	}
	fmt.Fprintf(progress, "Starting reembedding of %d records (batch size: %d)\n", total, batchSize)

	tracker := NewProgressTracker(progress, total, opts.ReportInterval)
	tracker.SetLabel("Reembedded")
	tracker.Start()

	dims := embedder.Dimensions()
	updated := 0
	flush := func(batch []*core.KnowledgeRecord) error {
		texts := make([]string, len(batch))
		for i, record := range batch {
			texts[i] = record.Text
		}

		var vectors [][]float32
		err := retryWithBackoff(ctx, logger, func() error {
			var err error
			vectors, err = embedder.EmbedTexts(ctx, texts)
			return err
		}, maxRetries, opts.RetryDelay)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings after %d attempts: %w", maxRetries, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: embedder returned %d vectors for %d texts",
				core.ErrCapabilityUnavailable, len(vectors), len(batch))
		}

		for i, record := range batch {
			if len(vectors[i]) != dims {
				return &core.DimensionMismatchError{Expected: dims, Actual: len(vectors[i])}
			}
			record.Embedding = ai.NormalizeVector(vectors[i])
		}
		if err := repo.UpdateKnowledgeRecords(ctx, batch...); err != nil {
			return fmt.Errorf("failed to update records: %w", err)
		}

		updated += len(batch)
		tracker.Increment(len(batch))
		return nil
	}

	batch := make([]*core.KnowledgeRecord, 0, batchSize)
	err = repo.ForEachKnowledgeRecord(ctx, func(record *core.KnowledgeRecord) error {
		batch = append(batch, record)
		if len(batch) < batchSize {
			return nil
		}
		err := flush(batch)
		batch = make([]*core.KnowledgeRecord, 0, batchSize)
		return err
	})
	if err == nil && len(batch) > 0 {
		err = flush(batch)
	}
	if err != nil {
		logger.Error("reembedding stopped", "updated", updated, "err", err)
		return updated, err
	}

	tracker.Finish()
	elapsed := tracker.Elapsed()
	fmt.Fprintf(progress, "Reembedding complete. Processed %d records in %v (%.1f records/sec)\n",
		updated, elapsed.Round(time.Second), float64(updated)/max(elapsed.Seconds(), 1e-9))
	return updated, nil
}

// retryWithBackoff retries operation while it fails with
// core.ErrCapabilityUnavailable, doubling the delay after each attempt.
func retryWithBackoff(ctx context.Context, logger *slog.Logger, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("embedding succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if !errors.Is(lastErr, core.ErrCapabilityUnavailable) || attempt == maxAttempts {
			break
		}
		logger.Debug("embedding failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "err", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return lastErr
}
